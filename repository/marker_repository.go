package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arjunhariram/ent-web/entity"
)

// MarkerRepository holds the flags that sit next to the counters: the OTP
// request cooldown, the resend mirror and the IP block.
type MarkerRepository interface {
	// SetCooldown stores the end of the cooldown as epoch seconds.
	SetCooldown(ctx context.Context, mobile entity.MobileNumber, until time.Time, ttl time.Duration) error
	// CooldownRemaining returns the seconds left, 0 when no cooldown is active.
	CooldownRemaining(ctx context.Context, mobile entity.MobileNumber, now time.Time) (int, error)
	// CooldownElapsed is true only when a cooldown was recorded and its end has passed.
	CooldownElapsed(ctx context.Context, mobile entity.MobileNumber, now time.Time) (bool, error)
	ClearCooldown(ctx context.Context, mobile entity.MobileNumber) error

	SetResendCount(ctx context.Context, mobile entity.MobileNumber, count int, ttl time.Duration) error
	ClearResendCount(ctx context.Context, mobile entity.MobileNumber) error

	BlockIP(ctx context.Context, ip string, ttl time.Duration) error
	// IPBlockRemaining returns the seconds left on a block, 0 when the address is not blocked.
	IPBlockRemaining(ctx context.Context, ip string) (int, error)
}

type markerRepository struct {
	store KVStore
}

// NewMarkerRepository creates a new marker repository instance
func NewMarkerRepository(store KVStore) MarkerRepository {
	return &markerRepository{store: store}
}

func (r *markerRepository) SetCooldown(ctx context.Context, mobile entity.MobileNumber, until time.Time, ttl time.Duration) error {
	value := strconv.FormatInt(until.Unix(), 10)
	if err := r.store.Set(ctx, Key(PrefixCooldown, mobile.String()), value, ttl); err != nil {
		return fmt.Errorf("failed to set cooldown: %w", err)
	}
	return nil
}

func (r *markerRepository) CooldownRemaining(ctx context.Context, mobile entity.MobileNumber, now time.Time) (int, error) {
	key := Key(PrefixCooldown, mobile.String())

	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get cooldown: %w", err)
	}
	if !found {
		return 0, nil
	}

	if until, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if remaining := until - now.Unix(); remaining > 0 {
			return int(remaining), nil
		}
		return 0, nil
	}

	// Unreadable value: the key's own expiry still bounds the cooldown
	ttl, err := r.store.TTL(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get cooldown ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *markerRepository) CooldownElapsed(ctx context.Context, mobile entity.MobileNumber, now time.Time) (bool, error) {
	raw, found, err := r.store.Get(ctx, Key(PrefixCooldown, mobile.String()))
	if err != nil {
		return false, fmt.Errorf("failed to get cooldown: %w", err)
	}
	if !found {
		return false, nil
	}

	until, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Unreadable: wait for the key to expire
		return false, nil
	}
	return now.Unix() >= until, nil
}

func (r *markerRepository) ClearCooldown(ctx context.Context, mobile entity.MobileNumber) error {
	if err := r.store.Delete(ctx, Key(PrefixCooldown, mobile.String())); err != nil {
		return fmt.Errorf("failed to clear cooldown: %w", err)
	}
	return nil
}

func (r *markerRepository) SetResendCount(ctx context.Context, mobile entity.MobileNumber, count int, ttl time.Duration) error {
	if err := r.store.Set(ctx, Key(PrefixResend, mobile.String()), strconv.Itoa(count), ttl); err != nil {
		return fmt.Errorf("failed to set resend count: %w", err)
	}
	return nil
}

func (r *markerRepository) ClearResendCount(ctx context.Context, mobile entity.MobileNumber) error {
	if err := r.store.Delete(ctx, Key(PrefixResend, mobile.String())); err != nil {
		return fmt.Errorf("failed to clear resend count: %w", err)
	}
	return nil
}

func (r *markerRepository) BlockIP(ctx context.Context, ip string, ttl time.Duration) error {
	if err := r.store.Set(ctx, Key(PrefixIPBlocked, ip), "true", ttl); err != nil {
		return fmt.Errorf("failed to block ip: %w", err)
	}
	return nil
}

func (r *markerRepository) IPBlockRemaining(ctx context.Context, ip string) (int, error) {
	key := Key(PrefixIPBlocked, ip)

	_, found, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get ip block: %w", err)
	}
	if !found {
		return 0, nil
	}

	ttl, err := r.store.TTL(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get ip block ttl: %w", err)
	}
	if ttl <= 0 {
		// Blocked without a readable expiry still counts as blocked.
		return 1, nil
	}
	return ttl, nil
}
