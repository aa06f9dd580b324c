package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arjunhariram/ent-web/entity"
)

// OTPRepository stores OTP hashes and the markers derived from verification
type OTPRepository interface {
	SaveCode(ctx context.Context, mobile entity.MobileNumber, hash string, ttl time.Duration) error
	GetCode(ctx context.Context, mobile entity.MobileNumber) (hash string, found bool, err error)
	// ClaimCode removes the stored code and returns it. Of concurrent callers only one finds it.
	ClaimCode(ctx context.Context, mobile entity.MobileNumber) (hash string, found bool, err error)

	SetLastSent(ctx context.Context, mobile entity.MobileNumber, at time.Time, ttl time.Duration) error
	// GetLastSent returns the zero time when nothing was sent recently.
	GetLastSent(ctx context.Context, mobile entity.MobileNumber) (time.Time, error)

	SaveVerified(ctx context.Context, mobile entity.MobileNumber, marker entity.VerifiedMarker, ttl time.Duration) error
	// GetVerified returns nil when no marker exists.
	GetVerified(ctx context.Context, mobile entity.MobileNumber) (*entity.VerifiedMarker, error)
	// ConsumeVerified removes the marker and returns it. Of concurrent callers
	// only one receives it; the others get nil.
	ConsumeVerified(ctx context.Context, mobile entity.MobileNumber) (*entity.VerifiedMarker, error)

	MarkPasswordReset(ctx context.Context, mobile entity.MobileNumber, at time.Time, ttl time.Duration) error
	HasRecentPasswordReset(ctx context.Context, mobile entity.MobileNumber) (bool, error)
}

// otpRepository implements OTPRepository interface
type otpRepository struct {
	store KVStore
}

// NewOTPRepository creates a new OTP repository instance
func NewOTPRepository(store KVStore) OTPRepository {
	return &otpRepository{
		store: store,
	}
}

// SaveCode replaces any previous code for the number
func (r *otpRepository) SaveCode(ctx context.Context, mobile entity.MobileNumber, hash string, ttl time.Duration) error {
	if err := r.store.Set(ctx, Key(PrefixOTP, mobile.String()), hash, ttl); err != nil {
		return fmt.Errorf("failed to save OTP: %w", err)
	}
	return nil
}

func (r *otpRepository) GetCode(ctx context.Context, mobile entity.MobileNumber) (string, bool, error) {
	hash, found, err := r.store.Get(ctx, Key(PrefixOTP, mobile.String()))
	if err != nil {
		return "", false, fmt.Errorf("failed to get OTP: %w", err)
	}
	return hash, found, nil
}

func (r *otpRepository) ClaimCode(ctx context.Context, mobile entity.MobileNumber) (string, bool, error) {
	hash, found, err := r.store.GetDel(ctx, Key(PrefixOTP, mobile.String()))
	if err != nil {
		return "", false, fmt.Errorf("failed to claim OTP: %w", err)
	}
	return hash, found, nil
}

func (r *otpRepository) SetLastSent(ctx context.Context, mobile entity.MobileNumber, at time.Time, ttl time.Duration) error {
	value := strconv.FormatInt(at.Unix(), 10)
	if err := r.store.Set(ctx, Key(PrefixLastSent, mobile.String()), value, ttl); err != nil {
		return fmt.Errorf("failed to record last sent time: %w", err)
	}
	return nil
}

func (r *otpRepository) GetLastSent(ctx context.Context, mobile entity.MobileNumber) (time.Time, error) {
	raw, found, err := r.store.Get(ctx, Key(PrefixLastSent, mobile.String()))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sent time: %w", err)
	}
	if !found {
		return time.Time{}, nil
	}

	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.Unix(seconds, 0), nil
}

func (r *otpRepository) SaveVerified(ctx context.Context, mobile entity.MobileNumber, marker entity.VerifiedMarker, ttl time.Duration) error {
	if err := r.store.SetJSON(ctx, Key(PrefixVerified, mobile.String()), marker, ttl); err != nil {
		return fmt.Errorf("failed to save verification marker: %w", err)
	}
	return nil
}

func (r *otpRepository) GetVerified(ctx context.Context, mobile entity.MobileNumber) (*entity.VerifiedMarker, error) {
	var marker entity.VerifiedMarker
	found, err := r.store.GetJSON(ctx, Key(PrefixVerified, mobile.String()), &marker)
	if err != nil {
		return nil, fmt.Errorf("failed to get verification marker: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &marker, nil
}

func (r *otpRepository) ConsumeVerified(ctx context.Context, mobile entity.MobileNumber) (*entity.VerifiedMarker, error) {
	raw, found, err := r.store.GetDel(ctx, Key(PrefixVerified, mobile.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to consume verification marker: %w", err)
	}
	if !found {
		return nil, nil
	}

	var marker entity.VerifiedMarker
	if err := decodeJSON(raw, &marker); err != nil {
		return nil, nil
	}
	return &marker, nil
}

func (r *otpRepository) MarkPasswordReset(ctx context.Context, mobile entity.MobileNumber, at time.Time, ttl time.Duration) error {
	marker := entity.PasswordResetMarker{ResetTime: at.UnixMilli(), Success: true}
	if err := r.store.SetJSON(ctx, Key(PrefixPasswordReset, mobile.String()), marker, ttl); err != nil {
		return fmt.Errorf("failed to mark password reset: %w", err)
	}
	return nil
}

func (r *otpRepository) HasRecentPasswordReset(ctx context.Context, mobile entity.MobileNumber) (bool, error) {
	_, found, err := r.store.Get(ctx, Key(PrefixPasswordReset, mobile.String()))
	if err != nil {
		return false, fmt.Errorf("failed to check password reset: %w", err)
	}
	return found, nil
}
