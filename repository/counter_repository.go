package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arjunhariram/ent-web/pkg/logger"
)

// CounterRepository is a windowed counter keyed by identity under one prefix.
// The window starts with the first increment and is not extended by later ones.
type CounterRepository interface {
	Increment(ctx context.Context, id string) (int, error)
	// Decrement takes back one increment. It never creates a counter.
	Decrement(ctx context.Context, id string) (int, error)
	// Count returns 0 for a missing counter.
	Count(ctx context.Context, id string) (int, error)
	// TTL returns the seconds until the window resets, or -1 when no counter exists.
	TTL(ctx context.Context, id string) (int, error)
	Reset(ctx context.Context, id string) error
	Prefix() string
}

// counterRepository implements CounterRepository on a KVStore
type counterRepository struct {
	store  KVStore
	prefix string
	window time.Duration
	logger *logger.Logger
}

// NewCounterRepository creates a counter under prefix whose window is window long
func NewCounterRepository(store KVStore, prefix string, window time.Duration, logger *logger.Logger) CounterRepository {
	return &counterRepository{
		store:  store,
		prefix: prefix,
		window: window,
		logger: logger,
	}
}

func (r *counterRepository) Prefix() string {
	return r.prefix
}

// Increment bumps the counter and starts the window on the first hit. A counter
// left without expiry (process died between INCR and EXPIRE) gets the window
// applied on its next increment.
func (r *counterRepository) Increment(ctx context.Context, id string) (int, error) {
	key := Key(r.prefix, id)

	n, err := r.store.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	if n == 1 {
		if err := r.store.Expire(ctx, key, r.window); err != nil {
			return int(n), fmt.Errorf("failed to set counter window: %w", err)
		}
		return int(n), nil
	}

	ttl, err := r.store.TTL(ctx, key)
	if err != nil {
		r.logger.Warnw("Failed to read counter TTL", "key", key, "error", err)
		return int(n), nil
	}
	if ttl < 0 {
		if err := r.store.Expire(ctx, key, r.window); err != nil {
			r.logger.Warnw("Failed to repair counter window", "key", key, "error", err)
		} else {
			r.logger.Infow("Set missing window on counter", "key", key, "ttl_seconds", int(r.window.Seconds()))
		}
	}

	return int(n), nil
}

func (r *counterRepository) Decrement(ctx context.Context, id string) (int, error) {
	n, err := r.store.Decr(ctx, Key(r.prefix, id))
	if err != nil {
		return 0, fmt.Errorf("failed to decrement counter: %w", err)
	}
	return int(n), nil
}

func (r *counterRepository) Count(ctx context.Context, id string) (int, error) {
	key := Key(r.prefix, id)

	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	if !found {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse counter %s: %w", key, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

func (r *counterRepository) TTL(ctx context.Context, id string) (int, error) {
	ttl, err := r.store.TTL(ctx, Key(r.prefix, id))
	if err != nil {
		return -1, fmt.Errorf("failed to read counter ttl: %w", err)
	}
	return ttl, nil
}

func (r *counterRepository) Reset(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Key(r.prefix, id)); err != nil {
		return fmt.Errorf("failed to reset counter: %w", err)
	}
	return nil
}
