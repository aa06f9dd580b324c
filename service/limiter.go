package service

import (
	"context"

	"github.com/arjunhariram/ent-web/repository"
)

// Limiter applies a maximum to one counter namespace.
type Limiter struct {
	counter repository.CounterRepository
	max     int
}

// NewLimiter creates a limiter allowing max hits per counter window
func NewLimiter(counter repository.CounterRepository, max int) *Limiter {
	return &Limiter{counter: counter, max: max}
}

func (l *Limiter) Max() int {
	return l.max
}

func (l *Limiter) Increment(ctx context.Context, id string) (int, error) {
	return l.counter.Increment(ctx, id)
}

func (l *Limiter) Decrement(ctx context.Context, id string) (int, error) {
	return l.counter.Decrement(ctx, id)
}

func (l *Limiter) Count(ctx context.Context, id string) (int, error) {
	return l.counter.Count(ctx, id)
}

// IsWithinLimit is true when no counter exists or it is below max.
func (l *Limiter) IsWithinLimit(ctx context.Context, id string) (bool, error) {
	count, err := l.counter.Count(ctx, id)
	if err != nil {
		return false, err
	}
	return count < l.max, nil
}

// Remaining never goes below zero.
func (l *Limiter) Remaining(ctx context.Context, id string) (int, error) {
	count, err := l.counter.Count(ctx, id)
	if err != nil {
		return 0, err
	}
	return remaining(l.max, count), nil
}

// TimeUntilReset returns seconds until the window closes, 0 when there is no counter.
func (l *Limiter) TimeUntilReset(ctx context.Context, id string) (int, error) {
	ttl, err := l.counter.TTL(ctx, id)
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *Limiter) Reset(ctx context.Context, id string) error {
	return l.counter.Reset(ctx, id)
}

func remaining(max, count int) int {
	if count >= max {
		return 0
	}
	return max - count
}
