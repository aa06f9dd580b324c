package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when Redis is unreachable and the fallback is disabled.
var ErrStoreUnavailable = errors.New("key-value store unavailable")

// KVStore is the ephemeral store behind OTP records, counters and markers.
type KVStore interface {
	// Get returns found=false for a missing or expired key.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value. A ttl of 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr atomically increments an integer value and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Decr lowers an existing counter by one, never below zero and never
	// creating the key. The expiry is kept.
	Decr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the seconds remaining, or -1 if the key is absent or has no expiry.
	TTL(ctx context.Context, key string) (int, error)
	Delete(ctx context.Context, key string) error
	// GetDel reads and removes key atomically.
	GetDel(ctx context.Context, key string) (value string, found bool, err error)
	// GetJSON decodes into dst. A malformed payload is reported as not found.
	GetJSON(ctx context.Context, key string, dst any) (found bool, err error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// decrIfPresent keeps DECR from creating a counter without expiry or pushing it below zero.
var decrIfPresent = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  return 0
end
if tonumber(current) <= 0 then
  return tonumber(current)
end
return redis.call('DECR', KEYS[1])
`)

// RedisKVStore implements KVStore on Redis and serves operations from an
// in-memory store while Redis is unreachable. Writes made to the fallback are
// not copied back when Redis recovers.
type RedisKVStore struct {
	client         *redis.Client
	fallback       *MemoryKVStore
	useFallback    bool
	commandTimeout time.Duration
	healthInterval time.Duration
	logger         *logger.Logger

	state     atomic.Int32
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewRedisKVStore wraps client. The client must not be shared with other stores
// because a connection-state hook is installed on it.
func NewRedisKVStore(client *redis.Client, cfg config.Redis, logger *logger.Logger) *RedisKVStore {
	s := &RedisKVStore{
		client:         client,
		fallback:       NewMemoryKVStore(),
		useFallback:    cfg.UseFallback,
		commandTimeout: cfg.CommandTimeout,
		healthInterval: cfg.HealthCheckInterval,
		logger:         logger,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	if s.commandTimeout <= 0 {
		s.commandTimeout = 2 * time.Second
	}
	if s.healthInterval <= 0 {
		s.healthInterval = 10 * time.Second
	}

	s.state.Store(int32(StateConnecting))
	metrics.KVStoreState.Set(float64(StateConnecting))
	client.AddHook(connStateHook{store: s})

	return s
}

// Fallback exposes the in-memory store so the cleanup routine can purge it.
func (s *RedisKVStore) Fallback() *MemoryKVStore {
	return s.fallback
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.run(ctx, "get", func(ctx context.Context) error {
		v, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	}, func() error {
		var err error
		value, found, err = s.fallback.Get(ctx, key)
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, found, nil
}

func (s *RedisKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := s.run(ctx, "set", func(ctx context.Context) error {
		return s.client.Set(ctx, key, value, ttl).Err()
	}, func() error {
		return s.fallback.Set(ctx, key, value, ttl)
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisKVStore) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.run(ctx, "incr", func(ctx context.Context) error {
		var err error
		n, err = s.client.Incr(ctx, key).Result()
		return err
	}, func() error {
		var err error
		n, err = s.fallback.Incr(ctx, key)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisKVStore) Decr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.run(ctx, "decr", func(ctx context.Context) error {
		var err error
		n, err = decrIfPresent.Run(ctx, s.client, []string{key}).Int64()
		return err
	}, func() error {
		var err error
		n, err = s.fallback.Decr(ctx, key)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to decrement %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisKVStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := s.run(ctx, "expire", func(ctx context.Context) error {
		return s.client.Expire(ctx, key, ttl).Err()
	}, func() error {
		return s.fallback.Expire(ctx, key, ttl)
	})
	if err != nil {
		return fmt.Errorf("failed to expire %s: %w", key, err)
	}
	return nil
}

func (s *RedisKVStore) TTL(ctx context.Context, key string) (int, error) {
	seconds := -1
	err := s.run(ctx, "ttl", func(ctx context.Context) error {
		d, err := s.client.TTL(ctx, key).Result()
		if err != nil {
			return err
		}
		// Redis reports -1 (no expiry) and -2 (missing) as negative durations
		if d >= 0 {
			seconds = int(d / time.Second)
		}
		return nil
	}, func() error {
		var err error
		seconds, err = s.fallback.TTL(ctx, key)
		return err
	})
	if err != nil {
		return -1, fmt.Errorf("failed to get ttl of %s: %w", key, err)
	}
	return seconds, nil
}

func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	err := s.run(ctx, "delete", func(ctx context.Context) error {
		return s.client.Del(ctx, key).Err()
	}, func() error {
		return s.fallback.Delete(ctx, key)
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisKVStore) GetDel(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.run(ctx, "getdel", func(ctx context.Context) error {
		v, err := s.client.GetDel(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	}, func() error {
		var err error
		value, found, err = s.fallback.GetDel(ctx, key)
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to getdel %s: %w", key, err)
	}
	return value, found, nil
}

func (s *RedisKVStore) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := decodeJSON(raw, dst); err != nil {
		s.logger.Warnw("Ignoring malformed JSON value", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *RedisKVStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := encodeJSON(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}

// Ping checks Redis itself and never falls back. Used for health reporting.
func (s *RedisKVStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// run executes remote against Redis when it is believed reachable and local
// against the fallback otherwise. Redis reply errors are returned unchanged.
func (s *RedisKVStore) run(ctx context.Context, op string, remote func(ctx context.Context) error, local func() error) error {
	if !s.State().Available() {
		return s.runFallback(op, local)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	err := remote(cmdCtx)
	cancel()

	if err == nil || !s.isOutage(ctx, err) {
		return err
	}

	s.logger.Warnw("Redis unreachable, switching to in-memory store", "operation", op, "error", err)
	s.setState(StateReconnecting)
	return s.runFallback(op, local)
}

func (s *RedisKVStore) runFallback(op string, local func() error) error {
	if !s.useFallback {
		return ErrStoreUnavailable
	}
	metrics.KVFallbackOperationsTotal.WithLabelValues(op).Inc()
	return local()
}

// isOutage separates transport failures from Redis replies and caller cancellation.
func (s *RedisKVStore) isOutage(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var replyErr redis.Error
	return !errors.As(err, &replyErr)
}

func encodeJSON(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return string(raw), nil
}

func decodeJSON(raw string, dst any) error {
	return json.Unmarshal([]byte(raw), dst)
}
