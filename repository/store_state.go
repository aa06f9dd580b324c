package repository

import (
	"context"
	"net"
	"time"

	"github.com/arjunhariram/ent-web/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// ConnState is the connection state of RedisKVStore as last observed.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Available reports whether operations should be sent to Redis.
func (s ConnState) Available() bool {
	return s == StateConnecting || s == StateConnected
}

// connStateHook observes dial outcomes. It never blocks or alters commands.
type connStateHook struct {
	store *RedisKVStore
}

func (h connStateHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.store.setState(StateReconnecting)
		} else {
			h.store.setState(StateConnected)
		}
		return conn, err
	}
}

func (h connStateHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h connStateHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// State returns the current connection state.
func (s *RedisKVStore) State() ConnState {
	return ConnState(s.state.Load())
}

func (s *RedisKVStore) setState(next ConnState) {
	for {
		prev := s.State()
		if prev == StateClosed || prev == next {
			return
		}
		if s.state.CompareAndSwap(int32(prev), int32(next)) {
			metrics.KVStoreState.Set(float64(next))
			s.logger.Infow("Key-value store state changed", "from", prev.String(), "to", next.String())
			return
		}
	}
}

// Start launches the health monitor that moves the store back to Redis once it
// answers pings again. It returns immediately.
func (s *RedisKVStore) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.monitor(ctx)
	})
}

func (s *RedisKVStore) monitor(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	s.checkHealth(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

func (s *RedisKVStore) checkHealth(ctx context.Context) {
	if err := s.Ping(ctx); err != nil {
		if s.State() != StateReconnecting {
			s.logger.Warnw("Redis health check failed", "error", err)
		}
		s.setState(StateReconnecting)
		return
	}
	s.setState(StateConnected)
}

// Close stops the monitor and closes the Redis client. Safe to call more than once.
func (s *RedisKVStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		metrics.KVStoreState.Set(float64(StateClosed))
		close(s.stop)

		started := true
		s.startOnce.Do(func() { started = false })
		if started {
			<-s.done
		}

		err = s.client.Close()
		s.logger.Infow("Key-value store closed")
	})
	return err
}
