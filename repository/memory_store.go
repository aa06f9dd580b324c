package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryKVStore is an in-process KVStore. It backs RedisKVStore while Redis is
// unreachable and is usable on its own in tests and single-instance setups.
type MemoryKVStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryKVStore creates an empty in-memory store
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Tests use it to move past expiries.
func (s *MemoryKVStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// lookup returns a live entry. Callers hold s.mu.
func (s *MemoryKVStore) lookup(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(s.now()) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryKVStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *MemoryKVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryKVStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

// Incr reads, increments and writes under the lock so concurrent callers see
// the same exact-count semantics as Redis INCR. An existing expiry is kept.
func (s *MemoryKVStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	entry, ok := s.lookup(key)
	if ok {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to increment %s: value is not an integer", key)
		}
		current = parsed
	}

	current++
	entry.value = strconv.FormatInt(current, 10)
	s.entries[key] = entry
	return current, nil
}

// Decr lowers an existing counter by one without going below zero. A missing
// key stays missing and reports 0.
func (s *MemoryKVStore) Decr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return 0, nil
	}
	current, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement %s: value is not an integer", key)
	}
	if current <= 0 {
		return current, nil
	}

	current--
	entry.value = strconv.FormatInt(current, 10)
	s.entries[key] = entry
	return current, nil
}

func (s *MemoryKVStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(s.entries, key)
		return nil
	}
	entry.expiresAt = s.expiry(ttl)
	s.entries[key] = entry
	return nil
}

func (s *MemoryKVStore) TTL(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok || entry.expiresAt.IsZero() {
		return -1, nil
	}
	return int(entry.expiresAt.Sub(s.now()).Round(time.Second) / time.Second), nil
}

// GetDel returns the value and removes the key in one step, so only one
// caller can claim it.
func (s *MemoryKVStore) GetDel(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	delete(s.entries, key)
	return entry.value, true, nil
}

func (s *MemoryKVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryKVStore) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	return decodeJSON(raw, dst) == nil, nil
}

func (s *MemoryKVStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := encodeJSON(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}

func (s *MemoryKVStore) Ping(context.Context) error {
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryKVStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until purged.
func (s *MemoryKVStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
