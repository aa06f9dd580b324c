package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/repository"
	"github.com/arjunhariram/ent-web/test"
)

const (
	testMobile = entity.MobileNumber("9123456789")
	testIP     = "203.0.113.7"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeUserRepo is an in-memory UserRepository keeping password history like the SQL one
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[entity.MobileNumber]*entity.User
	history map[entity.MobileNumber][]string // newest first
	nextID  int
	keep    int
	clock   *fakeClock
	err     error
	// writeErr fails Create and UpdatePassword only
	writeErr error
}

func newFakeUserRepo(clock *fakeClock, keep int) *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[entity.MobileNumber]*entity.User),
		history: make(map[entity.MobileNumber][]string),
		nextID:  1,
		keep:    keep,
		clock:   clock,
	}
}

func (r *fakeUserRepo) add(mobile entity.MobileNumber, hash string, history ...string) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := &entity.User{
		ID:           r.nextID,
		MobileNumber: mobile,
		PasswordHash: hash,
		CreatedAt:    r.clock.Now(),
		UpdatedAt:    r.clock.Now(),
	}
	r.nextID++
	r.users[mobile] = user
	r.history[mobile] = history
	return user
}

func (r *fakeUserRepo) GetByMobileNumber(_ context.Context, mobile entity.MobileNumber) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.users[mobile]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, user := range r.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Exists(_ context.Context, mobile entity.MobileNumber) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.users[mobile]
	return ok, nil
}

func (r *fakeUserRepo) Create(_ context.Context, mobile entity.MobileNumber, passwordHash string) (*entity.User, error) {
	r.mu.Lock()
	if r.err != nil || r.writeErr != nil {
		r.mu.Unlock()
		if r.err != nil {
			return nil, r.err
		}
		return nil, r.writeErr
	}
	if _, ok := r.users[mobile]; ok {
		r.mu.Unlock()
		return nil, repository.ErrAlreadyRegistered
	}
	r.mu.Unlock()
	return r.add(mobile, passwordHash), nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, mobile entity.MobileNumber, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.writeErr != nil {
		return r.writeErr
	}
	user, ok := r.users[mobile]
	if !ok {
		return repository.ErrUserNotFound
	}

	history := append([]string{user.PasswordHash}, r.history[mobile]...)
	if len(history) > r.keep {
		history = history[:r.keep]
	}
	r.history[mobile] = history
	user.PasswordHash = passwordHash
	user.UpdatedAt = r.clock.Now()
	return nil
}

func (r *fakeUserRepo) RecentPasswordHashes(_ context.Context, mobile entity.MobileNumber, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	history := r.history[mobile]
	if len(history) > limit {
		history = history[:limit]
	}
	return append([]string(nil), history...), nil
}

// failingSetStore fails every Set whose key starts with prefix
type failingSetStore struct {
	repository.KVStore
	prefix string
}

func (s failingSetStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if strings.HasPrefix(key, s.prefix) {
		return errors.New("write refused")
	}
	return s.KVStore.Set(ctx, key, value, ttl)
}

type recordingSender struct {
	mu    sync.Mutex
	codes map[entity.MobileNumber][]string
}

func (s *recordingSender) Send(_ context.Context, mobile entity.MobileNumber, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = make(map[entity.MobileNumber][]string)
	}
	s.codes[mobile] = append(s.codes[mobile], code)
	return nil
}

func (s *recordingSender) total(mobile entity.MobileNumber) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes[mobile])
}

func (s *recordingSender) last(mobile entity.MobileNumber) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.codes[mobile]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

// testEnv wires the OTP and password services over a memory store and a shared fake clock
type testEnv struct {
	cfg       *config.Config
	clock     *fakeClock
	store     *repository.MemoryKVStore
	users     *fakeUserRepo
	sender    *recordingSender
	otpRepo   repository.OTPRepository
	guard     *abuseGuard
	issuer    *otpIssuer
	otp       *otpService
	passwords *passwordService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore lets wrap sit between the services and the memory store
func newTestEnvWithStore(t *testing.T, wrap func(repository.KVStore) repository.KVStore) *testEnv {
	t.Helper()

	cfg := test.NewConfig()
	log := test.GetTestLogger()
	clock := newFakeClock()

	store := repository.NewMemoryKVStore()
	store.SetClock(clock.Now)
	var kv repository.KVStore = store
	if wrap != nil {
		kv = wrap(store)
	}

	users := newFakeUserRepo(clock, cfg.Password.HistorySize)
	sender := &recordingSender{}
	otpRepo := repository.NewOTPRepository(kv)

	guard := NewAbuseGuard(kv, cfg, log).(*abuseGuard)
	guard.now = clock.Now

	issuer := NewOTPIssuer(otpRepo, cfg.OTP, log).(*otpIssuer)
	issuer.now = clock.Now

	otp := NewOTPService(issuer, guard, otpRepo, users, sender, store, cfg, log).(*otpService)
	otp.now = clock.Now

	passwords := NewPasswordService(users, otpRepo, cfg.Password, log).(*passwordService)
	passwords.now = clock.Now

	return &testEnv{
		cfg:       cfg,
		clock:     clock,
		store:     store,
		users:     users,
		sender:    sender,
		otpRepo:   otpRepo,
		guard:     guard,
		issuer:    issuer,
		otp:       otp,
		passwords: passwords,
	}
}
