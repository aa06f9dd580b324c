package test

import (
	"fmt"
	"testing"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// NewRedis starts an in-process Redis server and a client pointed at it.
// Both are released when the test ends.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:         mr.Addr(),
		MaxRetries:   -1,
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

// NewMockDB returns a sqlx handle backed by go-sqlmock using postgres bind vars.
func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

// GetTestLogger creates a test logger
func GetTestLogger() *logger.Logger {
	log, err := logger.New("debug", "development")
	if err != nil {
		panic(fmt.Sprintf("Failed to create test logger: %v", err))
	}
	return log
}

// NewConfig returns the production defaults with cheap bcrypt costs.
func NewConfig() *config.Config {
	return &config.Config{
		Application: config.Application{
			GracefulShutdownTimeout: time.Second,
			CleanupInterval:         time.Minute,
		},
		Redis: config.Redis{
			UseFallback:         true,
			CommandTimeout:      200 * time.Millisecond,
			HealthCheckInterval: 20 * time.Millisecond,
		},
		JWT: config.JWT{
			Secret:         "test-secret",
			ExpirationTime: time.Hour,
		},
		OTP: config.OTP{
			ExpirationTime:   5 * time.Minute,
			HashCost:         bcrypt.MinCost,
			MaxRequests:      3,
			RequestWindow:    8 * time.Hour,
			CooldownDuration: 4 * time.Hour,
			ResendInterval:   60 * time.Second,
			ResendWindow:     time.Hour,
			ExposeCode:       true,
		},
		Verification: config.Verification{
			RegistrationTTL:  10 * time.Minute,
			PasswordResetTTL: time.Hour,
		},
		RateLimit: config.RateLimit{
			MaxIncorrectAttempts:   4,
			MaxIncorrectIPAttempts: 100,
			LockoutDuration:        24 * time.Hour,
			IPMaxRequests:          10,
			IPRequestWindow:        time.Hour,
			IPBlockDuration:        24 * time.Hour,
			BurstRate:              100,
			Burst:                  100,
		},
		Password: config.Password{
			MinLength:     8,
			HashCost:      bcrypt.MinCost,
			HistorySize:   3,
			ResetCooldown: 15 * time.Minute,
		},
	}
}

// MustHash bcrypt-hashes value at the minimum cost
func MustHash(t *testing.T, value string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.MinCost)
	require.NoError(t, err, "Failed to hash value")
	return string(hash)
}

// MobileNumber normalizes raw or fails the test
func MobileNumber(t *testing.T, raw string) entity.MobileNumber {
	t.Helper()

	mobile, err := entity.NormalizeMobileNumber(raw)
	require.NoError(t, err, "Invalid test mobile number %q", raw)
	return mobile
}

// AssertPasswordHash asserts that hash was produced from password
func AssertPasswordHash(t *testing.T, hash, password string) {
	t.Helper()
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)), "hash does not match password")
}
