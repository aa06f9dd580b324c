package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Application struct {
	GracefulShutdownTimeout time.Duration
	CleanupInterval         time.Duration
}

type HTTPServer struct {
	Port         int
	AllowOrigins []string
	// TrustedProxies are the CIDRs or IPs whose X-Forwarded-For is believed.
	// Empty means the client IP is the connection's remote address.
	TrustedProxies []string
}

// TrustedProxyNets parses TrustedProxies. A bare IP is taken as a single-host range.
func (h HTTPServer) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(h.TrustedProxies))
	for _, entry := range h.TrustedProxies {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		nets = append(nets, ipNet)
	}
	return nets, nil
}

type Database struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MigrationsPath string
}

type Redis struct {
	Host                string
	Port                int
	Password            string
	DB                  int
	UseFallback         bool
	DialTimeout         time.Duration
	CommandTimeout      time.Duration
	MaxRetries          int
	HealthCheckInterval time.Duration
}

type Logger struct {
	Level string
	Mode  string // development or production
}

type Swagger struct {
	Enabled bool `json:"enabled"`
}

type JWT struct {
	Secret         string
	ExpirationTime time.Duration
}

type OTP struct {
	ExpirationTime   time.Duration
	HashCost         int
	MaxRequests      int
	RequestWindow    time.Duration
	CooldownDuration time.Duration
	ResendInterval   time.Duration
	ResendWindow     time.Duration
	// ExposeCode returns the plaintext code in API responses. Development only.
	ExposeCode bool
}

type Verification struct {
	RegistrationTTL  time.Duration
	PasswordResetTTL time.Duration
}

type RateLimit struct {
	MaxIncorrectAttempts   int
	MaxIncorrectIPAttempts int
	LockoutDuration        time.Duration
	IPMaxRequests          int
	IPRequestWindow        time.Duration
	IPBlockDuration        time.Duration
	BurstRate              float64
	Burst                  int
}

type Password struct {
	MinLength        int
	RequireLowercase bool
	HashCost         int
	HistorySize      int
	ResetCooldown    time.Duration
}

type Metrics struct {
	Enabled bool
}

type Config struct {
	Application  Application
	HTTPServer   HTTPServer
	Database     Database
	Redis        Redis
	Logger       Logger
	Swagger      Swagger
	JWT          JWT
	OTP          OTP
	Verification Verification
	RateLimit    RateLimit
	Password     Password
	Metrics      Metrics
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Application: Application{
			GracefulShutdownTimeout: parseDurationWithDefault("APPLICATION_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
			CleanupInterval:         parseDurationWithDefault("APPLICATION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		HTTPServer: HTTPServer{
			Port:         parseIntWithDefault("HTTP_SERVER_PORT", 8080),
			AllowOrigins:   []string{getEnvWithDefault("HTTP_SERVER_ALLOW_ORIGIN", "*")},
			TrustedProxies: splitList(os.Getenv("HTTP_SERVER_TRUSTED_PROXIES")),
		},
		Database: Database{
			Host:           getEnvWithDefault("DATABASE_HOST", "db"),
			Port:           parseIntWithDefault("DATABASE_PORT", 5432),
			User:           getEnvWithDefault("DATABASE_USER", "ent_web"),
			Password:       getEnvWithDefault("DATABASE_PASSWORD", "ent_web"),
			Name:           getEnvWithDefault("DATABASE_NAME", "ent_web"),
			SSLMode:        getEnvWithDefault("DATABASE_SSL_MODE", "disable"),
			MigrationsPath: getEnvWithDefault("DATABASE_MIGRATIONS_PATH", "./migrations"),
		},
		Logger: Logger{
			Level: getEnvWithDefault("LOGGER_LEVEL", "info"),
			Mode:  getEnvWithDefault("LOGGER_MODE", "production"),
		},
		Swagger: Swagger{
			Enabled: getEnvBoolWithDefault("SWAGGER_ENABLED", true),
		},
		JWT: JWT{
			Secret:         getEnvWithDefault("JWT_SECRET", "your-super-secret-key-change-in-production"),
			ExpirationTime: parseDurationWithDefault("JWT_EXPIRATION_TIME", 24*time.Hour),
		},
		OTP: OTP{
			ExpirationTime:   parseDurationWithDefault("OTP_EXPIRATION_TIME", 5*time.Minute),
			HashCost:         parseIntWithDefault("OTP_HASH_COST", 10),
			MaxRequests:      parseIntWithDefault("OTP_MAX_REQUESTS", 3),
			RequestWindow:    parseDurationWithDefault("OTP_REQUEST_WINDOW", 8*time.Hour),
			CooldownDuration: parseDurationWithDefault("OTP_COOLDOWN_DURATION", 4*time.Hour),
			ResendInterval:   parseDurationWithDefault("OTP_RESEND_INTERVAL", 60*time.Second),
			ResendWindow:     parseDurationWithDefault("OTP_RESEND_WINDOW", time.Hour),
			ExposeCode:       getEnvBoolWithDefault("OTP_EXPOSE_CODE", false),
		},
		Verification: Verification{
			RegistrationTTL:  parseDurationWithDefault("VERIFICATION_REGISTRATION_TTL", 10*time.Minute),
			PasswordResetTTL: parseDurationWithDefault("VERIFICATION_PASSWORD_RESET_TTL", time.Hour),
		},
		Redis: Redis{
			Host:                getEnvWithDefault("REDIS_HOST", "redis"),
			Port:                parseIntWithDefault("REDIS_PORT", 6379),
			Password:            getEnvWithDefault("REDIS_PASSWORD", ""),
			DB:                  parseIntWithDefault("REDIS_DB", 0),
			UseFallback:         getEnvBoolWithDefault("REDIS_USE_FALLBACK", true),
			DialTimeout:         parseDurationWithDefault("REDIS_DIAL_TIMEOUT", 5*time.Second),
			CommandTimeout:      parseDurationWithDefault("REDIS_COMMAND_TIMEOUT", 2*time.Second),
			MaxRetries:          parseIntWithDefault("REDIS_MAX_RETRIES", 2),
			HealthCheckInterval: parseDurationWithDefault("REDIS_HEALTH_CHECK_INTERVAL", 10*time.Second),
		},
		RateLimit: RateLimit{
			MaxIncorrectAttempts:   parseIntWithDefault("RATE_LIMIT_MAX_INCORRECT_ATTEMPTS", 4),
			MaxIncorrectIPAttempts: parseIntWithDefault("RATE_LIMIT_MAX_INCORRECT_IP_ATTEMPTS", 100),
			LockoutDuration:        parseDurationWithDefault("RATE_LIMIT_LOCKOUT_DURATION", 24*time.Hour),
			IPMaxRequests:          parseIntWithDefault("RATE_LIMIT_IP_MAX_REQUESTS", 10),
			IPRequestWindow:        parseDurationWithDefault("RATE_LIMIT_IP_REQUEST_WINDOW", time.Hour),
			IPBlockDuration:        parseDurationWithDefault("RATE_LIMIT_IP_BLOCK_DURATION", 24*time.Hour),
			BurstRate:              parseFloatWithDefault("RATE_LIMIT_BURST_RATE", 5),
			Burst:                  parseIntWithDefault("RATE_LIMIT_BURST", 20),
		},
		Password: Password{
			MinLength:        parseIntWithDefault("PASSWORD_MIN_LENGTH", 8),
			RequireLowercase: getEnvBoolWithDefault("PASSWORD_REQUIRE_LOWERCASE", false),
			HashCost:         parseIntWithDefault("PASSWORD_HASH_COST", 10),
			HistorySize:      parseIntWithDefault("PASSWORD_HISTORY_SIZE", 3),
			ResetCooldown:    parseDurationWithDefault("PASSWORD_RESET_COOLDOWN", 15*time.Minute),
		},
		Metrics: Metrics{
			Enabled: getEnvBoolWithDefault("METRICS_ENABLED", true),
		},
	}

	// Support legacy environment variables for backwards compatibility
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTPServer.Port = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the services cannot work with.
func (c *Config) Validate() error {
	var errs []error

	if c.OTP.MaxRequests <= 0 {
		errs = append(errs, fmt.Errorf("OTP_MAX_REQUESTS must be positive, got %d", c.OTP.MaxRequests))
	}
	if c.RateLimit.MaxIncorrectAttempts <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX_INCORRECT_ATTEMPTS must be positive, got %d", c.RateLimit.MaxIncorrectAttempts))
	}
	if c.RateLimit.MaxIncorrectIPAttempts <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX_INCORRECT_IP_ATTEMPTS must be positive, got %d", c.RateLimit.MaxIncorrectIPAttempts))
	}
	if c.RateLimit.IPMaxRequests <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_IP_MAX_REQUESTS must be positive, got %d", c.RateLimit.IPMaxRequests))
	}
	if c.Password.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("PASSWORD_HISTORY_SIZE must not be negative, got %d", c.Password.HistorySize))
	}
	if c.Password.MinLength <= 0 {
		errs = append(errs, fmt.Errorf("PASSWORD_MIN_LENGTH must be positive, got %d", c.Password.MinLength))
	}
	for name, cost := range map[string]int{"OTP_HASH_COST": c.OTP.HashCost, "PASSWORD_HASH_COST": c.Password.HashCost} {
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			errs = append(errs, fmt.Errorf("%s must be between %d and %d, got %d", name, bcrypt.MinCost, bcrypt.MaxCost, cost))
		}
	}
	if c.OTP.ExpirationTime <= 0 || c.OTP.CooldownDuration <= 0 || c.OTP.RequestWindow <= 0 {
		errs = append(errs, errors.New("OTP durations must be positive"))
	}
	if c.Application.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("APPLICATION_CLEANUP_INTERVAL must be positive, got %s", c.Application.CleanupInterval))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if _, err := c.HTTPServer.TrustedProxyNets(); err != nil {
		errs = append(errs, fmt.Errorf("HTTP_SERVER_TRUSTED_PROXIES: %w", err))
	}

	return errors.Join(errs...)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList reads a comma separated list, dropping blanks
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
