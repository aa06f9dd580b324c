package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/controller"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/pkg/metrics"
	"github.com/arjunhariram/ent-web/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// JWTMiddleware requires a valid, unrevoked bearer token and stores the
// caller and raw token on the context
func JWTMiddleware(jwtService service.JWTService, logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				logger.Warnw("Missing Authorization header", "path", path)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"message": "Unauthorized",
					"details": "Missing Authorization header",
				})
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				logger.Warnw("Invalid Authorization header format", "path", path)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"message": "Unauthorized",
					"details": "Invalid Authorization header format",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwtService.ValidateToken(c.Request().Context(), tokenString)
			if err != nil {
				logger.Warnw("Invalid JWT token", "path", path, "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"message": "Unauthorized",
					"details": "Invalid or expired token",
				})
			}

			user, err := jwtService.GetUserFromToken(token)
			if err != nil {
				logger.Errorw("Failed to extract user from token", "path", path, "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"message": "Unauthorized",
					"details": "Invalid token claims",
				})
			}

			c.Set(controller.ContextUserKey, user)
			c.Set(controller.ContextTokenKey, tokenString)

			logger.Debugw("JWT authentication successful", "user_id", user.ID, "path", path)
			return next(c)
		}
	}
}

// CORSMiddleware creates a CORS middleware for the configured origins
func CORSMiddleware(allowOrigins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Requested-With"},
	})
}

// ClientIPExtractor decides which address c.RealIP reports. Without trusted
// proxies it is the connection's remote address and forwarding headers are
// ignored. With them, X-Forwarded-For is walked from the right and the first
// hop outside the trusted ranges wins.
func ClientIPExtractor(cfg config.HTTPServer, logger *logger.Logger) echo.IPExtractor {
	trusted, err := cfg.TrustedProxyNets()
	if err != nil {
		logger.Errorw("Ignoring trusted proxies", "error", err)
		trusted = nil
	}
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, ipNet := range trusted {
		options = append(options, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}

// RateLimitMiddleware throttles bursts per client IP before any handler runs
func RateLimitMiddleware(cfg config.RateLimit, logger *logger.Logger) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.BurstRate),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warnw("Request throttled", "ip", identifier, "path", c.Request().URL.Path)
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"message": "Too many requests. Please slow down.",
			})
		},
	})
}

// PrometheusMiddleware records request counts and latency per route
func PrometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)

			metrics.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}

// RequestLoggerMiddleware creates a request logging middleware
func RequestLoggerMiddleware(logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Infow("HTTP Request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"remote_addr", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return nil
		}
	}
}
