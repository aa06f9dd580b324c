package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/controller"
	"github.com/arjunhariram/ent-web/handler"
	"github.com/arjunhariram/ent-web/migrations"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/repository"
	"github.com/arjunhariram/ent-web/service"
	"github.com/arjunhariram/ent-web/validator"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// @title Mobile OTP Authentication API
// @version 1.0
// @description OTP-gated registration, password reset and login for mobile numbers
// @contact.name API Support
// @host localhost:8080
// @BasePath /api
// @schemes http https
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
// @description Enter JWT Bearer token in format: Bearer {token}
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Mode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Infow("Starting OTP Authentication Service",
		"version", "1.0.0",
		"port", cfg.HTTPServer.Port,
		"log_level", cfg.Logger.Level,
		"log_mode", cfg.Logger.Mode,
	)

	db, err := connectDB(cfg, log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Close()

	log.Infow("Database connected successfully",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	if err := migrations.RunMigrations(db.DB, cfg.Database.MigrationsPath, log); err != nil {
		log.Fatalw("Failed to run database migrations", "error", err)
	}

	log.Infow("Database migrations completed successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis outages are absorbed by the store's in-memory fallback, so a
	// failed startup ping is not fatal.
	redisClient := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.CommandTimeout,
		WriteTimeout: cfg.Redis.CommandTimeout,
		MaxRetries:   cfg.Redis.MaxRetries,
	})
	store := repository.NewRedisKVStore(redisClient, cfg.Redis, log)
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		log.Warnw("Redis unavailable at startup", "error", err, "fallback", cfg.Redis.UseFallback)
	} else {
		log.Infow("Redis connected successfully", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	}
	store.Start(ctx)

	v := validator.New()

	// Repositories
	userRepo := repository.NewUserRepository(db, cfg.Password.HistorySize)
	otpRepo := repository.NewOTPRepository(store)

	// Services
	guard := service.NewAbuseGuard(store, cfg, log)
	issuer := service.NewOTPIssuer(otpRepo, cfg.OTP, log)
	otpService := service.NewOTPService(issuer, guard, otpRepo, userRepo, service.NewLogSender(log), store.Fallback(), cfg, log)
	passwordService := service.NewPasswordService(userRepo, otpRepo, cfg.Password, log)
	userService := service.NewUserService(userRepo, log)
	tokenService := service.NewTokenService(store, log)
	jwtService := service.NewJWTService(cfg.JWT, log, tokenService)

	// Controllers
	otpController := controller.NewOTPController(otpService, v, log)
	userController := controller.NewUserController(passwordService, userService, v, log)
	authController := controller.NewAuthController(userService, passwordService, jwtService, v, log)
	healthController := controller.NewHealthController(db, store, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = v

	handler.RegisterRoutes(e, otpController, userController, authController, healthController, jwtService, cfg, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		startCleanupRoutine(gctx, otpService, cfg.Application.CleanupInterval, log)
		return nil
	})

	serverAddr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	g.Go(func() error {
		log.Infow("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	// Wait for an interrupt signal or a failed server, then shut down
	<-gctx.Done()
	log.Infow("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Application.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Failed to shutdown server gracefully", "error", err)
	}

	if err := g.Wait(); err != nil {
		log.Errorw("Server stopped with error", "error", err)
	}

	log.Infow("Server shutdown completed successfully")
}

func connectDB(cfg *config.Config, log *logger.Logger) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var db *sqlx.DB
	var err error

	// Retry connection up to 30 times with 1 second delay
	for i := 0; i < 30; i++ {
		db, err = sqlx.Connect("postgres", connStr)
		if err == nil {
			break
		}

		log.Warnw("Database connection attempt failed", "attempt", i+1, "max_attempts", 30, "error", err)
		time.Sleep(1 * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after 30 attempts: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// startCleanupRoutine purges expired entries from the in-memory fallback store
func startCleanupRoutine(ctx context.Context, otpService service.OTPService, interval time.Duration, logger *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := otpService.CleanupExpired(ctx); err != nil {
				logger.Errorw("Failed to cleanup expired entries", "error", err)
			} else {
				logger.Debugw("Cleanup routine completed successfully")
			}
		}
	}
}
