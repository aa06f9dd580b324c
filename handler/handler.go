package handler

import (
	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/controller"
	_ "github.com/arjunhariram/ent-web/docs" // Import for swagger docs
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RegisterRoutes registers all HTTP routes and middleware
func RegisterRoutes(
	e *echo.Echo,
	otpController *controller.OTPController,
	userController *controller.UserController,
	authController *controller.AuthController,
	healthController *controller.HealthController,
	jwtService service.JWTService,
	cfg *config.Config,
	logger *logger.Logger,
) {
	e.IPExtractor = ClientIPExtractor(cfg.HTTPServer, logger)

	e.Use(middleware.Recover())
	e.Use(CORSMiddleware(cfg.HTTPServer.AllowOrigins))
	e.Use(RequestLoggerMiddleware(logger))
	if cfg.Metrics.Enabled {
		e.Use(PrometheusMiddleware())
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// System endpoints
	e.GET("/", healthController.ServiceInfo)

	if cfg.Swagger.Enabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := e.Group("/api", RateLimitMiddleware(cfg.RateLimit, logger))
	api.GET("/health", healthController.HealthCheck)

	validate := api.Group("/validate")
	validate.POST("/validate-mobile", otpController.ValidateMobile)
	validate.POST("/validate-password", userController.ValidatePassword)

	user := api.Group("/user")
	user.POST("/create-account", otpController.CreateAccount)
	user.POST("/resend-otp", otpController.ResendOTP)
	user.POST("/verify-otp", otpController.VerifyOTP)
	user.POST("/set-password", userController.SetPassword)
	user.POST("/reset-password", userController.ResetPassword)

	otp := api.Group("/otp")
	otp.POST("/verify", otpController.VerifyOTP)
	otp.GET("/status", otpController.Status)
	otp.GET("/ip-status", otpController.IPStatus)

	auth := api.Group("/auth")
	auth.POST("/login", authController.Login)
	auth.POST("/forgot-password", otpController.ForgotPassword)
	auth.POST("/check-user-exists", authController.CheckUserExists)

	// Authenticated routes
	jwtAuth := JWTMiddleware(jwtService, logger)
	auth.POST("/signout", authController.Signout, jwtAuth)
	auth.POST("/change-password", authController.ChangePassword, jwtAuth)
	auth.GET("/me", userController.Me, jwtAuth)
}
