package controller

import (
	"net/http"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/service"
	"github.com/arjunhariram/ent-web/validator"

	"github.com/labstack/echo/v4"
)

// AuthController handles authentication-related operations
type AuthController struct {
	userService     service.UserService
	passwordService service.PasswordService
	jwtService      service.JWTService
	validator       *validator.Validator
	logger          *logger.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(
	userService service.UserService,
	passwordService service.PasswordService,
	jwtService service.JWTService,
	validator *validator.Validator,
	logger *logger.Logger,
) *AuthController {
	return &AuthController{
		userService:     userService,
		passwordService: passwordService,
		jwtService:      jwtService,
		validator:       validator,
		logger:          logger,
	}
}

// Login exchanges a mobile number and password for a JWT
// @Summary Login
// @Description Authenticate with mobile number and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.LoginRequest true "Credentials"
// @Success 200 {object} entity.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/login [post]
func (c *AuthController) Login(ctx echo.Context) error {
	var req entity.LoginRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		c.logger.Warnw("Invalid login request", "error", body["details"])
		return ctx.JSON(http.StatusBadRequest, body)
	}

	mobile, err := entity.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		return invalidMobile(ctx)
	}

	result, err := c.userService.Login(ctx.Request().Context(), mobile, req.Password)
	if err != nil {
		return internalError(ctx, "Failed to login")
	}

	if result.User == nil {
		return ctx.JSON(statusForReason(result.Reason), map[string]interface{}{
			"success": false,
			"message": result.Message,
		})
	}

	auth, err := c.jwtService.GenerateToken(result.User)
	if err != nil {
		c.logger.Errorw("Failed to generate token", "user_id", result.User.ID, "error", err)
		return internalError(ctx, "Failed to generate authentication token")
	}
	auth.Message = result.Message

	return ctx.JSON(http.StatusOK, auth)
}

// Signout revokes the bearer token of the current session
// @Summary Sign out
// @Description Blacklist the current JWT until it expires
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/signout [post]
func (c *AuthController) Signout(ctx echo.Context) error {
	tokenString, ok := ctx.Get(ContextTokenKey).(string)
	if !ok || tokenString == "" {
		return unauthorized(ctx, "Missing Authorization header")
	}

	if err := c.jwtService.RevokeToken(ctx.Request().Context(), tokenString); err != nil {
		c.logger.Errorw("Failed to revoke token", "error", err)
		return internalError(ctx, "Sign out process encountered an issue")
	}

	if user, ok := ctx.Get(ContextUserKey).(*entity.User); ok {
		c.logger.Infow("User signed out", "user_id", user.ID)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Successfully signed out",
	})
}

// ChangePassword replaces the password of the signed-in user
// @Summary Change password
// @Description Change password after confirming the current one
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body entity.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} entity.PasswordResponse
// @Failure 400 {object} entity.PasswordResponse
// @Failure 401 {object} entity.PasswordResponse
// @Failure 404 {object} entity.PasswordResponse
// @Failure 500 {object} map[string]interface{}
// @Router /auth/change-password [post]
func (c *AuthController) ChangePassword(ctx echo.Context) error {
	user, ok := ctx.Get(ContextUserKey).(*entity.User)
	if !ok {
		return unauthorized(ctx, "Missing authenticated user")
	}

	var req entity.ChangePasswordRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		c.logger.Warnw("Invalid change password request", "user_id", user.ID, "error", body["details"])
		return ctx.JSON(http.StatusBadRequest, body)
	}

	result, err := c.passwordService.ChangePassword(
		ctx.Request().Context(),
		user.MobileNumber,
		req.CurrentPassword,
		req.NewPassword,
		req.ConfirmPassword,
	)
	if err != nil {
		return internalError(ctx, "Failed to change password")
	}

	return ctx.JSON(statusForReason(result.Reason), passwordResponse(result))
}

// CheckUserExists reports whether a number is registered
// @Summary Check user exists
// @Description Look up whether a mobile number has an account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.MobileNumberRequest true "Mobile number"
// @Success 200 {object} entity.UserExistsResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} entity.UserExistsResponse
// @Router /auth/check-user-exists [post]
func (c *AuthController) CheckUserExists(ctx echo.Context) error {
	var req entity.MobileNumberRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		return ctx.JSON(http.StatusBadRequest, body)
	}

	mobile, err := entity.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		return invalidMobile(ctx)
	}

	exists, err := c.userService.Exists(ctx.Request().Context(), mobile)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, entity.UserExistsResponse{
			Exists:  false,
			Message: "Server error while checking user",
		})
	}

	message := "No account found with this mobile number"
	if exists {
		message = "User found"
	}
	return ctx.JSON(http.StatusOK, entity.UserExistsResponse{Exists: exists, Message: message})
}
