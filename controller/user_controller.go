package controller

import (
	"errors"
	"net/http"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/repository"
	"github.com/arjunhariram/ent-web/service"
	"github.com/arjunhariram/ent-web/validator"

	"github.com/labstack/echo/v4"
)

// UserController handles account password and profile requests
type UserController struct {
	passwordService service.PasswordService
	userService     service.UserService
	validator       *validator.Validator
	logger          *logger.Logger
}

// NewUserController creates a new user controller instance
func NewUserController(passwordService service.PasswordService, userService service.UserService, validator *validator.Validator, logger *logger.Logger) *UserController {
	return &UserController{
		passwordService: passwordService,
		userService:     userService,
		validator:       validator,
		logger:          logger,
	}
}

// SetPassword creates the account of a verified number
// @Summary Set password
// @Description Create an account after registration OTP verification
// @Tags Users
// @Accept json
// @Produce json
// @Param request body entity.SetPasswordRequest true "Mobile number and password"
// @Success 201 {object} entity.PasswordResponse
// @Failure 400 {object} entity.PasswordResponse
// @Failure 403 {object} entity.PasswordResponse
// @Failure 500 {object} map[string]interface{}
// @Router /user/set-password [post]
func (c *UserController) SetPassword(ctx echo.Context) error {
	var req entity.SetPasswordRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		c.logger.Warnw("Invalid set password request", "error", body["details"])
		return ctx.JSON(http.StatusBadRequest, body)
	}

	mobile, err := entity.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		return invalidMobile(ctx)
	}

	result, err := c.passwordService.SetPassword(ctx.Request().Context(), mobile, req.Password, req.ConfirmPassword)
	if err != nil {
		return internalError(ctx, "Failed to set password")
	}

	status := statusForReason(result.Reason)
	if result.Success {
		status = http.StatusCreated
	}
	return ctx.JSON(status, passwordResponse(result))
}

// ResetPassword replaces the password of a verified registered number
// @Summary Reset password
// @Description Replace the password after reset OTP verification
// @Tags Users
// @Accept json
// @Produce json
// @Param request body entity.SetPasswordRequest true "Mobile number and password"
// @Success 200 {object} entity.PasswordResponse
// @Failure 400 {object} entity.PasswordResponse
// @Failure 403 {object} entity.PasswordResponse
// @Failure 404 {object} entity.PasswordResponse
// @Failure 500 {object} map[string]interface{}
// @Router /user/reset-password [post]
func (c *UserController) ResetPassword(ctx echo.Context) error {
	var req entity.SetPasswordRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		c.logger.Warnw("Invalid reset password request", "error", body["details"])
		return ctx.JSON(http.StatusBadRequest, body)
	}

	mobile, err := entity.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		return invalidMobile(ctx)
	}

	result, err := c.passwordService.ResetPassword(ctx.Request().Context(), mobile, req.Password, req.ConfirmPassword)
	if err != nil {
		return internalError(ctx, "Failed to reset password")
	}

	return ctx.JSON(statusForReason(result.Reason), passwordResponse(result))
}

// ValidatePassword checks a candidate against the password policy only
// @Summary Validate password
// @Description Report which password format rules a candidate satisfies
// @Tags Users
// @Accept json
// @Produce json
// @Param request body entity.ValidatePasswordRequest true "Candidate password"
// @Success 200 {object} entity.PasswordResponse
// @Failure 400 {object} entity.PasswordResponse
// @Router /validate/validate-password [post]
func (c *UserController) ValidatePassword(ctx echo.Context) error {
	var req entity.ValidatePasswordRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		return ctx.JSON(http.StatusBadRequest, body)
	}

	result := c.passwordService.ValidateFormat(req.Password)
	details := result.Details
	response := entity.PasswordResponse{
		Success: result.Valid,
		Message: result.Message,
		Details: &details,
	}
	if !result.Valid {
		return ctx.JSON(http.StatusBadRequest, response)
	}
	return ctx.JSON(http.StatusOK, response)
}

// Me returns the signed-in user
// @Summary Current user
// @Description Get the account behind the bearer token
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} entity.UserResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/me [get]
func (c *UserController) Me(ctx echo.Context) error {
	claimed, ok := ctx.Get(ContextUserKey).(*entity.User)
	if !ok {
		return unauthorized(ctx, "Missing authenticated user")
	}

	user, err := c.userService.GetByID(ctx.Request().Context(), claimed.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.logger.Infow("User not found", "user_id", claimed.ID)
			return ctx.JSON(http.StatusNotFound, map[string]interface{}{
				"message": "User not found",
				"details": "The requested user does not exist",
			})
		}
		return internalError(ctx, "Failed to retrieve user")
	}

	return ctx.JSON(http.StatusOK, user)
}

func passwordResponse(result *entity.PasswordResult) entity.PasswordResponse {
	return entity.PasswordResponse{
		Success: result.Success,
		Message: result.Message,
		Details: result.Details,
	}
}
