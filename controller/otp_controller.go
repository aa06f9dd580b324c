package controller

import (
	"net/http"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/service"
	"github.com/arjunhariram/ent-web/validator"

	"github.com/labstack/echo/v4"
)

// OTPController handles OTP-related HTTP requests
type OTPController struct {
	otpService service.OTPService
	validator  *validator.Validator
	logger     *logger.Logger
}

// NewOTPController creates a new OTP controller instance
func NewOTPController(otpService service.OTPService, validator *validator.Validator, logger *logger.Logger) *OTPController {
	return &OTPController{
		otpService: otpService,
		validator:  validator,
		logger:     logger,
	}
}

// ValidateMobile issues an OTP for registration or reset, whichever fits the number
// @Summary Send OTP
// @Description Validate the mobile number and send an OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.MobileNumberRequest true "Mobile number"
// @Success 200 {object} entity.OTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} entity.OTPResponse
// @Failure 500 {object} map[string]interface{}
// @Router /validate/validate-mobile [post]
func (c *OTPController) ValidateMobile(ctx echo.Context) error {
	return c.send(ctx, "")
}

// CreateAccount issues a registration OTP for an unregistered number
// @Summary Start registration
// @Description Send a registration OTP. Registered numbers are told to log in instead.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.MobileNumberRequest true "Mobile number"
// @Success 200 {object} entity.OTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} entity.OTPResponse
// @Failure 500 {object} map[string]interface{}
// @Router /user/create-account [post]
func (c *OTPController) CreateAccount(ctx echo.Context) error {
	return c.send(ctx, entity.PurposeRegistration)
}

// ForgotPassword issues a password reset OTP for a registered number
// @Summary Start password reset
// @Description Send a password reset OTP to a registered number
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.MobileNumberRequest true "Mobile number"
// @Success 200 {object} entity.OTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} entity.OTPResponse
// @Failure 429 {object} entity.OTPResponse
// @Failure 500 {object} map[string]interface{}
// @Router /auth/forgot-password [post]
func (c *OTPController) ForgotPassword(ctx echo.Context) error {
	return c.send(ctx, entity.PurposePasswordReset)
}

// ResendOTP issues a new code once the resend interval has passed
// @Summary Resend OTP
// @Description Resend an OTP. Resends draw from the same request budget as first sends.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.MobileNumberRequest true "Mobile number"
// @Success 200 {object} entity.OTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} entity.OTPResponse
// @Failure 500 {object} map[string]interface{}
// @Router /user/resend-otp [post]
func (c *OTPController) ResendOTP(ctx echo.Context) error {
	var req entity.MobileNumberRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		c.logger.Warnw("Invalid resend request", "error", body["details"])
		return ctx.JSON(http.StatusBadRequest, body)
	}

	mobile, err := entity.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		return invalidMobile(ctx)
	}

	result, err := c.otpService.ResendOTP(ctx.Request().Context(), mobile, ctx.RealIP())
	if err != nil {
		return internalError(ctx, "Failed to send OTP")
	}

	return c.sendResponse(ctx, result)
}

func (c *OTPController) send(ctx echo.Context, purpose entity.Purpose) error {
	var req entity.MobileNumberRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		c.logger.Warnw("Invalid OTP request", "error", body["details"])
		return ctx.JSON(http.StatusBadRequest, body)
	}

	mobile, err := entity.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		return invalidMobile(ctx)
	}

	result, err := c.otpService.SendOTP(ctx.Request().Context(), mobile, ctx.RealIP(), purpose)
	if err != nil {
		return internalError(ctx, "Failed to send OTP")
	}

	return c.sendResponse(ctx, result)
}

func (c *OTPController) sendResponse(ctx echo.Context, result *entity.SendOTPResult) error {
	status := statusForReason(result.Reason)
	// Registered numbers on the registration flow get a plain answer, not an error
	if result.Reason == entity.ReasonAlreadyRegistered {
		status = http.StatusOK
	}

	return ctx.JSON(status, entity.OTPResponse{
		IsValid:            result.Sent,
		Message:            result.Message,
		OTP:                result.Code,
		ResendAttemptsLeft: result.ResendAttemptsLeft,
		OTPsRemaining:      result.OTPsRemaining,
		TimeRemaining:      result.RetryAfter,
	})
}

// VerifyOTP checks a submitted code and marks the number verified on success
// @Summary Verify OTP
// @Description Verify an OTP. Success authorizes one password set or reset.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.VerifyOTPRequest true "Mobile number and OTP"
// @Success 200 {object} entity.VerifyOTPResponse
// @Failure 400 {object} entity.VerifyOTPResponse
// @Failure 429 {object} entity.VerifyOTPResponse
// @Failure 500 {object} map[string]interface{}
// @Router /user/verify-otp [post]
func (c *OTPController) VerifyOTP(ctx echo.Context) error {
	var req entity.VerifyOTPRequest
	if body := bindRequest(ctx, c.validator, &req); body != nil {
		c.logger.Warnw("Invalid verify request", "error", body["details"])
		return ctx.JSON(http.StatusBadRequest, body)
	}

	mobile, err := entity.NormalizeMobileNumber(req.MobileNumber)
	if err != nil {
		return invalidMobile(ctx)
	}

	result, err := c.otpService.VerifyOTP(ctx.Request().Context(), mobile, req.OTP, ctx.RealIP())
	if err != nil {
		return internalError(ctx, "Failed to verify OTP")
	}

	return ctx.JSON(statusForReason(result.Reason), entity.VerifyOTPResponse{
		IsValid:            result.Verified,
		Message:            result.Message,
		Purpose:            result.Purpose,
		RemainingAttempts:  result.RemainingAttempts,
		BlockTimeRemaining: result.BlockTimeRemaining,
	})
}

// Status reports every limit on a mobile number
// @Summary OTP status
// @Description Aggregate request, cooldown, incorrect-attempt and reset limits for a number
// @Tags OTP
// @Produce json
// @Param mobileNumber query string true "Mobile number"
// @Success 200 {object} entity.OTPStatusResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /otp/status [get]
func (c *OTPController) Status(ctx echo.Context) error {
	mobile, err := entity.NormalizeMobileNumber(ctx.QueryParam("mobileNumber"))
	if err != nil {
		return invalidMobile(ctx)
	}

	status, err := c.otpService.CheckStatus(ctx.Request().Context(), mobile)
	if err != nil {
		return internalError(ctx, "Unable to determine OTP status.")
	}

	return ctx.JSON(http.StatusOK, entity.OTPStatusResponse{
		OTPStatus: *status,
		Message:   service.OTPStatusMessage(status),
	})
}

// IPStatus reports the request limits of the calling address
// @Summary IP status
// @Description Request budget and block state of the caller's IP address
// @Tags OTP
// @Produce json
// @Success 200 {object} entity.IPStatusResponse
// @Failure 500 {object} map[string]interface{}
// @Router /otp/ip-status [get]
func (c *OTPController) IPStatus(ctx echo.Context) error {
	status, err := c.otpService.CheckIPStatus(ctx.Request().Context(), ctx.RealIP())
	if err != nil {
		return internalError(ctx, "Unable to determine request status.")
	}

	return ctx.JSON(http.StatusOK, entity.IPStatusResponse{
		IPStatus: *status,
		Message:  service.IPStatusMessage(status),
	})
}
