package controller

import (
	"net/http"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/validator"

	"github.com/labstack/echo/v4"
)

const invalidMobileMessage = "Please enter a valid Indian Mobile Number"

// bindRequest binds and validates req. It returns the 400 body on failure, nil otherwise.
// A malformed mobile number gets the same answer whatever else is wrong with the request.
func bindRequest(ctx echo.Context, v *validator.Validator, req interface{}) map[string]interface{} {
	if err := ctx.Bind(req); err != nil {
		return map[string]interface{}{
			"message": "Invalid request format",
			"details": err.Error(),
		}
	}

	if mobile, ok := requestMobile(req); ok && !entity.IsValidMobileNumber(mobile) {
		return invalidMobileBody()
	}

	if err := v.ValidateStruct(req); err != nil {
		return map[string]interface{}{
			"message": "Validation failed",
			"details": err.Error(),
		}
	}
	return nil
}

func requestMobile(req interface{}) (string, bool) {
	switch r := req.(type) {
	case *entity.MobileNumberRequest:
		return r.MobileNumber, true
	case *entity.VerifyOTPRequest:
		return r.MobileNumber, true
	case *entity.SetPasswordRequest:
		return r.MobileNumber, true
	case *entity.LoginRequest:
		return r.MobileNumber, true
	}
	return "", false
}

func invalidMobileBody() map[string]interface{} {
	return map[string]interface{}{
		"isValid": false,
		"message": invalidMobileMessage,
	}
}

func invalidMobile(ctx echo.Context) error {
	return ctx.JSON(http.StatusBadRequest, invalidMobileBody())
}

// statusForReason maps a business rejection to its HTTP status
func statusForReason(reason entity.Reason) int {
	switch reason {
	case entity.ReasonNone:
		return http.StatusOK
	case entity.ReasonIncorrectPassword:
		return http.StatusUnauthorized
	case entity.ReasonVerificationRequired:
		return http.StatusForbidden
	case entity.ReasonNotRegistered:
		return http.StatusNotFound
	case entity.ReasonRequestLimit,
		entity.ReasonIncorrectAttemptsBlocked,
		entity.ReasonRecentPasswordReset,
		entity.ReasonIPBlocked,
		entity.ReasonIPRequestLimit,
		entity.ReasonResendTooSoon:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

func internalError(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
		"message": message,
		"details": "Internal server error",
	})
}

// Keys under which the JWT middleware stores the caller
const (
	ContextUserKey  = "user"
	ContextTokenKey = "token"
)

func unauthorized(ctx echo.Context, details string) error {
	return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
		"message": "Unauthorized",
		"details": details,
	})
}
