package service

import (
	"context"
	"fmt"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/repository"
)

// StatusAggregator combines every limit on a mobile number into one OTPStatus
type StatusAggregator struct {
	guard   AbuseGuard
	otpRepo repository.OTPRepository
}

// NewStatusAggregator creates a new status aggregator
func NewStatusAggregator(guard AbuseGuard, otpRepo repository.OTPRepository) *StatusAggregator {
	return &StatusAggregator{guard: guard, otpRepo: otpRepo}
}

// CheckStatus releases an elapsed cooldown first, so a number whose cooldown
// ran out is eligible again on the next look.
func (a *StatusAggregator) CheckStatus(ctx context.Context, mobile entity.MobileNumber) (*entity.OTPStatus, error) {
	if err := a.guard.ReleaseElapsedCooldown(ctx, mobile); err != nil {
		return nil, err
	}

	limit, err := a.guard.RequestLimit(ctx, mobile)
	if err != nil {
		return nil, err
	}

	attempts, err := a.guard.IncorrectAttempts(ctx, mobile)
	if err != nil {
		return nil, err
	}

	recentReset, err := a.otpRepo.HasRecentPasswordReset(ctx, mobile)
	if err != nil {
		return nil, err
	}

	return &entity.OTPStatus{
		IsEligibleForOTP:             limit.WithinLimit && !attempts.Blocked && !recentReset,
		HasRecentPasswordReset:       recentReset,
		IsWithinOTPRequestLimit:      limit.WithinLimit,
		IsBlockedByIncorrectAttempts: attempts.Blocked,
		RemainingOTPRequests:         limit.Remaining,
		RemainingIncorrectAttempts:   attempts.Remaining,
		BlockTimeRemaining:           attempts.BlockTimeRemaining,
		CooldownRemaining:            limit.CooldownRemaining,
	}, nil
}

// OTPStatusMessage renders the user-facing explanation of status.
func OTPStatusMessage(status *entity.OTPStatus) string {
	switch {
	case status == nil:
		return "Unable to determine OTP status."
	case status.HasRecentPasswordReset:
		return "Your account has a recent password reset. Please try again later."
	case !status.IsWithinOTPRequestLimit:
		if status.CooldownRemaining > 0 {
			return "You've reached the maximum number of OTP requests. Please try again in " +
				formatHoursMinutes(status.CooldownRemaining) + "."
		}
		return "You've reached the maximum number of OTP requests. Please try again later."
	case status.IsBlockedByIncorrectAttempts:
		return "Your account is temporarily blocked due to too many incorrect attempts. Try again in " +
			formatHoursMinutes(status.BlockTimeRemaining) + "."
	case status.IsEligibleForOTP:
		return fmt.Sprintf("You can request an OTP. You have %d OTP requests remaining.", status.RemainingOTPRequests)
	default:
		return "Unable to determine OTP status."
	}
}

// IPStatusMessage renders the user-facing explanation of an IP status
func IPStatusMessage(status *entity.IPStatus) string {
	switch {
	case status == nil:
		return "Unable to determine request status."
	case status.IsBlocked:
		return "Your IP address is temporarily blocked due to suspicious activity. Try again in " +
			formatHoursMinutes(status.BlockTimeRemaining) + "."
	case !status.IsWithinRequestLimit:
		return "You've reached the maximum number of requests. Please try again later."
	case status.IsAllowedToMakeRequests:
		return fmt.Sprintf("Request allowed. You have %d requests remaining.", status.RemainingRequests)
	default:
		return "Unable to determine request status."
	}
}

// cooldownMessage is shown when issuance hits a live cooldown
func cooldownMessage(seconds int) string {
	return "OTP limit reached. Please try again in " + formatHoursMinutes(seconds) + "."
}

func formatHoursMinutes(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d hours and %d minutes", seconds/3600, (seconds%3600)/60)
}
