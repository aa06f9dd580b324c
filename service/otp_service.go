package service

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/pkg/metrics"
	"github.com/arjunhariram/ent-web/repository"
)

// OTPService interface defines OTP business operations
type OTPService interface {
	// SendOTP issues a code. An empty purpose is derived from whether the number is registered.
	SendOTP(ctx context.Context, mobile entity.MobileNumber, ip string, purpose entity.Purpose) (*entity.SendOTPResult, error)
	ResendOTP(ctx context.Context, mobile entity.MobileNumber, ip string) (*entity.SendOTPResult, error)
	VerifyOTP(ctx context.Context, mobile entity.MobileNumber, code, ip string) (*entity.VerifyOTPResult, error)
	CheckStatus(ctx context.Context, mobile entity.MobileNumber) (*entity.OTPStatus, error)
	CheckIPStatus(ctx context.Context, ip string) (*entity.IPStatus, error)
	CleanupExpired(ctx context.Context) error
}

// Purger drops expired entries from a local store
type Purger interface {
	Purge() int
}

// otpService implements OTPService interface
type otpService struct {
	issuer   OTPIssuer
	guard    AbuseGuard
	status   *StatusAggregator
	otpRepo  repository.OTPRepository
	userRepo repository.UserRepository
	sender   SMSSender
	purger   Purger
	cfg      *config.Config
	logger   *logger.Logger
	now      func() time.Time
}

// NewOTPService creates a new OTP service instance. purger may be nil.
func NewOTPService(
	issuer OTPIssuer,
	guard AbuseGuard,
	otpRepo repository.OTPRepository,
	userRepo repository.UserRepository,
	sender SMSSender,
	purger Purger,
	cfg *config.Config,
	logger *logger.Logger,
) OTPService {
	return &otpService{
		issuer:   issuer,
		guard:    guard,
		status:   NewStatusAggregator(guard, otpRepo),
		otpRepo:  otpRepo,
		userRepo: userRepo,
		sender:   sender,
		purger:   purger,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *otpService) SendOTP(ctx context.Context, mobile entity.MobileNumber, ip string, purpose entity.Purpose) (*entity.SendOTPResult, error) {
	return s.send(ctx, mobile, ip, purpose)
}

// ResendOTP applies the resend gate, then issues like SendOTP. Resends draw
// from the same request budget as first sends.
func (s *otpService) ResendOTP(ctx context.Context, mobile entity.MobileNumber, ip string) (*entity.SendOTPResult, error) {
	lastSent, err := s.otpRepo.GetLastSent(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to read last OTP send time", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}

	if !lastSent.IsZero() {
		elapsed := s.now().Sub(lastSent)
		if elapsed < s.cfg.OTP.ResendInterval {
			wait := int((s.cfg.OTP.ResendInterval - elapsed + time.Second - 1) / time.Second)
			return s.reject(mobile, entity.ReasonResendTooSoon,
				fmt.Sprintf("Please wait %d second(s) before requesting a new OTP", wait), wait, nil), nil
		}
	}

	return s.send(ctx, mobile, ip, "")
}

func (s *otpService) send(ctx context.Context, mobile entity.MobileNumber, ip string, purpose entity.Purpose) (*entity.SendOTPResult, error) {
	if ip != "" {
		ipStatus, err := s.guard.CheckIP(ctx, ip)
		if err != nil {
			s.logger.Errorw("Failed to check IP status", "ip", ip, "error", err)
			return nil, err
		}
		if ipStatus.IsBlocked {
			return s.reject(mobile, entity.ReasonIPBlocked, IPStatusMessage(ipStatus), ipStatus.BlockTimeRemaining, nil), nil
		}
		_, allowed, err := s.guard.ReserveIPRequest(ctx, ip)
		if err != nil {
			s.logger.Errorw("Failed to count IP request", "ip", ip, "error", err)
			return nil, err
		}
		if !allowed {
			overLimit := &entity.IPStatus{IsWithinRequestLimit: false}
			return s.reject(mobile, entity.ReasonIPRequestLimit, IPStatusMessage(overLimit), 0, nil), nil
		}
	}

	registered, err := s.userRepo.Exists(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to check registration", "mobile", mobile.Masked(), "error", err)
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}

	sentMessage := "OTP sent successfully"
	switch purpose {
	case entity.PurposeRegistration:
		if registered {
			return s.reject(mobile, entity.ReasonAlreadyRegistered,
				"This mobile number is already registered. Please login instead.", 0, nil), nil
		}
		sentMessage = "Mobile number is valid and not registered. Proceed with OTP validation."
	case entity.PurposePasswordReset:
		if !registered {
			return s.reject(mobile, entity.ReasonNotRegistered, "No account linked with this mobile number", 0, nil), nil
		}
		sentMessage = "OTP sent to your mobile number"
	default:
		purpose = purposeFor(registered)
	}

	status, err := s.status.CheckStatus(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to check OTP status", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}

	if !status.IsEligibleForOTP {
		reason, message, retryAfter := ineligibility(status)
		return s.reject(mobile, reason, message, retryAfter, status), nil
	}

	reservation, err := s.guard.ReserveSend(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to record OTP send", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}
	if !reservation.Allowed {
		return s.rejectOverBudget(ctx, mobile)
	}
	count := reservation.Count

	// A failed issue keeps its slot of the budget.
	code, err := s.issuer.Issue(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to issue OTP", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}

	if err := s.sender.Send(ctx, mobile, code); err != nil {
		s.logger.Errorw("Failed to deliver OTP", "mobile", mobile.Masked(), "error", err)
		return nil, fmt.Errorf("failed to deliver OTP: %w", err)
	}

	metrics.OTPIssuedTotal.WithLabelValues(string(purpose)).Inc()
	s.logger.Infow("OTP issued",
		"mobile", mobile.Masked(),
		"purpose", purpose,
		"count", count)

	left := remaining(s.cfg.OTP.MaxRequests, count)
	result := &entity.SendOTPResult{
		Sent:               true,
		Message:            sentMessage,
		Purpose:            purpose,
		ResendAttemptsLeft: left,
		OTPsRemaining:      left,
	}
	if s.cfg.OTP.ExposeCode {
		result.Code = code
	}

	return result, nil
}

func (s *otpService) VerifyOTP(ctx context.Context, mobile entity.MobileNumber, code, ip string) (*entity.VerifyOTPResult, error) {
	if ip != "" {
		ipStatus, err := s.guard.CheckIP(ctx, ip)
		if err != nil {
			s.logger.Errorw("Failed to check IP status", "ip", ip, "error", err)
			return nil, err
		}
		if ipStatus.IsBlocked {
			return s.verifyFailure(entity.ReasonIPBlocked, IPStatusMessage(ipStatus), 0, ipStatus.BlockTimeRemaining), nil
		}
	}

	attempt, err := s.guard.ReserveAttempt(ctx, mobile, ip)
	if err != nil {
		s.logger.Errorw("Failed to count verification attempt", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}
	if attempt.IPBlocked {
		blocked := &entity.IPStatus{IsBlocked: true, BlockTimeRemaining: attempt.BlockTimeRemaining}
		return s.verifyFailure(entity.ReasonIPBlocked, IPStatusMessage(blocked), 0, attempt.BlockTimeRemaining), nil
	}
	if !attempt.Allowed {
		message := "Your account is temporarily blocked due to too many incorrect attempts. Try again in " +
			formatHoursMinutes(attempt.BlockTimeRemaining) + "."
		return s.verifyFailure(entity.ReasonIncorrectAttemptsBlocked, message, 0, attempt.BlockTimeRemaining), nil
	}

	check, err := s.issuer.Check(ctx, mobile, code)
	if err != nil {
		s.guard.ReleaseAttempt(ctx, attempt)
		s.logger.Errorw("Failed to verify OTP", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}

	switch check {
	case CodeMissing:
		left := s.guard.ReleaseAttempt(ctx, attempt)
		return s.verifyFailure(entity.ReasonOTPExpired,
			"OTP expired or not found. OTPs are valid for 5 minutes.", left, 0), nil
	case CodeMismatch:
		left := s.guard.FailAttempt(ctx, attempt)
		s.logger.Warnw("Incorrect OTP submitted", "mobile", mobile.Masked(), "ip", ip, "remaining_attempts", left)
		return s.verifyFailure(entity.ReasonOTPInvalid, "Invalid OTP", left, 0), nil
	}

	if err := s.guard.SucceedAttempt(ctx, attempt); err != nil {
		s.logger.Warnw("Failed to reset incorrect attempts", "mobile", mobile.Masked(), "error", err)
	}

	registered, err := s.userRepo.Exists(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to check registration", "mobile", mobile.Masked(), "error", err)
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}
	purpose := purposeFor(registered)

	ttl := s.cfg.Verification.RegistrationTTL
	if purpose == entity.PurposePasswordReset {
		ttl = s.cfg.Verification.PasswordResetTTL
	}

	now := s.now()
	marker := entity.VerifiedMarker{
		Verified:  true,
		Timestamp: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
	if err := s.otpRepo.SaveVerified(ctx, mobile, marker, ttl); err != nil {
		s.logger.Errorw("Failed to save verification marker", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}

	metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()
	s.logger.Infow("OTP verified", "mobile", mobile.Masked(), "purpose", purpose)

	return &entity.VerifyOTPResult{
		Verified:          true,
		Message:           "OTP verified successfully",
		Purpose:           purpose,
		RemainingAttempts: s.cfg.RateLimit.MaxIncorrectAttempts,
	}, nil
}

func (s *otpService) CheckStatus(ctx context.Context, mobile entity.MobileNumber) (*entity.OTPStatus, error) {
	status, err := s.status.CheckStatus(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to check OTP status", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}
	return status, nil
}

func (s *otpService) CheckIPStatus(ctx context.Context, ip string) (*entity.IPStatus, error) {
	status, err := s.guard.CheckIP(ctx, ip)
	if err != nil {
		s.logger.Errorw("Failed to check IP status", "ip", ip, "error", err)
		return nil, err
	}
	return status, nil
}

// CleanupExpired purges expired entries from the in-process fallback store.
// Redis expires its own keys.
func (s *otpService) CleanupExpired(_ context.Context) error {
	if s.purger == nil {
		return nil
	}

	removed := s.purger.Purge()
	if removed > 0 {
		metrics.KVFallbackPurgedTotal.Add(float64(removed))
		s.logger.Debugw("Purged expired fallback entries", "count", removed)
	}
	return nil
}

// rejectOverBudget answers a send whose reservation came back past the budget.
func (s *otpService) rejectOverBudget(ctx context.Context, mobile entity.MobileNumber) (*entity.SendOTPResult, error) {
	limit, err := s.guard.RequestLimit(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to read OTP request limit", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}

	if limit.CooldownRemaining > 0 {
		return s.reject(mobile, entity.ReasonRequestLimit, cooldownMessage(limit.CooldownRemaining), limit.CooldownRemaining, nil), nil
	}
	return s.reject(mobile, entity.ReasonRequestLimit,
		"You've reached the maximum number of OTP requests. Please try again later.", 0, nil), nil
}

func (s *otpService) reject(mobile entity.MobileNumber, reason entity.Reason, message string, retryAfter int, status *entity.OTPStatus) *entity.SendOTPResult {
	metrics.OTPRejectedTotal.WithLabelValues(string(reason)).Inc()
	s.logger.Infow("OTP request rejected", "mobile", mobile.Masked(), "reason", reason)

	result := &entity.SendOTPResult{
		Reason:     reason,
		Message:    message,
		RetryAfter: retryAfter,
		Status:     status,
	}
	if status != nil {
		result.OTPsRemaining = status.RemainingOTPRequests
	}
	return result
}

func (s *otpService) verifyFailure(reason entity.Reason, message string, remainingAttempts, blockTime int) *entity.VerifyOTPResult {
	metrics.OTPVerificationsTotal.WithLabelValues(string(reason)).Inc()
	return &entity.VerifyOTPResult{
		Reason:             reason,
		Message:            message,
		RemainingAttempts:  remainingAttempts,
		BlockTimeRemaining: blockTime,
	}
}

// ineligibility picks the rejection for an ineligible status in the same
// priority order as OTPStatusMessage.
func ineligibility(status *entity.OTPStatus) (entity.Reason, string, int) {
	switch {
	case status.HasRecentPasswordReset:
		return entity.ReasonRecentPasswordReset, OTPStatusMessage(status), 0
	case !status.IsWithinOTPRequestLimit:
		if status.CooldownRemaining > 0 {
			return entity.ReasonRequestLimit, cooldownMessage(status.CooldownRemaining), status.CooldownRemaining
		}
		return entity.ReasonRequestLimit, OTPStatusMessage(status), 0
	default:
		return entity.ReasonIncorrectAttemptsBlocked, OTPStatusMessage(status), status.BlockTimeRemaining
	}
}

func purposeFor(registered bool) entity.Purpose {
	if registered {
		return entity.PurposePasswordReset
	}
	return entity.PurposeRegistration
}
