package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/pkg/metrics"
	"github.com/arjunhariram/ent-web/repository"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService sets, resets and changes account passwords. Set and reset
// are gated by a live verification marker; change is gated by the current password.
type PasswordService interface {
	SetPassword(ctx context.Context, mobile entity.MobileNumber, password, confirm string) (*entity.PasswordResult, error)
	ResetPassword(ctx context.Context, mobile entity.MobileNumber, password, confirm string) (*entity.PasswordResult, error)
	ChangePassword(ctx context.Context, mobile entity.MobileNumber, current, password, confirm string) (*entity.PasswordResult, error)
	ValidateFormat(password string) PasswordFormatResult
}

type passwordService struct {
	userRepo repository.UserRepository
	otpRepo  repository.OTPRepository
	cfg      config.Password
	logger   *logger.Logger
	now      func() time.Time
}

// NewPasswordService creates a new password service instance
func NewPasswordService(userRepo repository.UserRepository, otpRepo repository.OTPRepository, cfg config.Password, logger *logger.Logger) PasswordService {
	return &passwordService{
		userRepo: userRepo,
		otpRepo:  otpRepo,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *passwordService) ValidateFormat(password string) PasswordFormatResult {
	return ValidatePasswordFormat(password, s.cfg)
}

func (s *passwordService) SetPassword(ctx context.Context, mobile entity.MobileNumber, password, confirm string) (*entity.PasswordResult, error) {
	exists, err := s.userRepo.Exists(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to check registration", "mobile", mobile.Masked(), "error", err)
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}
	if exists {
		return rejectPassword(entity.ReasonAlreadyRegistered, "This mobile number is already registered. Please login instead."), nil
	}

	if result, err := s.requireVerified(ctx, mobile); result != nil || err != nil {
		return result, err
	}

	if result := s.checkCandidate(password, confirm); result != nil {
		return result, nil
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	marker, result, err := s.claimVerified(ctx, mobile)
	if result != nil || err != nil {
		return result, err
	}

	user, err := s.userRepo.Create(ctx, mobile, hash)
	if errors.Is(err, repository.ErrAlreadyRegistered) {
		return rejectPassword(entity.ReasonAlreadyRegistered, "This mobile number is already registered. Please login instead."), nil
	}
	if err != nil {
		s.logger.Errorw("Failed to create user", "mobile", mobile.Masked(), "error", err)
		s.restoreVerified(ctx, mobile, marker)
		return nil, err
	}

	metrics.PasswordChangesTotal.WithLabelValues("set").Inc()
	s.logger.Infow("Password set for new account", "user_id", user.ID, "mobile", mobile.Masked())

	return &entity.PasswordResult{
		Success: true,
		Message: "Password set successfully",
		User:    user,
	}, nil
}

func (s *passwordService) ResetPassword(ctx context.Context, mobile entity.MobileNumber, password, confirm string) (*entity.PasswordResult, error) {
	user, err := s.userRepo.GetByMobileNumber(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to get user", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}
	if user == nil {
		return rejectPassword(entity.ReasonNotRegistered, "No account linked with this mobile number"), nil
	}

	if result, err := s.requireVerified(ctx, mobile); result != nil || err != nil {
		return result, err
	}

	if result := s.checkCandidate(password, confirm); result != nil {
		return result, nil
	}

	if result, err := s.checkOverlap(ctx, user, password); result != nil || err != nil {
		return result, err
	}

	marker, result, err := s.claimVerified(ctx, mobile)
	if result != nil || err != nil {
		return result, err
	}

	if err := s.update(ctx, mobile, password); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return rejectPassword(entity.ReasonNotRegistered, "No account linked with this mobile number"), nil
		}
		s.restoreVerified(ctx, mobile, marker)
		return nil, err
	}

	if err := s.otpRepo.MarkPasswordReset(ctx, mobile, s.now(), s.cfg.ResetCooldown); err != nil {
		s.logger.Warnw("Failed to start password reset cooldown", "mobile", mobile.Masked(), "error", err)
	}

	metrics.PasswordChangesTotal.WithLabelValues("reset").Inc()
	s.logger.Infow("Password reset", "user_id", user.ID, "mobile", mobile.Masked())

	return &entity.PasswordResult{
		Success: true,
		Message: "Password reset successfully",
		User:    user,
	}, nil
}

func (s *passwordService) ChangePassword(ctx context.Context, mobile entity.MobileNumber, current, password, confirm string) (*entity.PasswordResult, error) {
	user, err := s.userRepo.GetByMobileNumber(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to get user", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}
	if user == nil {
		return rejectPassword(entity.ReasonNotRegistered, "No account linked with this mobile number"), nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		s.logger.Warnw("Password change with wrong current password", "user_id", user.ID)
		return rejectPassword(entity.ReasonIncorrectPassword, "Current password is incorrect"), nil
	}

	if result := s.checkCandidate(password, confirm); result != nil {
		return result, nil
	}

	if result, err := s.checkOverlap(ctx, user, password); result != nil || err != nil {
		return result, err
	}

	if err := s.update(ctx, mobile, password); err != nil {
		return nil, err
	}

	metrics.PasswordChangesTotal.WithLabelValues("change").Inc()
	s.logger.Infow("Password changed", "user_id", user.ID)

	return &entity.PasswordResult{
		Success: true,
		Message: "Password changed successfully",
		User:    user,
	}, nil
}

// requireVerified returns a rejection unless a live verification marker exists.
// It only looks; claimVerified takes the marker.
func (s *passwordService) requireVerified(ctx context.Context, mobile entity.MobileNumber) (*entity.PasswordResult, error) {
	marker, err := s.otpRepo.GetVerified(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to read verification marker", "mobile", mobile.Masked(), "error", err)
		return nil, err
	}

	if !s.live(marker) {
		return rejectPassword(entity.ReasonVerificationRequired, "OTP verification required before setting password"), nil
	}
	return nil, nil
}

// claimVerified removes the marker atomically so one verification authorizes one action.
func (s *passwordService) claimVerified(ctx context.Context, mobile entity.MobileNumber) (*entity.VerifiedMarker, *entity.PasswordResult, error) {
	marker, err := s.otpRepo.ConsumeVerified(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to consume verification marker", "mobile", mobile.Masked(), "error", err)
		return nil, nil, err
	}

	if !s.live(marker) {
		return nil, rejectPassword(entity.ReasonVerificationRequired, "OTP verification required before setting password"), nil
	}
	return marker, nil, nil
}

// restoreVerified puts a claimed marker back after the write it authorized failed.
func (s *passwordService) restoreVerified(ctx context.Context, mobile entity.MobileNumber, marker *entity.VerifiedMarker) {
	ttl := time.UnixMilli(marker.ExpiresAt).Sub(s.now())
	if ttl <= 0 {
		return
	}
	if err := s.otpRepo.SaveVerified(ctx, mobile, *marker, ttl); err != nil {
		s.logger.Warnw("Failed to restore verification marker", "mobile", mobile.Masked(), "error", err)
	}
}

func (s *passwordService) live(marker *entity.VerifiedMarker) bool {
	return marker != nil && marker.Verified && (marker.ExpiresAt <= 0 || marker.ExpiresAt > s.now().UnixMilli())
}

// checkCandidate applies the confirmation and format rules
func (s *passwordService) checkCandidate(password, confirm string) *entity.PasswordResult {
	if password != confirm {
		return rejectPassword(entity.ReasonPasswordMismatch, "Passwords do not match")
	}

	format := ValidatePasswordFormat(password, s.cfg)
	if !format.Valid {
		result := rejectPassword(entity.ReasonWeakPassword, format.Message)
		result.Details = &format.Details
		return result
	}
	return nil
}

// checkOverlap rejects the current password and the recent history
func (s *passwordService) checkOverlap(ctx context.Context, user *entity.User, password string) (*entity.PasswordResult, error) {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
		return rejectPassword(entity.ReasonPasswordReused, "New password cannot be the same as your current password"), nil
	}

	hashes, err := s.userRepo.RecentPasswordHashes(ctx, user.MobileNumber, s.cfg.HistorySize)
	if err != nil {
		s.logger.Errorw("Failed to load password history", "user_id", user.ID, "error", err)
		return nil, err
	}

	for _, hash := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil {
			return rejectPassword(entity.ReasonPasswordReused, "You have used this password recently. Please choose a different password"), nil
		}
	}
	return nil, nil
}

func (s *passwordService) update(ctx context.Context, mobile entity.MobileNumber, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, mobile, hash); err != nil {
		s.logger.Errorw("Failed to update password", "mobile", mobile.Masked(), "error", err)
		return err
	}
	return nil
}

func (s *passwordService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func rejectPassword(reason entity.Reason, message string) *entity.PasswordResult {
	return &entity.PasswordResult{Reason: reason, Message: message}
}
