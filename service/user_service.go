package service

import (
	"context"
	"fmt"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/pkg/metrics"
	"github.com/arjunhariram/ent-web/repository"

	"golang.org/x/crypto/bcrypt"
)

// LoginResult is the outcome of a password login.
// User is nil with a Reason when the credentials are refused.
type LoginResult struct {
	User    *entity.User
	Reason  entity.Reason
	Message string
}

// UserService interface defines user business operations
type UserService interface {
	Login(ctx context.Context, mobile entity.MobileNumber, password string) (*LoginResult, error)
	GetByID(ctx context.Context, id int) (*entity.UserResponse, error)
	Exists(ctx context.Context, mobile entity.MobileNumber) (bool, error)
}

// userService implements UserService interface
type userService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service instance
func NewUserService(userRepo repository.UserRepository, logger *logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Login checks the password of a registered number
func (s *userService) Login(ctx context.Context, mobile entity.MobileNumber, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByMobileNumber(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to get user", "mobile", mobile.Masked(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		metrics.LoginAttemptsTotal.WithLabelValues("not_registered").Inc()
		return &LoginResult{
			Reason:  entity.ReasonNotRegistered,
			Message: "No account linked with this mobile number",
		}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("incorrect_password").Inc()
		s.logger.Warnw("Login with incorrect password", "user_id", user.ID)
		return &LoginResult{
			Reason:  entity.ReasonIncorrectPassword,
			Message: "Incorrect password",
		}, nil
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Infow("User logged in", "user_id", user.ID)

	return &LoginResult{User: user, Message: "Login successful"}, nil
}

// GetByID retrieves a user by ID
func (s *userService) GetByID(ctx context.Context, id int) (*entity.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Errorw("Failed to get user by ID", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		return nil, repository.ErrUserNotFound
	}

	response := entity.NewUserResponse(user)
	return &response, nil
}

func (s *userService) Exists(ctx context.Context, mobile entity.MobileNumber) (bool, error) {
	exists, err := s.userRepo.Exists(ctx, mobile)
	if err != nil {
		s.logger.Errorw("Failed to check registration", "mobile", mobile.Masked(), "error", err)
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return exists, nil
}
