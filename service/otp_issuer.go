package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	otpMin = 10000
	otpMax = 99999
)

// CodeCheck is the outcome of comparing a submitted code with the stored hash
type CodeCheck int

const (
	CodeMissing CodeCheck = iota
	CodeMismatch
	CodeMatched
)

// OTPIssuer creates hashed one-time codes and checks submissions against them.
type OTPIssuer interface {
	// Issue stores a fresh code, replacing any live one, and returns the plaintext.
	Issue(ctx context.Context, mobile entity.MobileNumber) (string, error)
	// Verify reports whether code matches the live record; a match consumes it.
	Verify(ctx context.Context, mobile entity.MobileNumber, code string) (bool, error)
	// Check is Verify that tells a missing record apart from a wrong code.
	Check(ctx context.Context, mobile entity.MobileNumber, code string) (CodeCheck, error)
}

type otpIssuer struct {
	otpRepo repository.OTPRepository
	cfg     config.OTP
	logger  *logger.Logger
	now     func() time.Time
}

// NewOTPIssuer creates a new OTP issuer instance
func NewOTPIssuer(otpRepo repository.OTPRepository, cfg config.OTP, logger *logger.Logger) OTPIssuer {
	return &otpIssuer{
		otpRepo: otpRepo,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

func (i *otpIssuer) Issue(ctx context.Context, mobile entity.MobileNumber) (string, error) {
	code, err := generateOTPCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), i.cfg.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash OTP code: %w", err)
	}

	if err := i.otpRepo.SaveCode(ctx, mobile, string(hash), i.cfg.ExpirationTime); err != nil {
		return "", err
	}

	// The resend gate reads this; a failure here only loosens that gate.
	if err := i.otpRepo.SetLastSent(ctx, mobile, i.now(), i.cfg.ExpirationTime); err != nil {
		i.logger.Warnw("Failed to record OTP send time", "mobile", mobile.Masked(), "error", err)
	}

	return code, nil
}

func (i *otpIssuer) Verify(ctx context.Context, mobile entity.MobileNumber, code string) (bool, error) {
	check, err := i.Check(ctx, mobile, code)
	if err != nil {
		return false, err
	}
	return check == CodeMatched, nil
}

func (i *otpIssuer) Check(ctx context.Context, mobile entity.MobileNumber, code string) (CodeCheck, error) {
	hash, found, err := i.otpRepo.GetCode(ctx, mobile)
	if err != nil {
		return CodeMissing, err
	}
	if !found {
		return CodeMissing, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return CodeMismatch, nil
	}
	if err != nil {
		// A corrupt hash can never match; treat it like a wrong code.
		i.logger.Warnw("Stored OTP hash is unreadable", "mobile", mobile.Masked(), "error", err)
		return CodeMismatch, nil
	}

	// Only the request that removes this exact code is the one that used it.
	claimed, found, err := i.otpRepo.ClaimCode(ctx, mobile)
	if err != nil {
		return CodeMissing, err
	}
	if !found || claimed != hash {
		return CodeMissing, nil
	}

	return CodeMatched, nil
}

// generateOTPCode returns a uniformly random code in [otpMin, otpMax]
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}
