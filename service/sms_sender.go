package service

import (
	"context"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
)

// SMSSender delivers an issued code to the subscriber
type SMSSender interface {
	Send(ctx context.Context, mobile entity.MobileNumber, code string) error
}

// logSender writes the code to the log instead of an SMS gateway
type logSender struct {
	logger *logger.Logger
}

// NewLogSender creates a sender for development setups without a gateway
func NewLogSender(logger *logger.Logger) SMSSender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(_ context.Context, mobile entity.MobileNumber, code string) error {
	s.logger.Infow("OTP delivered", "mobile", mobile.Masked(), "code", code)
	return nil
}
