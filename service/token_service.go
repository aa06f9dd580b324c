package service

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/repository"
)

const blacklistedValue = "invalidated"

// TokenService keeps the blacklist of signed-out tokens in the KV store
type TokenService struct {
	store  repository.KVStore
	logger *logger.Logger
}

// NewTokenService creates a new token service
func NewTokenService(store repository.KVStore, logger *logger.Logger) *TokenService {
	return &TokenService{
		store:  store,
		logger: logger,
	}
}

// Blacklist marks token as revoked for ttl, normally its remaining lifetime
func (s *TokenService) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; the signature check rejects it anyway.
		return nil
	}

	if err := s.store.Set(ctx, repository.Key(repository.PrefixBlacklistedToken, token), blacklistedValue, ttl); err != nil {
		s.logger.Errorw("Failed to blacklist token", "error", err)
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.logger.Infow("Token blacklisted", "token", abbreviate(token), "ttl", ttl)
	return nil
}

// IsBlacklisted reports whether token was signed out
func (s *TokenService) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	_, found, err := s.store.Get(ctx, repository.Key(repository.PrefixBlacklistedToken, token))
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return found, nil
}

func abbreviate(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
