package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "ent-web"

// ErrTokenRevoked is returned for a token that was signed out
var ErrTokenRevoked = errors.New("token has been revoked")

// JWTService interface defines JWT operations
type JWTService interface {
	GenerateToken(user *entity.User) (*entity.AuthResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*jwt.Token, error)
	GetUserFromToken(token *jwt.Token) (*entity.User, error)
	RevokeToken(ctx context.Context, tokenString string) error
}

// jwtService implements JWTService interface
type jwtService struct {
	cfg          config.JWT
	logger       *logger.Logger
	tokenService *TokenService
	now          func() time.Time
}

// JWTClaims represents the JWT claims
type JWTClaims struct {
	UserID       int    `json:"userId"`
	MobileNumber string `json:"mobileNumber"`
	jwt.RegisteredClaims
}

// NewJWTService creates a new JWT service instance. tokenService may be nil,
// which disables the blacklist.
func NewJWTService(cfg config.JWT, logger *logger.Logger, tokenService *TokenService) JWTService {
	return &jwtService{
		cfg:          cfg,
		logger:       logger,
		tokenService: tokenService,
		now:          time.Now,
	}
}

// GenerateToken generates a JWT token for the user
func (s *jwtService) GenerateToken(user *entity.User) (*entity.AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.ExpirationTime)

	claims := JWTClaims{
		UserID:       user.ID,
		MobileNumber: user.MobileNumber.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("user:%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		s.logger.Errorw("Failed to sign JWT token", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Infow("JWT token generated", "user_id", user.ID, "expires_at", expiresAt)

	return &entity.AuthResponse{
		Success:   true,
		Token:     tokenString,
		User:      entity.NewUserResponse(user),
		ExpiresAt: expiresAt,
		Message:   "Login successful",
	}, nil
}

// ValidateToken checks the signature, the registered claims and the blacklist
func (s *jwtService) ValidateToken(ctx context.Context, tokenString string) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		s.logger.Warnw("Failed to validate JWT token", "error", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if s.tokenService != nil {
		revoked, err := s.tokenService.IsBlacklisted(ctx, tokenString)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return token, nil
}

// GetUserFromToken extracts user information from a validated JWT token
func (s *jwtService) GetUserFromToken(token *jwt.Token) (*entity.User, error) {
	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &entity.User{
		ID:           claims.UserID,
		MobileNumber: entity.MobileNumber(claims.MobileNumber),
	}, nil
}

// RevokeToken blacklists the token until it would have expired (sign out)
func (s *jwtService) RevokeToken(ctx context.Context, tokenString string) error {
	if s.tokenService == nil {
		return fmt.Errorf("token service not available")
	}

	token, err := s.ValidateToken(ctx, tokenString)
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || claims.ExpiresAt == nil {
		return fmt.Errorf("invalid token claims")
	}

	return s.tokenService.Blacklist(ctx, tokenString, claims.ExpiresAt.Sub(s.now()))
}
