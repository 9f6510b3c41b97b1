package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mlefebvre/budget-approval-api/internal/models"
	"github.com/mlefebvre/budget-approval-api/pkg/config"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
)

// TokenService validates the HS256 access tokens minted by the corporate
// SSO. Issue exists for integration environments where no SSO is wired.
type TokenService struct {
	secret     []byte
	expiration time.Duration
}

// NewTokenService constructs the service from JWT configuration.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{secret: []byte(cfg.Secret), expiration: cfg.Expiration}
}

// ValidateToken parses and verifies an access token.
func (s *TokenService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.ActorID == "" || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing actor identity")
	}
	return claims, nil
}

// Issue mints a token for an actor. Used by tooling and tests only.
func (s *TokenService) Issue(actor *models.Actor) (string, error) {
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		ActorID:  actor.ID,
		Role:     actor.Role,
		Email:    actor.Email,
		FullName: actor.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
