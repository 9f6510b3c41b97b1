package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mlefebvre/budget-approval-api/internal/models"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
	"github.com/mlefebvre/budget-approval-api/pkg/response"
)

// ClaimsContextKey is where validated token claims live in the gin context.
const ClaimsContextKey = "auth_claims"

type tokenValidator interface {
	ValidateToken(raw string) (*models.JWTClaims, error)
}

// Auth validates the Bearer token and stores the claims in the context.
func Auth(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header must be a bearer token"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ClaimsContextKey, claims)
		c.Next()
	}
}

// ClaimsFrom extracts the validated claims stored by Auth.
func ClaimsFrom(c *gin.Context) (*models.JWTClaims, bool) {
	v, ok := c.Get(ClaimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*models.JWTClaims)
	return claims, ok
}
