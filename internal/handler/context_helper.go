package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mlefebvre/budget-approval-api/internal/middleware"
	"github.com/mlefebvre/budget-approval-api/internal/models"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
	"github.com/mlefebvre/budget-approval-api/pkg/response"
)

// claimsFrom pulls the authenticated claims set by the auth middleware. The
// false return means a response was already written.
func claimsFrom(c *gin.Context) (*models.JWTClaims, bool) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok || claims.ActorID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return nil, false
	}
	return claims, true
}
