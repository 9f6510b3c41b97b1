package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/mlefebvre/budget-approval-api/internal/models"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
	"github.com/mlefebvre/budget-approval-api/pkg/response"
)

// RequirePermission gates a route on the static role permission table. The
// stage-specific checks still run inside the workflow engine; this only
// rejects requests that could never succeed for the role.
func RequirePermission(action models.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !models.HasPermission(claims.Role, action) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
