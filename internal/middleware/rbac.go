package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
	"github.com/edumarket/course-market-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. The
// verified identity must already be on the context.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		identity := value.(*models.Identity)

		if _, ok := allowed[identity.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
