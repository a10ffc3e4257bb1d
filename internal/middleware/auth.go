package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/course-market-api/internal/verifier"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
	"github.com/edumarket/course-market-api/pkg/response"
)

// ContextUserKey is the gin context key storing the verified identity.
const ContextUserKey = "currentUser"

// TenantHeader carries the tenant the request operates on. The query
// parameter is accepted as a fallback for clients that cannot set
// headers.
const TenantHeader = "X-Tenant-ID"

// Authenticate protects routes by requiring a bearer token verified
// against the configured identity verifier, scoped to the request's
// tenant.
func Authenticate(v verifier.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(TenantHeader)
		if tenantID == "" {
			tenantID = c.Query("tenant_id")
		}
		if tenantID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "se requiere tenant_id"))
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		identity, err := v.Verify(c.Request.Context(), parts[1], tenantID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, identity)
		c.Next()
	}
}
