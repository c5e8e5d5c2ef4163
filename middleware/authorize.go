// middleware/authorize.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/accesskit/gatekeeper/api/authz"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	"github.com/accesskit/gatekeeper/api/util"
)

// Authorize consults the guard with the route's declared requirements
// before the handler runs.
func Authorize(guard *authz.Guard, cfg authz.RouteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := util.PrincipalFromContext(c)
		meta := authz.RequestMeta{
			Method:    c.Request.Method,
			Path:      c.FullPath(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}

		if err := guard.Authorize(c, principal, cfg, meta); err != nil {
			abortAccessError(c, err)
			return
		}

		c.Next()
	}
}

// RequireOwnership layers an ownership check after the permission gate.
func RequireOwnership(validator *authz.OwnershipValidator, cfg authz.OwnershipConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := util.PrincipalFromContext(c)

		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}

		if err := validator.Validate(c, principal, cfg, params, c.Request.Method); err != nil {
			abortAccessError(c, err)
			return
		}

		c.Next()
	}
}

func abortAccessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gk_errors.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.Is(err, gk_errors.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, gk_errors.ErrResourceNotFound), errors.Is(err, gk_errors.ErrMissingResourceID):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, gk_errors.ErrUnmappedResourceType):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Route misconfigured"})
	default:
		// Persistence failures must not become silent allows.
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Authorization unavailable"})
	}
}
