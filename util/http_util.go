// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
)

// PrincipalContextKey is where the authentication middleware stores the
// resolved principal on the gin context.
const PrincipalContextKey = "principal"

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// PrincipalFromContext returns the resolved principal, or nil when the
// request is unauthenticated.
func PrincipalFromContext(c *gin.Context) *model.Principal {
	value, exists := c.Get(PrincipalContextKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*model.Principal)
	if !ok {
		return nil
	}
	return principal
}

// ActorIDFromContext returns the acting user's id for audit provenance,
// empty when unauthenticated.
func ActorIDFromContext(c *gin.Context) string {
	principal := PrincipalFromContext(c)
	if principal == nil {
		return ""
	}
	return principal.ID
}
