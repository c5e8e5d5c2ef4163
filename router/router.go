// router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/accesskit/gatekeeper/api/authz"
	"github.com/accesskit/gatekeeper/api/controller"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/middleware"
	"go.uber.org/zap"
)

// SetupRouter wires the HTTP surface. Access requirements are declared
// per route group as explicit RouteConfig values.
func SetupRouter(
	controllers *controller.Controllers,
	guard *authz.Guard,
	ownership *authz.OwnershipValidator,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	router.Use(middleware.Authenticate())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metricsHandler, err := middleware.RegisterMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	api := router.Group("/api/v1")

	roles := api.Group("/roles", middleware.Authorize(guard, authz.RouteConfig{
		RequiredPermissions: []authz.PermissionCheck{
			{Resource: "role_management", Action: "manage", Scope: authz.ScopeAll},
		},
	}))
	controllers.Role.RegisterRoutes(roles)

	permissions := api.Group("/permissions", middleware.Authorize(guard, authz.RouteConfig{
		RequiredPermissions: []authz.PermissionCheck{
			{Resource: "role_management", Action: "manage", Scope: authz.ScopeAll},
		},
	}))
	controllers.Permission.RegisterRoutes(permissions)

	access := api.Group("/access", middleware.Authorize(guard, authz.RouteConfig{
		RequiredRoles: []string{"access_manager"},
		RequiredPermissions: []authz.PermissionCheck{
			{Resource: "role_management", Action: "manage", Scope: authz.ScopeAll},
		},
	}))
	controllers.Access.RegisterRoutes(access)

	// Self-service reads: any authenticated user can inspect their own
	// grants, broader scopes let support staff do the same for others.
	self := api.Group("/users",
		middleware.Authorize(guard, authz.RouteConfig{
			RequiredPermissions: []authz.PermissionCheck{
				{Resource: "user", Action: "read", Scope: authz.ScopeOwn},
			},
		}),
		middleware.RequireOwnership(ownership, authz.OwnershipConfig{
			ResourceType: "user",
			OwnerFields:  []string{"id"},
			IDParam:      "userId",
		}),
	)
	self.GET("/:userId/roles", controllers.Access.UserRoles)
	self.GET("/:userId/permissions", controllers.Access.UserEffectivePermissions)

	auditTrail := api.Group("/audit", middleware.Authorize(guard, authz.RouteConfig{
		RequiredPermissions: []authz.PermissionCheck{
			{Resource: "audit", Action: "read", Scope: authz.ScopeAll},
		},
	}))
	controllers.Audit.RegisterRoutes(auditTrail)

	return router
}
