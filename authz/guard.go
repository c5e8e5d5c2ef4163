// authz/guard.go
package authz

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/accesskit/gatekeeper/api/audit"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
)

// RouteConfig declares the access requirements of one operation. It is an
// explicit value attached at route registration; the guard reads it before
// dispatch. Role and permission checks are independent sufficiency paths:
// satisfying either grants access.
type RouteConfig struct {
	// Public skips all checks. No principal is required and no audit
	// entry is written.
	Public bool

	// RequiredRoles grants access when the principal holds any one of the
	// named roles.
	RequiredRoles []string

	// RequiredPermissions grants access when the principal holds every
	// listed permission.
	RequiredPermissions []PermissionCheck

	// Ownership, when set, layers a resource-instance check after the
	// guard's decision. Evaluated by the OwnershipValidator, not here.
	Ownership *OwnershipConfig
}

// RequestMeta carries request context into audit entries.
type RequestMeta struct {
	Method    string
	Path      string
	IP        string
	UserAgent string
}

// Guard orchestrates one authorization decision per inbound operation.
type Guard struct {
	resolver      *Resolver
	auditService  audit.Service
	adminRoleType string
}

func NewGuard(resolver *Resolver, auditService audit.Service, adminRoleType string) *Guard {
	if adminRoleType == "" {
		adminRoleType = model.RoleTypeAdmin
	}
	return &Guard{
		resolver:      resolver,
		auditService:  auditService,
		adminRoleType: adminRoleType,
	}
}

// Authorize decides whether the principal may perform the operation the
// config describes. It returns nil on allow, ErrUnauthenticated when no
// principal was resolved, ErrForbidden on a denial, and any other error
// when persistence made a decision impossible (the caller must fail
// closed).
func (g *Guard) Authorize(ctx context.Context, principal *model.Principal, cfg RouteConfig, meta RequestMeta) error {
	if cfg.Public {
		return nil
	}

	if principal == nil || principal.ID == "" {
		return gk_errors.ErrUnauthenticated
	}

	if principal.RoleType == g.adminRoleType {
		g.record(ctx, audit.Entry{
			Kind:      audit.KindAdminBypass,
			ActorID:   principal.ID,
			Metadata:  g.routeMetadata(cfg, meta),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			Success:   true,
			Severity:  audit.SeverityInfo,
		})
		return nil
	}

	rolesDeclared := len(cfg.RequiredRoles) > 0
	permissionsDeclared := len(cfg.RequiredPermissions) > 0

	if !rolesDeclared && !permissionsDeclared {
		// No restriction configured for this operation.
		return nil
	}

	if rolesDeclared {
		ok, err := g.resolver.HasAnyRole(ctx, principal.ID, cfg.RequiredRoles)
		if err != nil {
			logger.Error("Role check failed",
				zap.Error(err),
				zap.String("userID", principal.ID))
			return err
		}
		if ok {
			g.record(ctx, audit.Entry{
				Kind:      audit.KindAccessGranted,
				ActorID:   principal.ID,
				Metadata:  g.grantMetadata("role", cfg, meta),
				IP:        meta.IP,
				UserAgent: meta.UserAgent,
				Success:   true,
				Severity:  audit.SeverityInfo,
			})
			return nil
		}
	}

	if permissionsDeclared {
		ok, err := g.resolver.HasAllPermissions(ctx, principal.ID, cfg.RequiredPermissions)
		if err != nil {
			logger.Error("Permission check failed",
				zap.Error(err),
				zap.String("userID", principal.ID))
			return err
		}
		if ok {
			g.record(ctx, audit.Entry{
				Kind:      audit.KindAccessGranted,
				ActorID:   principal.ID,
				Metadata:  g.grantMetadata("permission", cfg, meta),
				IP:        meta.IP,
				UserAgent: meta.UserAgent,
				Success:   true,
				Severity:  audit.SeverityInfo,
			})
			return nil
		}
	}

	g.record(ctx, audit.Entry{
		Kind:         audit.KindAccessDenied,
		ActorID:      principal.ID,
		ResourceType: deniedResource(cfg),
		Metadata:     g.denialMetadata(cfg, meta),
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		Success:      false,
		Severity:     audit.SeverityWarning,
		Error:        denialReason(cfg),
	})
	return gk_errors.ErrForbidden
}

// record writes an audit entry best-effort. Audit durability never affects
// the decision.
func (g *Guard) record(ctx context.Context, entry audit.Entry) {
	if g.auditService == nil {
		return
	}
	g.auditService.Record(ctx, entry)
}

func (g *Guard) routeMetadata(cfg RouteConfig, meta RequestMeta) map[string]interface{} {
	md := map[string]interface{}{
		"method": meta.Method,
		"path":   meta.Path,
	}
	if len(cfg.RequiredRoles) > 0 {
		md["required_roles"] = strings.Join(cfg.RequiredRoles, ",")
	}
	if len(cfg.RequiredPermissions) > 0 {
		md["required_permissions"] = formatChecks(cfg.RequiredPermissions)
	}
	return md
}

func (g *Guard) grantMetadata(check string, cfg RouteConfig, meta RequestMeta) map[string]interface{} {
	md := g.routeMetadata(cfg, meta)
	md["check"] = check
	return md
}

func (g *Guard) denialMetadata(cfg RouteConfig, meta RequestMeta) map[string]interface{} {
	md := g.routeMetadata(cfg, meta)
	md["reason"] = denialReason(cfg)
	return md
}

func denialReason(cfg RouteConfig) string {
	switch {
	case len(cfg.RequiredRoles) > 0 && len(cfg.RequiredPermissions) > 0:
		return "required roles and permissions not held"
	case len(cfg.RequiredRoles) > 0:
		return "required roles not held"
	default:
		return "required permissions not held"
	}
}

// deniedResource picks the first declared permission's resource for the
// audit entry's resource type, when one exists.
func deniedResource(cfg RouteConfig) string {
	if len(cfg.RequiredPermissions) > 0 {
		return cfg.RequiredPermissions[0].Resource
	}
	return ""
}

func formatChecks(checks []PermissionCheck) string {
	parts := make([]string, len(checks))
	for i, check := range checks {
		if check.Scope != "" {
			parts[i] = fmt.Sprintf("%s:%s:%s", check.Resource, check.Action, check.Scope)
		} else {
			parts[i] = fmt.Sprintf("%s:%s", check.Resource, check.Action)
		}
	}
	return strings.Join(parts, ",")
}
