// authz/ownership.go
package authz

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
)

// OwnershipConfig declares a resource-instance ownership requirement on an
// operation.
type OwnershipConfig struct {
	// ResourceType names the domain resource, resolved through the fixed
	// resource-type mapping of the fetcher.
	ResourceType string

	// OwnerFields are the candidate owner fields on the fetched resource.
	// Dotted paths descend into nested objects. Any single match allows.
	OwnerFields []string

	// IDParam is the request parameter carrying the resource id.
	IDParam string

	// AllowScopeBypass permits skipping the ownership fetch when the
	// principal holds the action at "all" scope. Nil means true.
	AllowScopeBypass *bool
}

func (c OwnershipConfig) scopeBypassAllowed() bool {
	return c.AllowScopeBypass == nil || *c.AllowScopeBypass
}

// OwnershipValidator runs the second, resource-specific check layered on
// top of the guard's decision. It writes no audit entry of its own; the
// guard owns the per-request audit record.
type OwnershipValidator struct {
	resolver      *Resolver
	fetcher       ResourceFetcher
	adminRoleType string
}

func NewOwnershipValidator(resolver *Resolver, fetcher ResourceFetcher, adminRoleType string) *OwnershipValidator {
	if adminRoleType == "" {
		adminRoleType = model.RoleTypeAdmin
	}
	return &OwnershipValidator{
		resolver:      resolver,
		fetcher:       fetcher,
		adminRoleType: adminRoleType,
	}
}

// Validate checks that the principal may touch the specific resource
// instance named by the request parameters. It returns nil on allow,
// ErrUnauthenticated / ErrForbidden / ErrResourceNotFound on the
// corresponding outcomes, and ErrMissingResourceID when the route is
// misconfigured.
func (v *OwnershipValidator) Validate(ctx context.Context, principal *model.Principal, cfg OwnershipConfig, params map[string]string, method string) error {
	if principal == nil || principal.ID == "" {
		return gk_errors.ErrUnauthenticated
	}

	if principal.RoleType == v.adminRoleType {
		return nil
	}

	resourceID := params[cfg.IDParam]
	if resourceID == "" {
		logger.Error("Ownership check misconfigured: id parameter absent",
			zap.String("idParam", cfg.IDParam),
			zap.String("resourceType", cfg.ResourceType))
		return gk_errors.ErrMissingResourceID
	}

	if cfg.scopeBypassAllowed() {
		action := ActionForMethod(method)
		ok, err := v.resolver.HasPermission(ctx, principal.ID, cfg.ResourceType, action, ScopeAll)
		if err != nil {
			return err
		}
		if ok {
			// Broad-scope grant; no need to fetch the resource.
			return nil
		}
	}

	resource, err := v.fetcher.FetchResource(ctx, cfg.ResourceType, resourceID)
	if err != nil {
		return err
	}
	if resource == nil {
		return gk_errors.ErrResourceNotFound
	}

	for _, field := range cfg.OwnerFields {
		value, ok := lookupPath(resource, field)
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", value) == principal.ID {
			return nil
		}
	}

	logger.Warn("Ownership check failed",
		zap.String("userID", principal.ID),
		zap.String("resourceType", cfg.ResourceType),
		zap.String("resourceID", resourceID),
		zap.Strings("ownerFields", cfg.OwnerFields))
	return gk_errors.ErrForbidden
}

// ActionForMethod derives the implied permission action from the request
// verb.
func ActionForMethod(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// lookupPath walks a dotted path into nested map values.
func lookupPath(resource map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = resource
	for _, part := range parts {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
