// authz/store.go
package authz

import (
	"context"

	"github.com/accesskit/gatekeeper/api/model"
)

// Store is the narrow persistence contract the engine evaluates against.
// Implementations return current rows with their effect, expiry and active
// flags intact; effectiveness filtering happens in the resolver so that a
// single code path decides what counts.
type Store interface {
	// UserPermissions returns the direct grants and denials attached to a
	// user, with the referenced permission joined in.
	UserPermissions(ctx context.Context, userID string) ([]model.UserPermission, error)

	// RoleAssignments returns the role assignments held by a user, with
	// the referenced role joined in.
	RoleAssignments(ctx context.Context, userID string) ([]model.UserRole, error)

	// RolePermissions returns the permission links owned by a role, with
	// the referenced permission joined in.
	RolePermissions(ctx context.Context, roleID string) ([]model.RolePermission, error)
}

// GrantCache is the read-through cache consulted before the Store. A cache
// that is down simply reports misses; correctness never depends on it.
type GrantCache interface {
	UserPermissions(ctx context.Context, userID string) ([]model.UserPermission, bool)
	SetUserPermissions(ctx context.Context, userID string, grants []model.UserPermission)

	UserRoles(ctx context.Context, userID string) ([]model.UserRole, bool)
	SetUserRoles(ctx context.Context, userID string, assignments []model.UserRole)

	RolePermissions(ctx context.Context, roleID string) ([]model.RolePermission, bool)
	SetRolePermissions(ctx context.Context, roleID string, links []model.RolePermission)
}

// ResourceFetcher loads a concrete domain resource for ownership checks.
type ResourceFetcher interface {
	FetchResource(ctx context.Context, resourceType, resourceID string) (map[string]interface{}, error)
}
