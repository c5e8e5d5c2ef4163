// authz/resolver.go
package authz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
)

// PermissionCheck names one required permission on an operation.
type PermissionCheck struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Scope    string `json:"scope,omitempty"`
}

// Resolver answers "does this user hold this permission" by aggregating
// direct grants and role grants, deny-first. It is stateless per decision
// and safe for concurrent use; the only shared state is the caches.
type Resolver struct {
	store     Store
	cache     GrantCache
	decisions *expirable.LRU[string, bool]
	now       func() time.Time
}

type ResolverOption func(*Resolver)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver builds a resolver. decisionCacheSize/TTL bound the in-process
// decision cache; a size of 0 disables it.
func NewResolver(store Store, cache GrantCache, decisionCacheSize int, decisionCacheTTL time.Duration, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store: store,
		cache: cache,
		now:   time.Now,
	}
	if decisionCacheSize > 0 {
		r.decisions = expirable.NewLRU[string, bool](decisionCacheSize, nil, decisionCacheTTL)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasPermission resolves whether the user may perform action on resource at
// the required scope. Absence of any matching grant resolves to false, not
// an error; persistence failures propagate so callers fail closed.
func (r *Resolver) HasPermission(ctx context.Context, userID, resource, action, requiredScope string) (bool, error) {
	cacheKey := decisionKey(userID, resource, action, requiredScope)
	if r.decisions != nil {
		if decision, ok := r.decisions.Get(cacheKey); ok {
			return decision, nil
		}
	}

	decision, err := r.resolve(ctx, userID, resource, action, requiredScope)
	if err != nil {
		return false, err
	}

	if r.decisions != nil {
		r.decisions.Add(cacheKey, decision)
	}
	r.logDecision(userID, resource, action, requiredScope, decision)
	return decision, nil
}

func (r *Resolver) resolve(ctx context.Context, userID, resource, action, requiredScope string) (bool, error) {
	now := r.now()

	direct, err := r.userPermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	// 1. Direct deny. A deny with no scope is a blanket deny for the
	// (resource, action) pair; a scoped deny only matches the exact
	// required scope.
	for _, grant := range direct {
		if !r.directGrantMatches(grant, resource, action, now) {
			continue
		}
		if grant.Effect == model.EffectDeny && denyScopeMatches(grant.Permission.Scope, requiredScope) {
			return false, nil
		}
	}

	assignments, err := r.roleAssignments(ctx, userID)
	if err != nil {
		return false, err
	}

	type roleGrants struct {
		roleID string
		links  []model.RolePermission
	}
	var held []roleGrants
	for _, assignment := range assignments {
		if !assignmentBinds(assignment, now) {
			continue
		}
		links, err := r.rolePermissions(ctx, assignment.Role.ID)
		if err != nil {
			return false, err
		}
		held = append(held, roleGrants{roleID: assignment.Role.ID, links: links})
	}

	// 2. Role deny.
	for _, rg := range held {
		for _, link := range rg.links {
			if !r.roleLinkMatches(link, resource, action, now) {
				continue
			}
			if link.Effect == model.EffectDeny && denyScopeMatches(link.Permission.Scope, requiredScope) {
				return false, nil
			}
		}
	}

	// 3. Direct allow.
	for _, grant := range direct {
		if !r.directGrantMatches(grant, resource, action, now) {
			continue
		}
		if grant.Effect == model.EffectAllow && ScopeIncludes(grant.Permission.Scope, requiredScope) {
			return true, nil
		}
	}

	// 4. Role allow.
	for _, rg := range held {
		for _, link := range rg.links {
			if !r.roleLinkMatches(link, resource, action, now) {
				continue
			}
			if link.Effect == model.EffectAllow && ScopeIncludes(link.Permission.Scope, requiredScope) {
				return true, nil
			}
		}
	}

	return false, nil
}

// HasAllPermissions is a short-circuiting AND over HasPermission in list
// order.
func (r *Resolver) HasAllPermissions(ctx context.Context, userID string, checks []PermissionCheck) (bool, error) {
	for _, check := range checks {
		ok, err := r.HasPermission(ctx, userID, check.Resource, check.Action, check.Scope)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasAnyRole reports whether the user holds at least one effective
// assignment to a role in the list.
func (r *Resolver) HasAnyRole(ctx context.Context, userID string, roleNames []string) (bool, error) {
	if len(roleNames) == 0 {
		return false, nil
	}

	assignments, err := r.roleAssignments(ctx, userID)
	if err != nil {
		return false, err
	}

	now := r.now()
	for _, assignment := range assignments {
		if !assignmentBinds(assignment, now) {
			continue
		}
		for _, name := range roleNames {
			if assignment.Role.Name == name {
				return true, nil
			}
		}
	}
	return false, nil
}

// EffectivePermissions returns the user's live direct grants and the live
// grants of every role they hold, for "what can I do" queries.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID string) ([]model.UserPermission, []model.RolePermission, error) {
	now := r.now()

	direct, err := r.userPermissions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	var liveDirect []model.UserPermission
	for _, grant := range direct {
		if grant.Effective(now) && grant.Permission.Active {
			liveDirect = append(liveDirect, grant)
		}
	}

	assignments, err := r.roleAssignments(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	var liveRoleLinks []model.RolePermission
	for _, assignment := range assignments {
		if !assignmentBinds(assignment, now) {
			continue
		}
		links, err := r.rolePermissions(ctx, assignment.Role.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, link := range links {
			if link.Effective(now) && link.Permission.Active {
				liveRoleLinks = append(liveRoleLinks, link)
			}
		}
	}

	return liveDirect, liveRoleLinks, nil
}

// InvalidateUser drops the in-process decisions cached for a user. Called
// alongside the grant-cache invalidation whenever the user's assignments
// or direct grants change.
func (r *Resolver) InvalidateUser(userID string) {
	if r.decisions == nil {
		return
	}
	prefix := userID + "|"
	for _, key := range r.decisions.Keys() {
		if strings.HasPrefix(key, prefix) {
			r.decisions.Remove(key)
		}
	}
}

// InvalidateAllDecisions purges the decision cache, used when a role's
// permission set changes and the affected user set is broad.
func (r *Resolver) InvalidateAllDecisions() {
	if r.decisions != nil {
		r.decisions.Purge()
	}
}

func (r *Resolver) directGrantMatches(grant model.UserPermission, resource, action string, now time.Time) bool {
	return grant.Permission.Resource == resource &&
		grant.Permission.Action == action &&
		grant.Permission.Active &&
		grant.Effective(now)
}

func (r *Resolver) roleLinkMatches(link model.RolePermission, resource, action string, now time.Time) bool {
	return link.Permission.Resource == resource &&
		link.Permission.Action == action &&
		link.Permission.Active &&
		link.Effective(now)
}

// assignmentBinds reports whether a role assignment contributes the role's
// grants: allow effect on the assignment itself, role active, not expired.
func assignmentBinds(assignment model.UserRole, now time.Time) bool {
	return assignment.Effect == model.EffectAllow &&
		assignment.Role.Active &&
		assignment.Effective(now)
}

func denyScopeMatches(denyScope, requiredScope string) bool {
	return denyScope == "" || denyScope == requiredScope
}

func decisionKey(userID, resource, action, scope string) string {
	return fmt.Sprintf("%s|%s|%s|%s", userID, resource, action, scope)
}

func (r *Resolver) userPermissions(ctx context.Context, userID string) ([]model.UserPermission, error) {
	if r.cache != nil {
		if grants, ok := r.cache.UserPermissions(ctx, userID); ok {
			return grants, nil
		}
	}

	grants, err := r.store.UserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.SetUserPermissions(ctx, userID, grants)
	}
	return grants, nil
}

func (r *Resolver) roleAssignments(ctx context.Context, userID string) ([]model.UserRole, error) {
	if r.cache != nil {
		if assignments, ok := r.cache.UserRoles(ctx, userID); ok {
			return assignments, nil
		}
	}

	assignments, err := r.store.RoleAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.SetUserRoles(ctx, userID, assignments)
	}
	return assignments, nil
}

func (r *Resolver) rolePermissions(ctx context.Context, roleID string) ([]model.RolePermission, error) {
	if r.cache != nil {
		if links, ok := r.cache.RolePermissions(ctx, roleID); ok {
			return links, nil
		}
	}

	links, err := r.store.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.SetRolePermissions(ctx, roleID, links)
	}
	return links, nil
}

// logDecision is a debug hook used by the guard.
func (r *Resolver) logDecision(userID, resource, action, scope string, decision bool) {
	logger.Debug("Permission resolved",
		zap.String("userID", userID),
		zap.String("resource", resource),
		zap.String("action", action),
		zap.String("scope", scope),
		zap.Bool("granted", decision))
}
