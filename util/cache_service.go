// util/cache_service.go

package util

import (
	"context"

	"go.uber.org/zap"

	"github.com/accesskit/gatekeeper/api/db"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
)

// CacheService is the read-through grant cache over Redis. Reads and writes
// swallow backend failures and degrade to misses; the resolver then falls
// back to the persistence layer. Invalidation errors are reported so the
// caller can at least log them.
type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) UserPermissions(ctx context.Context, userID string) ([]model.UserPermission, bool) {
	grants, hit, err := db.GetCachedUserPermissions(ctx, userID)
	if err != nil {
		logger.Warn("User permission cache read failed, falling back to store",
			zap.Error(err), zap.String("userID", userID))
		return nil, false
	}
	return grants, hit
}

func (c *CacheService) SetUserPermissions(ctx context.Context, userID string, grants []model.UserPermission) {
	if err := db.CacheUserPermissions(ctx, userID, grants); err != nil {
		logger.Warn("Failed to cache user permissions",
			zap.Error(err), zap.String("userID", userID))
	}
}

func (c *CacheService) UserRoles(ctx context.Context, userID string) ([]model.UserRole, bool) {
	assignments, hit, err := db.GetCachedUserRoles(ctx, userID)
	if err != nil {
		logger.Warn("User role cache read failed, falling back to store",
			zap.Error(err), zap.String("userID", userID))
		return nil, false
	}
	return assignments, hit
}

func (c *CacheService) SetUserRoles(ctx context.Context, userID string, assignments []model.UserRole) {
	if err := db.CacheUserRoles(ctx, userID, assignments); err != nil {
		logger.Warn("Failed to cache user roles",
			zap.Error(err), zap.String("userID", userID))
	}
}

func (c *CacheService) RolePermissions(ctx context.Context, roleID string) ([]model.RolePermission, bool) {
	links, hit, err := db.GetCachedRolePermissions(ctx, roleID)
	if err != nil {
		logger.Warn("Role permission cache read failed, falling back to store",
			zap.Error(err), zap.String("roleID", roleID))
		return nil, false
	}
	return links, hit
}

func (c *CacheService) SetRolePermissions(ctx context.Context, roleID string, links []model.RolePermission) {
	if err := db.CacheRolePermissions(ctx, roleID, links); err != nil {
		logger.Warn("Failed to cache role permissions",
			zap.Error(err), zap.String("roleID", roleID))
	}
}

// InvalidateUser removes both the permission and role entries for a user.
// Called synchronously after any grant or assignment mutation.
func (c *CacheService) InvalidateUser(ctx context.Context, userID string) error {
	if err := db.DeleteCachedUserPermissions(ctx, userID); err != nil {
		return err
	}
	return db.DeleteCachedUserRoles(ctx, userID)
}

// InvalidateRole removes the cached permission set of a role.
func (c *CacheService) InvalidateRole(ctx context.Context, roleID string) error {
	return db.DeleteCachedRolePermissions(ctx, roleID)
}

// InvalidateUsersWithRole fans InvalidateUser out over every user holding
// a role whose permission set changed.
func (c *CacheService) InvalidateUsersWithRole(ctx context.Context, userIDs []string) error {
	var firstErr error
	for _, userID := range userIDs {
		if err := c.InvalidateUser(ctx, userID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
