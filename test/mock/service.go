// test/mock/service.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/accesskit/gatekeeper/api/model"
)

// MockAccessService is a mock implementation of service.IAccessService
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) AssignRole(ctx context.Context, userID, roleID, assignedBy string, expiresAt *time.Time) (*model.UserRole, error) {
	args := m.Called(ctx, userID, roleID, assignedBy, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserRole), args.Error(1)
}

func (m *MockAccessService) RemoveRole(ctx context.Context, userID, roleID, actorID string) error {
	args := m.Called(ctx, userID, roleID, actorID)
	return args.Error(0)
}

func (m *MockAccessService) GrantPermission(ctx context.Context, userID, permissionID string, effect model.Effect, assignedBy string, expiresAt *time.Time) (*model.UserPermission, error) {
	args := m.Called(ctx, userID, permissionID, effect, assignedBy, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPermission), args.Error(1)
}

func (m *MockAccessService) RevokePermission(ctx context.Context, userID, permissionID, actorID string) error {
	args := m.Called(ctx, userID, permissionID, actorID)
	return args.Error(0)
}

func (m *MockAccessService) UserRoles(ctx context.Context, userID string) ([]model.UserRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserRole), args.Error(1)
}

func (m *MockAccessService) UserEffectivePermissions(ctx context.Context, userID string) ([]model.UserPermission, []model.RolePermission, error) {
	args := m.Called(ctx, userID)
	var direct []model.UserPermission
	var derived []model.RolePermission
	if args.Get(0) != nil {
		direct = args.Get(0).([]model.UserPermission)
	}
	if args.Get(1) != nil {
		derived = args.Get(1).([]model.RolePermission)
	}
	return direct, derived, args.Error(2)
}

func (m *MockAccessService) CheckAccess(ctx context.Context, userID, resource, action, scope string) (bool, error) {
	args := m.Called(ctx, userID, resource, action, scope)
	return args.Bool(0), args.Error(1)
}

// MockRoleService is a mock implementation of service.IRoleService
type MockRoleService struct {
	mock.Mock
}

func (m *MockRoleService) CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error) {
	args := m.Called(ctx, role, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) UpdateRole(ctx context.Context, role model.Role, updaterID string) (*model.Role, error) {
	args := m.Called(ctx, role, updaterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) DeactivateRole(ctx context.Context, roleID string, deleterID string) error {
	args := m.Called(ctx, roleID, deleterID)
	return args.Error(0)
}

func (m *MockRoleService) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) ListRoles(ctx context.Context, limit int, offset int) ([]*model.Role, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Role), args.Error(1)
}

func (m *MockRoleService) GrantPermission(ctx context.Context, roleID, permissionID string, effect model.Effect, expiresAt *time.Time, actorID string) error {
	args := m.Called(ctx, roleID, permissionID, effect, expiresAt, actorID)
	return args.Error(0)
}

func (m *MockRoleService) RevokePermission(ctx context.Context, roleID, permissionID, actorID string) error {
	args := m.Called(ctx, roleID, permissionID, actorID)
	return args.Error(0)
}

// MockPermissionService is a mock implementation of service.IPermissionService
type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) CreatePermission(ctx context.Context, permission model.Permission, creatorID string) (*model.Permission, error) {
	args := m.Called(ctx, permission, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Permission), args.Error(1)
}

func (m *MockPermissionService) UpdatePermission(ctx context.Context, permission model.Permission, updaterID string) (*model.Permission, error) {
	args := m.Called(ctx, permission, updaterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Permission), args.Error(1)
}

func (m *MockPermissionService) DeactivatePermission(ctx context.Context, permissionID string, deleterID string) error {
	args := m.Called(ctx, permissionID, deleterID)
	return args.Error(0)
}

func (m *MockPermissionService) GetPermission(ctx context.Context, permissionID string) (*model.Permission, error) {
	args := m.Called(ctx, permissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Permission), args.Error(1)
}

func (m *MockPermissionService) GetPermissionByTuple(ctx context.Context, resource, action, scope string) (*model.Permission, error) {
	args := m.Called(ctx, resource, action, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Permission), args.Error(1)
}

func (m *MockPermissionService) ListPermissions(ctx context.Context, criteria model.PermissionSearchCriteria, limit, offset int) ([]*model.Permission, error) {
	args := m.Called(ctx, criteria, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Permission), args.Error(1)
}
