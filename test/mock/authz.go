// test/mock/authz.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/accesskit/gatekeeper/api/model"
)

// MockStore is a mock implementation of authz.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UserPermissions(ctx context.Context, userID string) ([]model.UserPermission, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserPermission), args.Error(1)
}

func (m *MockStore) RoleAssignments(ctx context.Context, userID string) ([]model.UserRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserRole), args.Error(1)
}

func (m *MockStore) RolePermissions(ctx context.Context, roleID string) ([]model.RolePermission, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RolePermission), args.Error(1)
}

// MockResourceFetcher is a mock implementation of authz.ResourceFetcher
type MockResourceFetcher struct {
	mock.Mock
}

func (m *MockResourceFetcher) FetchResource(ctx context.Context, resourceType, resourceID string) (map[string]interface{}, error) {
	args := m.Called(ctx, resourceType, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}
