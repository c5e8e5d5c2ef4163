// test/mock/audit.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/accesskit/gatekeeper/api/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Log(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditService) Record(ctx context.Context, entry audit.Entry) {
	m.Called(ctx, entry)
}

func (m *MockAuditService) Query(ctx context.Context, filter audit.Filter, page audit.Pagination) ([]audit.Entry, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditService) FindSuspiciousActivity(ctx context.Context, windowDays, denialThreshold int) ([]audit.ActorActivity, error) {
	args := m.Called(ctx, windowDays, denialThreshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.ActorActivity), args.Error(1)
}

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Index(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) Search(ctx context.Context, filter audit.Filter, page audit.Pagination) ([]audit.Entry, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) AggregateDenials(ctx context.Context, windowDays, denialThreshold int) ([]audit.ActorActivity, error) {
	args := m.Called(ctx, windowDays, denialThreshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.ActorActivity), args.Error(1)
}
