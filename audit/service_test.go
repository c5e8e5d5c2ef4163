// audit/service_test.go
package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accesskit/gatekeeper/api/audit"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/test/mock"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

func TestLogDefaultsIdentityAndTimestamp(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	repo.On("Index", tmock.Anything, tmock.Anything).Return(nil)

	svc := audit.NewService(repo)

	err := svc.Log(context.Background(), audit.Entry{
		Kind:    audit.KindAccessGranted,
		ActorID: "u1",
		Success: true,
	})
	require.NoError(t, err)

	indexed := repo.Calls[0].Arguments.Get(1).(audit.Entry)
	assert.NotEmpty(t, indexed.ID)
	assert.False(t, indexed.Timestamp.IsZero())
	assert.Equal(t, audit.SeverityInfo, indexed.Severity)
}

func TestLogPreservesExplicitFields(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	repo.On("Index", tmock.Anything, tmock.Anything).Return(nil)

	svc := audit.NewService(repo)

	err := svc.Log(context.Background(), audit.Entry{
		ID:       "fixed-id",
		Kind:     audit.KindAccessDenied,
		ActorID:  "u1",
		Severity: audit.SeverityWarning,
	})
	require.NoError(t, err)

	indexed := repo.Calls[0].Arguments.Get(1).(audit.Entry)
	assert.Equal(t, "fixed-id", indexed.ID)
	assert.Equal(t, audit.SeverityWarning, indexed.Severity)
}

func TestLogSurfacesIndexFailure(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	repo.On("Index", tmock.Anything, tmock.Anything).Return(errors.New("cluster unavailable"))

	svc := audit.NewService(repo)

	err := svc.Log(context.Background(), audit.Entry{Kind: audit.KindAccessGranted})
	assert.Error(t, err)
}

func TestRecordSwallowsIndexFailure(t *testing.T) {
	repo := new(mock.MockAuditRepository)
	repo.On("Index", tmock.Anything, tmock.Anything).Return(errors.New("cluster unavailable"))

	svc := audit.NewService(repo)

	// Must not panic or surface the failure.
	svc.Record(context.Background(), audit.Entry{Kind: audit.KindAdminBypass, ActorID: "root"})
	repo.AssertNumberOfCalls(t, "Index", 1)
}
