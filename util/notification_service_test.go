// util/notification_service_test.go
package util_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/util"
)

func TestNotificationService(t *testing.T) {
	logger.InitTestLogger()

	svc := util.NewNotificationService()
	ctx := context.Background()
	role := model.Role{ID: "r1", Name: "editor"}
	permission := model.Permission{ID: "p1", Resource: "document", Action: "read"}

	t.Run("RoleChange_AcceptedTypes", func(t *testing.T) {
		for _, changeType := range []string{"created", "updated", "deleted", "deactivated"} {
			assert.NoError(t, svc.NotifyRoleChange(ctx, changeType, role), changeType)
		}
	})

	t.Run("RoleChange_UnknownType", func(t *testing.T) {
		err := svc.NotifyRoleChange(ctx, "renamed", role)
		assert.ErrorContains(t, err, "unknown change type")
	})

	t.Run("PermissionChange_AcceptedTypes", func(t *testing.T) {
		for _, changeType := range []string{"created", "updated", "deactivated"} {
			assert.NoError(t, svc.NotifyPermissionChange(ctx, changeType, permission), changeType)
		}
	})

	t.Run("PermissionChange_UnknownType", func(t *testing.T) {
		err := svc.NotifyPermissionChange(ctx, "changed", permission)
		assert.ErrorContains(t, err, "unknown change type")
	})

	t.Run("AssignmentChange", func(t *testing.T) {
		assert.NoError(t, svc.NotifyAssignmentChange(ctx, "assigned", "u1", "r1"))
		assert.NoError(t, svc.NotifyAssignmentChange(ctx, "removed", "u1", "r1"))
	})

	t.Run("NotifyAdmins", func(t *testing.T) {
		assert.NoError(t, svc.NotifyAdmins(ctx, "3 actors exceeded 10 denials in the last 7 days"))
	})
}
