// service/notification_wiring_test.go
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/util"
)

// The event payloads published by the services must round-trip through the
// handlers into NotificationService without being rejected.
func TestCatalogEventHandlersDeliverNotifications(t *testing.T) {
	logger.InitTestLogger()
	ctx := context.Background()

	roleSvc := &RoleService{notificationSvc: util.NewNotificationService()}
	permissionSvc := &PermissionService{notificationSvc: util.NewNotificationService()}

	t.Run("RoleChanges", func(t *testing.T) {
		for _, changeType := range []string{"created", "updated", "deactivated"} {
			event := util.Event{
				Type:    util.EventRoleChanged,
				Payload: roleChange{ChangeType: changeType, Role: model.Role{ID: "r1", Name: "editor"}},
			}
			assert.NoError(t, roleSvc.handleRoleChanged(ctx, event), changeType)
		}
	})

	t.Run("RoleChange_UnknownTypeSurfaces", func(t *testing.T) {
		event := util.Event{
			Type:    util.EventRoleChanged,
			Payload: roleChange{ChangeType: "renamed", Role: model.Role{ID: "r1"}},
		}
		assert.Error(t, roleSvc.handleRoleChanged(ctx, event))
	})

	t.Run("PermissionChanges", func(t *testing.T) {
		for _, changeType := range []string{"created", "updated", "deactivated"} {
			event := util.Event{
				Type:    util.EventPermissionChanged,
				Payload: permissionChange{ChangeType: changeType, Permission: model.Permission{ID: "p1"}},
			}
			assert.NoError(t, permissionSvc.handlePermissionChanged(ctx, event), changeType)
		}
	})
}

func TestAssignmentEventHandlersDeliverNotifications(t *testing.T) {
	logger.InitTestLogger()
	ctx := context.Background()

	accessSvc := &AccessService{notificationSvc: util.NewNotificationService()}

	t.Run("RoleAssigned", func(t *testing.T) {
		event := util.Event{
			Type:    util.EventRoleAssigned,
			Payload: model.UserRole{UserID: "u1", Role: model.Role{ID: "r1"}},
		}
		assert.NoError(t, accessSvc.handleRoleAssigned(ctx, event))
	})

	t.Run("RoleRemoved", func(t *testing.T) {
		event := util.Event{
			Type:    util.EventRoleRemoved,
			Payload: map[string]string{"userID": "u1", "roleID": "r1"},
		}
		assert.NoError(t, accessSvc.handleRoleRemoved(ctx, event))
	})
}
