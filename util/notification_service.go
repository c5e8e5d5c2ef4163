// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
)

// NotificationService surfaces access-control changes to interested
// parties. The current implementation logs; a message queue client would
// slot in here.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyRoleChange(ctx context.Context, changeType string, role model.Role) error {
	switch changeType {
	case "created", "updated", "deleted", "deactivated":
		logger.Info("NOTIFICATION: Role "+changeType,
			zap.String("roleID", role.ID),
			zap.String("roleName", role.Name))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return nil
}

func (n *NotificationService) NotifyPermissionChange(ctx context.Context, changeType string, permission model.Permission) error {
	switch changeType {
	case "created", "updated", "deactivated":
		logger.Info("NOTIFICATION: Permission "+changeType,
			zap.String("permissionID", permission.ID),
			zap.String("resource", permission.Resource),
			zap.String("action", permission.Action))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return nil
}

func (n *NotificationService) NotifyAssignmentChange(ctx context.Context, changeType, userID, roleID string) error {
	logger.Info("NOTIFICATION: Role assignment "+changeType,
		zap.String("userID", userID),
		zap.String("roleID", roleID))
	return nil
}

// NotifyAdmins flags events that deserve operator attention, such as
// suspicious denial volumes.
func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	logger.Warn("Notifying admins", zap.String("message", message))
	return nil
}
