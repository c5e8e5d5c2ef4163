// controller/controllers.go
package controller

import (
	"github.com/accesskit/gatekeeper/api/audit"
	"github.com/accesskit/gatekeeper/api/service"
	"github.com/accesskit/gatekeeper/api/util"
)

type Controllers struct {
	Access     *AccessController
	Role       *RoleController
	Permission *PermissionController
	Audit      *AuditController
}

func InitializeControllers(services *service.Services, auditService audit.Service, notificationSvc *util.NotificationService) *Controllers {
	return &Controllers{
		Access:     NewAccessController(services.Access),
		Role:       NewRoleController(services.Role),
		Permission: NewPermissionController(services.Permission),
		Audit:      NewAuditController(auditService, notificationSvc),
	}
}
