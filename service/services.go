// service/services.go
package service

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/accesskit/gatekeeper/api/audit"
	"github.com/accesskit/gatekeeper/api/authz"
	"github.com/accesskit/gatekeeper/api/dao"
	"github.com/accesskit/gatekeeper/api/util"
)

type Services struct {
	Access     IAccessService
	Role       IRoleService
	Permission IPermissionService
	Resolver   *authz.Resolver
	Resources  *dao.ResourceDAO
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	decisionCacheSize int,
	decisionCacheTTL time.Duration,
) (*Services, error) {
	grantDAO := dao.NewGrantDAO(driver, auditService)
	roleDAO := dao.NewRoleDAO(driver, auditService)
	permissionDAO := dao.NewPermissionDAO(driver, auditService)
	resourceDAO := dao.NewResourceDAO(driver)

	resolver := authz.NewResolver(grantDAO, cacheService, decisionCacheSize, decisionCacheTTL)

	services := &Services{
		Access:     NewAccessService(grantDAO, resolver, validationUtil, cacheService, notificationSvc, eventBus),
		Role:       NewRoleService(roleDAO, grantDAO, resolver, validationUtil, cacheService, notificationSvc, eventBus),
		Permission: NewPermissionService(permissionDAO, resolver, validationUtil, notificationSvc, eventBus),
		Resolver:   resolver,
		Resources:  resourceDAO,
	}

	return services, nil
}
