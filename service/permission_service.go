// service/permission_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/accesskit/gatekeeper/api/authz"
	"github.com/accesskit/gatekeeper/api/dao"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/util"
)

// IPermissionService defines the interface for permission catalog operations
type IPermissionService interface {
	CreatePermission(ctx context.Context, permission model.Permission, creatorID string) (*model.Permission, error)
	UpdatePermission(ctx context.Context, permission model.Permission, updaterID string) (*model.Permission, error)
	DeactivatePermission(ctx context.Context, permissionID string, deleterID string) error
	GetPermission(ctx context.Context, permissionID string) (*model.Permission, error)
	GetPermissionByTuple(ctx context.Context, resource, action, scope string) (*model.Permission, error)
	ListPermissions(ctx context.Context, criteria model.PermissionSearchCriteria, limit, offset int) ([]*model.Permission, error)
}

// PermissionService handles business logic for permission operations
type PermissionService struct {
	permissionDAO   *dao.PermissionDAO
	resolver        *authz.Resolver
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IPermissionService = &PermissionService{}

// NewPermissionService creates a new instance of PermissionService
func NewPermissionService(permissionDAO *dao.PermissionDAO, resolver *authz.Resolver, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, eventBus *util.EventBus) *PermissionService {
	service := &PermissionService{
		permissionDAO:   permissionDAO,
		resolver:        resolver,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe(util.EventPermissionChanged, service.handlePermissionChanged)

	return service
}

// permissionChange is the payload carried by permission catalog events.
type permissionChange struct {
	ChangeType string
	Permission model.Permission
}

func (s *PermissionService) handlePermissionChanged(ctx context.Context, event util.Event) error {
	change := event.Payload.(permissionChange)
	logger.Info("Permission changed event received",
		zap.String("permissionID", change.Permission.ID),
		zap.String("changeType", change.ChangeType))

	if err := s.notificationSvc.NotifyPermissionChange(ctx, change.ChangeType, change.Permission); err != nil {
		logger.Warn("Failed to send permission change notification",
			zap.Error(err),
			zap.String("permissionID", change.Permission.ID))
		return err
	}

	return nil
}

// CreatePermission handles the creation of a new permission
func (s *PermissionService) CreatePermission(ctx context.Context, permission model.Permission, creatorID string) (*model.Permission, error) {
	if err := s.validationUtil.ValidatePermission(permission); err != nil {
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidPermissionData, err)
	}

	permission.Active = true
	permission.CreatedAt = time.Now()
	permission.UpdatedAt = time.Now()

	permissionID, err := s.permissionDAO.CreatePermission(dao.ContextWithActor(ctx, creatorID), permission)
	if err != nil {
		logger.Error("Error creating permission", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	permission.ID = permissionID

	s.eventBus.Publish(ctx, util.EventPermissionChanged, permissionChange{ChangeType: "created", Permission: permission})

	logger.Info("Permission created successfully",
		zap.String("permissionID", permissionID),
		zap.String("creatorID", creatorID))
	return &permission, nil
}

// UpdatePermission handles updates to an existing permission. The
// (resource, action, scope) tuple is immutable; only metadata changes.
func (s *PermissionService) UpdatePermission(ctx context.Context, permission model.Permission, updaterID string) (*model.Permission, error) {
	if err := s.validationUtil.ValidatePermission(permission); err != nil {
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidPermissionData, err)
	}

	permission.UpdatedAt = time.Now()

	updated, err := s.permissionDAO.UpdatePermission(dao.ContextWithActor(ctx, updaterID), permission)
	if err != nil {
		logger.Error("Error updating permission",
			zap.Error(err),
			zap.String("permissionID", permission.ID),
			zap.String("updaterID", updaterID))
		return nil, err
	}

	// Active flag changes alter evaluation outcomes everywhere.
	s.resolver.InvalidateAllDecisions()

	s.eventBus.Publish(ctx, util.EventPermissionChanged, permissionChange{ChangeType: "updated", Permission: *updated})

	logger.Info("Permission updated successfully",
		zap.String("permissionID", permission.ID),
		zap.String("updaterID", updaterID))
	return updated, nil
}

// DeactivatePermission soft-deletes a permission that no role or user
// still references.
func (s *PermissionService) DeactivatePermission(ctx context.Context, permissionID string, deleterID string) error {
	if err := s.permissionDAO.DeactivatePermission(dao.ContextWithActor(ctx, deleterID), permissionID); err != nil {
		logger.Error("Error deactivating permission",
			zap.Error(err),
			zap.String("permissionID", permissionID),
			zap.String("deleterID", deleterID))
		return err
	}

	s.resolver.InvalidateAllDecisions()

	s.eventBus.Publish(ctx, util.EventPermissionChanged, permissionChange{ChangeType: "deactivated", Permission: model.Permission{ID: permissionID}})

	logger.Info("Permission deactivated successfully",
		zap.String("permissionID", permissionID),
		zap.String("deleterID", deleterID))
	return nil
}

// GetPermission retrieves a permission by its ID
func (s *PermissionService) GetPermission(ctx context.Context, permissionID string) (*model.Permission, error) {
	permission, err := s.permissionDAO.GetPermission(ctx, permissionID)
	if err != nil {
		if errors.Is(err, gk_errors.ErrPermissionNotFound) {
			return nil, gk_errors.ErrPermissionNotFound
		}
		logger.Error("Error retrieving permission", zap.Error(err), zap.String("permissionID", permissionID))
		return nil, gk_errors.ErrInternalServer
	}

	return permission, nil
}

// GetPermissionByTuple retrieves a permission by (resource, action, scope)
func (s *PermissionService) GetPermissionByTuple(ctx context.Context, resource, action, scope string) (*model.Permission, error) {
	permission, err := s.permissionDAO.GetPermissionByTuple(ctx, resource, action, scope)
	if err != nil {
		if errors.Is(err, gk_errors.ErrPermissionNotFound) {
			return nil, gk_errors.ErrPermissionNotFound
		}
		logger.Error("Error retrieving permission by tuple",
			zap.Error(err),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.String("scope", scope))
		return nil, gk_errors.ErrInternalServer
	}

	return permission, nil
}

// ListPermissions retrieves active permissions matching the criteria
func (s *PermissionService) ListPermissions(ctx context.Context, criteria model.PermissionSearchCriteria, limit, offset int) ([]*model.Permission, error) {
	permissions, err := s.permissionDAO.ListPermissions(ctx, criteria, limit, offset)
	if err != nil {
		logger.Error("Error listing permissions", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	return permissions, nil
}
