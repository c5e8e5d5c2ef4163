// dao/permission_dao.go
package dao

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/accesskit/gatekeeper/api/audit"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	gk_neo4j "github.com/accesskit/gatekeeper/api/model/neo4j"
)

type PermissionDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewPermissionDAO(driver neo4j.Driver, auditService audit.Service) *PermissionDAO {
	dao := &PermissionDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Permission", zap.Error(err))
	}
	return dao
}

func (dao *PermissionDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Permission")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `CREATE CONSTRAINT unique_permission_id IF NOT EXISTS
                  FOR (p:` + gk_neo4j.LabelPermission + `) REQUIRE p.id IS UNIQUE`
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraints on Permission", zap.Error(err))
		return err
	}

	return nil
}

// CreatePermission inserts a permission. The (resource, action, scope)
// tuple is unique across active permissions.
func (dao *PermissionDAO) CreatePermission(ctx context.Context, permission model.Permission) (string, error) {
	start := time.Now()
	logger.Info("Creating new permission",
		zap.String("resource", permission.Resource),
		zap.String("action", permission.Action),
		zap.String("scope", permission.Scope))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if permission.ID == "" {
		permission.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		existing, err := transaction.Run(`
        MATCH (p:`+gk_neo4j.LabelPermission+` {resource: $resource, action: $action, scope: $scope})
        WHERE p.active = true
        RETURN p.id
        `, map[string]interface{}{
			"resource": permission.Resource,
			"action":   permission.Action,
			"scope":    permission.Scope,
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}
		if existing.Next() {
			return nil, gk_errors.ErrPermissionConflict
		}

		result, err := transaction.Run(`
        CREATE (p:`+gk_neo4j.LabelPermission+` {
            id:          $id,
            name:        $name,
            resource:    $resource,
            action:      $action,
            scope:       $scope,
            category:    $category,
            description: $description,
            active:      true,
            system:      $system,
            createdAt:   $now,
            updatedAt:   $now
        })
        RETURN p.id as id
        `, map[string]interface{}{
			"id":          permission.ID,
			"name":        permission.Name,
			"resource":    permission.Resource,
			"action":      permission.Action,
			"scope":       permission.Scope,
			"category":    permission.Category,
			"description": permission.Description,
			"system":      permission.System,
			"now":         time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create permission",
			zap.Error(err),
			zap.String("resource", permission.Resource),
			zap.String("action", permission.Action),
			zap.Duration("duration", duration))
		return "", err
	}

	permissionID := result.(string)
	logger.Info("Permission created successfully",
		zap.String("permissionID", permissionID),
		zap.Duration("duration", duration))

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindPermissionChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: permissionID,
		Metadata: map[string]interface{}{
			"change":   "created",
			"resource": permission.Resource,
			"action":   permission.Action,
			"scope":    permission.Scope,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return permissionID, nil
}

func (dao *PermissionDAO) UpdatePermission(ctx context.Context, permission model.Permission) (*model.Permission, error) {
	logger.Info("Updating permission", zap.String("permissionID", permission.ID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (p:`+gk_neo4j.LabelPermission+` {id: $id})
        SET p.name        = $name,
            p.category    = $category,
            p.description = $description,
            p.active      = $active,
            p.updatedAt   = $now
        RETURN p
        `, map[string]interface{}{
			"id":          permission.ID,
			"name":        permission.Name,
			"category":    permission.Category,
			"description": permission.Description,
			"active":      permission.Active,
			"now":         time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrPermissionNotFound
	})

	if err != nil {
		logger.Error("Failed to update permission",
			zap.Error(err),
			zap.String("permissionID", permission.ID))
		return nil, err
	}

	updated := permissionFromNode(result.(neo4j.Node))

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindPermissionChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: updated.ID,
		Metadata: map[string]interface{}{
			"change":   "updated",
			"resource": updated.Resource,
			"action":   updated.Action,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return &updated, nil
}

func (dao *PermissionDAO) GetPermission(ctx context.Context, permissionID string) (*model.Permission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (p:`+gk_neo4j.LabelPermission+` {id: $id})
        RETURN p
        `, map[string]interface{}{"id": permissionID})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrPermissionNotFound
	})

	if err != nil {
		return nil, err
	}

	permission := permissionFromNode(result.(neo4j.Node))
	return &permission, nil
}

// GetPermissionByTuple looks a permission up by its (resource, action, scope).
func (dao *PermissionDAO) GetPermissionByTuple(ctx context.Context, resource, action, scope string) (*model.Permission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (p:`+gk_neo4j.LabelPermission+` {resource: $resource, action: $action, scope: $scope})
        WHERE p.active = true
        RETURN p
        `, map[string]interface{}{
			"resource": resource,
			"action":   action,
			"scope":    scope,
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrPermissionNotFound
	})

	if err != nil {
		return nil, err
	}

	permission := permissionFromNode(result.(neo4j.Node))
	return &permission, nil
}

func (dao *PermissionDAO) ListPermissions(ctx context.Context, criteria model.PermissionSearchCriteria, limit, offset int) ([]*model.Permission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + gk_neo4j.LabelPermission + `)
        WHERE p.active = true
        `
		params := map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		}
		if criteria.Resource != "" {
			query += ` AND p.resource = $resource`
			params["resource"] = criteria.Resource
		}
		if criteria.Action != "" {
			query += ` AND p.action = $action`
			params["action"] = criteria.Action
		}
		if criteria.Category != "" {
			query += ` AND p.category = $category`
			params["category"] = criteria.Category
		}
		query += `
        RETURN p
        ORDER BY p.resource, p.action, p.scope
        SKIP $offset LIMIT $limit
        `

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		var permissions []*model.Permission
		for result.Next() {
			permission := permissionFromNode(result.Record().Values[0].(neo4j.Node))
			permissions = append(permissions, &permission)
		}
		return permissions, nil
	})

	if err != nil {
		logger.Error("Failed to list permissions", zap.Error(err))
		return nil, err
	}

	return result.([]*model.Permission), nil
}

// DeactivatePermission soft-deletes a permission. Grants that still
// reference it stop matching once it is inactive.
func (dao *PermissionDAO) DeactivatePermission(ctx context.Context, permissionID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (p:`+gk_neo4j.LabelPermission+` {id: $id})
        SET p.active = false, p.updatedAt = $now
        RETURN p.id
        `, map[string]interface{}{
			"id":  permissionID,
			"now": time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return nil, nil
		}
		return nil, gk_errors.ErrPermissionNotFound
	})

	if err != nil {
		logger.Error("Failed to deactivate permission",
			zap.Error(err),
			zap.String("permissionID", permissionID))
		return err
	}

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindPermissionChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: permissionID,
		Metadata: map[string]interface{}{"change": "deactivated"},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return nil
}
