// dao/role_dao.go
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
	helper_util "github.com/accesskit/gatekeeper/api/util/helper"
)

type RoleDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewRoleDAO(driver neo4j.Driver, auditService audit.Service) *RoleDAO {
	dao := &RoleDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Role", zap.Error(err))
	}
	return dao
}

func (dao *RoleDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Role")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		for _, query := range []string{
			`CREATE CONSTRAINT unique_role_id IF NOT EXISTS
             FOR (r:` + gk_neo4j.LabelRole + `) REQUIRE r.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_role_name IF NOT EXISTS
             FOR (r:` + gk_neo4j.LabelRole + `) REQUIRE r.name IS UNIQUE`,
		} {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraints on Role", zap.Error(err))
		return err
	}

	return nil
}

func (dao *RoleDAO) CreateRole(ctx context.Context, role model.Role) (string, error) {
	start := time.Now()
	logger.Info("Creating new role", zap.String("roleName", role.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if role.ID == "" {
		role.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		existing, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+` {name: $name})
        RETURN r.id
        `, map[string]interface{}{"name": role.Name})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}
		if existing.Next() {
			return nil, gk_errors.ErrRoleConflict
		}

		query := `
        CREATE (r:` + gk_neo4j.LabelRole + ` {
            id:          $id,
            name:        $name,
            description: $description,
            priority:    $priority,
            parentID:    $parentID,
            active:      true,
            createdAt:   $now,
            updatedAt:   $now
        })
        `
		if role.ParentID != "" {
			query += `
        WITH r
        MATCH (p:` + gk_neo4j.LabelRole + ` {id: $parentID})
        MERGE (r)-[:` + gk_neo4j.RelParentRole + `]->(p)
        `
		}
		query += `
        RETURN r.id as id
        `

		result, err := transaction.Run(query, map[string]interface{}{
			"id":          role.ID,
			"name":        role.Name,
			"description": role.Description,
			"priority":    role.Priority,
			"parentID":    role.ParentID,
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
		logger.Error("Failed to create role",
			zap.Error(err),
			zap.String("roleName", role.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	roleID := result.(string)
	logger.Info("Role created successfully",
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindRoleChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: roleID,
		Metadata: map[string]interface{}{
			"change":    "created",
			"role_name": role.Name,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return roleID, nil
}

func (dao *RoleDAO) UpdateRole(ctx context.Context, role model.Role) (*model.Role, error) {
	logger.Info("Updating role", zap.String("roleID", role.ID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+` {id: $id})
        SET r.name        = $name,
            r.description = $description,
            r.priority    = $priority,
            r.active      = $active,
            r.updatedAt   = $now
        RETURN r
        `, map[string]interface{}{
			"id":          role.ID,
			"name":        role.Name,
			"description": role.Description,
			"priority":    role.Priority,
			"active":      role.Active,
			"now":         time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrRoleNotFound
	})

	if err != nil {
		logger.Error("Failed to update role",
			zap.Error(err),
			zap.String("roleID", role.ID))
		return nil, err
	}

	updated := roleFromNode(result.(neo4j.Node))

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindRoleChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: updated.ID,
		Metadata: map[string]interface{}{
			"change":    "updated",
			"role_name": updated.Name,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return &updated, nil
}

func (dao *RoleDAO) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+` {id: $id})
        RETURN r
        `, map[string]interface{}{"id": roleID})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrRoleNotFound
	})

	if err != nil {
		return nil, err
	}

	role := roleFromNode(result.(neo4j.Node))
	return &role, nil
}

func (dao *RoleDAO) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+` {name: $name})
        RETURN r
        `, map[string]interface{}{"name": name})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrRoleNotFound
	})

	if err != nil {
		return nil, err
	}

	role := roleFromNode(result.(neo4j.Node))
	return &role, nil
}

// ListRoles returns active roles ordered by priority. Inactive roles are
// excluded from listings; they remain fetchable by id.
func (dao *RoleDAO) ListRoles(ctx context.Context, limit, offset int) ([]*model.Role, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+`)
        WHERE r.active = true
        RETURN r
        ORDER BY r.priority DESC, r.name
        SKIP $offset LIMIT $limit
        `, map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		var roles []*model.Role
		for result.Next() {
			role := roleFromNode(result.Record().Values[0].(neo4j.Node))
			roles = append(roles, &role)
		}
		return roles, nil
	})

	if err != nil {
		logger.Error("Failed to list roles", zap.Error(err))
		return nil, err
	}

	return result.([]*model.Role), nil
}

// DeactivateRole soft-deletes a role. Existing assignments stay in the
// graph but stop binding at evaluation time.
func (dao *RoleDAO) DeactivateRole(ctx context.Context, roleID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+` {id: $id})
        SET r.active = false, r.updatedAt = $now
        RETURN r.id
        `, map[string]interface{}{
			"id":  roleID,
			"now": time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return nil, nil
		}
		return nil, gk_errors.ErrRoleNotFound
	})

	if err != nil {
		logger.Error("Failed to deactivate role",
			zap.Error(err),
			zap.String("roleID", roleID))
		return err
	}

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindRoleChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: roleID,
		Metadata: map[string]interface{}{"change": "deactivated"},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return nil
}

// GrantPermissionToRole links a permission to a role with an effect.
func (dao *RoleDAO) GrantPermissionToRole(ctx context.Context, roleID, permissionID string, effect model.Effect, expiresAt *time.Time) error {
	logger.Info("Granting permission to role",
		zap.String("roleID", roleID),
		zap.String("permissionID", permissionID),
		zap.String("effect", string(effect)))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+` {id: $roleID})
        MATCH (p:`+gk_neo4j.LabelPermission+` {id: $permissionID})
        MERGE (r)-[l:`+gk_neo4j.RelHasPermission+` {effect: $effect}]->(p)
        SET l.expiresAt = $expiresAt
        RETURN p.id
        `, map[string]interface{}{
			"roleID":       roleID,
			"permissionID": permissionID,
			"effect":       string(effect),
			"expiresAt":    helper_util.FormatNullableTime(expiresAt),
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
		logger.Error("Failed to grant permission to role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("permissionID", permissionID))
		return err
	}

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindRoleChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: roleID,
		Metadata: map[string]interface{}{
			"change":        "permission_granted",
			"permission_id": permissionID,
			"effect":        string(effect),
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return nil
}

// RevokePermissionFromRole removes a permission link from a role.
func (dao *RoleDAO) RevokePermissionFromRole(ctx context.Context, roleID, permissionID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (r:`+gk_neo4j.LabelRole+` {id: $roleID})-[l:`+gk_neo4j.RelHasPermission+`]->(p:`+gk_neo4j.LabelPermission+` {id: $permissionID})
        DELETE l
        RETURN count(l)
        `, map[string]interface{}{
			"roleID":       roleID,
			"permissionID": permissionID,
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() && result.Record().Values[0].(int64) > 0 {
			return nil, nil
		}
		return nil, gk_errors.ErrPermissionNotFound
	})

	if err != nil {
		logger.Error("Failed to revoke permission from role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("permissionID", permissionID))
		return err
	}

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindRoleChanged,
		ActorID:  actorFromContext(ctx),
		TargetID: roleID,
		Metadata: map[string]interface{}{
			"change":        "permission_revoked",
			"permission_id": permissionID,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return nil
}
