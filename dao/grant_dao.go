// dao/grant_dao.go
package dao

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/accesskit/gatekeeper/api/audit"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	gk_neo4j "github.com/accesskit/gatekeeper/api/model/neo4j"
	helper_util "github.com/accesskit/gatekeeper/api/util/helper"
)

// GrantDAO reads and writes the grant graph: role assignments, direct user
// grants and role permission links. It is the persistence side of the
// resolver's Store contract.
type GrantDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewGrantDAO(driver neo4j.Driver, auditService audit.Service) *GrantDAO {
	return &GrantDAO{Driver: driver, AuditService: auditService}
}

// UserPermissions returns the direct grants attached to a user. Rows come
// back with effect, expiry and the joined permission intact; effectiveness
// filtering is the resolver's job.
func (dao *GrantDAO) UserPermissions(ctx context.Context, userID string) ([]model.UserPermission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + gk_neo4j.LabelUser + ` {id: $userID})-[g:` + gk_neo4j.RelHasDirectPermission + `]->(p:` + gk_neo4j.LabelPermission + `)
        RETURN g, p
        `
		result, err := transaction.Run(query, map[string]interface{}{"userID": userID})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		var grants []model.UserPermission
		for result.Next() {
			record := result.Record()
			rel := record.Values[0].(neo4j.Relationship)
			node := record.Values[1].(neo4j.Node)
			grants = append(grants, model.UserPermission{
				UserID:     userID,
				Permission: permissionFromNode(node),
				Effect:     effectProp(rel.Props, "effect"),
				ExpiresAt:  nullableTimeProp(rel.Props, "expiresAt"),
				AssignedBy: stringProp(rel.Props, "assignedBy"),
				AssignedAt: timeProp(rel.Props, "assignedAt"),
			})
		}
		return grants, nil
	})

	if err != nil {
		logger.Error("Failed to fetch user permissions",
			zap.Error(err),
			zap.String("userID", userID))
		return nil, err
	}

	return result.([]model.UserPermission), nil
}

// RoleAssignments returns the role assignments held by a user, role joined
// in.
func (dao *GrantDAO) RoleAssignments(ctx context.Context, userID string) ([]model.UserRole, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + gk_neo4j.LabelUser + ` {id: $userID})-[a:` + gk_neo4j.RelHasRole + `]->(r:` + gk_neo4j.LabelRole + `)
        RETURN a, r
        `
		result, err := transaction.Run(query, map[string]interface{}{"userID": userID})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		var assignments []model.UserRole
		for result.Next() {
			record := result.Record()
			rel := record.Values[0].(neo4j.Relationship)
			node := record.Values[1].(neo4j.Node)
			assignments = append(assignments, model.UserRole{
				UserID:     userID,
				Role:       roleFromNode(node),
				Effect:     effectProp(rel.Props, "effect"),
				ExpiresAt:  nullableTimeProp(rel.Props, "expiresAt"),
				AssignedBy: stringProp(rel.Props, "assignedBy"),
				AssignedAt: timeProp(rel.Props, "assignedAt"),
			})
		}
		return assignments, nil
	})

	if err != nil {
		logger.Error("Failed to fetch role assignments",
			zap.Error(err),
			zap.String("userID", userID))
		return nil, err
	}

	return result.([]model.UserRole), nil
}

// RolePermissions returns the permission links owned by a role.
func (dao *GrantDAO) RolePermissions(ctx context.Context, roleID string) ([]model.RolePermission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:` + gk_neo4j.LabelRole + ` {id: $roleID})-[l:` + gk_neo4j.RelHasPermission + `]->(p:` + gk_neo4j.LabelPermission + `)
        RETURN l, p
        `
		result, err := transaction.Run(query, map[string]interface{}{"roleID": roleID})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		var links []model.RolePermission
		for result.Next() {
			record := result.Record()
			rel := record.Values[0].(neo4j.Relationship)
			node := record.Values[1].(neo4j.Node)
			links = append(links, model.RolePermission{
				RoleID:     roleID,
				Permission: permissionFromNode(node),
				Effect:     effectProp(rel.Props, "effect"),
				ExpiresAt:  nullableTimeProp(rel.Props, "expiresAt"),
			})
		}
		return links, nil
	})

	if err != nil {
		logger.Error("Failed to fetch role permissions",
			zap.Error(err),
			zap.String("roleID", roleID))
		return nil, err
	}

	return result.([]model.RolePermission), nil
}

// UserIDsWithRole returns every user currently holding the role, for cache
// invalidation fan-out when the role's permission set changes.
func (dao *GrantDAO) UserIDsWithRole(ctx context.Context, roleID string) ([]string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + gk_neo4j.LabelUser + `)-[:` + gk_neo4j.RelHasRole + `]->(r:` + gk_neo4j.LabelRole + ` {id: $roleID})
        RETURN u.id
        `
		result, err := transaction.Run(query, map[string]interface{}{"roleID": roleID})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		var userIDs []string
		for result.Next() {
			userIDs = append(userIDs, result.Record().Values[0].(string))
		}
		return userIDs, nil
	})

	if err != nil {
		logger.Error("Failed to list users with role",
			zap.Error(err),
			zap.String("roleID", roleID))
		return nil, err
	}

	return result.([]string), nil
}

// CreateRoleAssignment assigns a role to a user. Duplicate live
// assignments are a conflict.
func (dao *GrantDAO) CreateRoleAssignment(ctx context.Context, userID, roleID, assignedBy string, expiresAt *time.Time) (*model.UserRole, error) {
	start := time.Now()
	logger.Info("Creating role assignment",
		zap.String("userID", userID),
		zap.String("roleID", roleID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	now := time.Now()
	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		existing, err := transaction.Run(`
        MATCH (u:`+gk_neo4j.LabelUser+` {id: $userID})-[a:`+gk_neo4j.RelHasRole+`]->(r:`+gk_neo4j.LabelRole+` {id: $roleID})
        WHERE a.expiresAt = '' OR a.expiresAt > $now
        RETURN a
        `, map[string]interface{}{
			"userID": userID,
			"roleID": roleID,
			"now":    now.Format(time.RFC3339),
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}
		if existing.Next() {
			return nil, gk_errors.ErrAssignmentConflict
		}

		result, err := transaction.Run(`
        MATCH (u:`+gk_neo4j.LabelUser+` {id: $userID})
        MATCH (r:`+gk_neo4j.LabelRole+` {id: $roleID})
        CREATE (u)-[a:`+gk_neo4j.RelHasRole+` {
            effect:     $effect,
            assignedBy: $assignedBy,
            assignedAt: $assignedAt,
            expiresAt:  $expiresAt
        }]->(r)
        RETURN r
        `, map[string]interface{}{
			"userID":     userID,
			"roleID":     roleID,
			"effect":     string(model.EffectAllow),
			"assignedBy": assignedBy,
			"assignedAt": now.Format(time.RFC3339),
			"expiresAt":  helper_util.FormatNullableTime(expiresAt),
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, gk_errors.ErrRoleNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create role assignment",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("roleID", roleID),
			zap.Duration("duration", duration))
		return nil, err
	}

	assignment := &model.UserRole{
		UserID:     userID,
		Role:       roleFromNode(result.(neo4j.Node)),
		Effect:     model.EffectAllow,
		ExpiresAt:  expiresAt,
		AssignedBy: assignedBy,
		AssignedAt: now,
	}

	logger.Info("Role assignment created",
		zap.String("userID", userID),
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindRoleAssigned,
		ActorID:  assignedBy,
		TargetID: userID,
		Metadata: map[string]interface{}{
			"role_id":   roleID,
			"role_name": assignment.Role.Name,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return assignment, nil
}

// DeleteRoleAssignment removes a role assignment.
func (dao *GrantDAO) DeleteRoleAssignment(ctx context.Context, userID, roleID, actorID string) error {
	logger.Info("Removing role assignment",
		zap.String("userID", userID),
		zap.String("roleID", roleID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (u:`+gk_neo4j.LabelUser+` {id: $userID})-[a:`+gk_neo4j.RelHasRole+`]->(r:`+gk_neo4j.LabelRole+` {id: $roleID})
        DELETE a
        RETURN count(a)
        `, map[string]interface{}{
			"userID": userID,
			"roleID": roleID,
		})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() && result.Record().Values[0].(int64) > 0 {
			return nil, nil
		}
		return nil, gk_errors.ErrAssignmentNotFound
	})

	if err != nil {
		logger.Error("Failed to remove role assignment",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("roleID", roleID))
		return err
	}

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindRoleRemoved,
		ActorID:  actorID,
		TargetID: userID,
		Metadata: map[string]interface{}{
			"role_id": roleID,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return nil
}

// CreateUserPermission attaches a direct grant or denial to a user.
func (dao *GrantDAO) CreateUserPermission(ctx context.Context, userID, permissionID string, effect model.Effect, assignedBy string, expiresAt *time.Time) (*model.UserPermission, error) {
	logger.Info("Creating direct user grant",
		zap.String("userID", userID),
		zap.String("permissionID", permissionID),
		zap.String("effect", string(effect)))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	now := time.Now()
	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (u:`+gk_neo4j.LabelUser+` {id: $userID})
        MATCH (p:`+gk_neo4j.LabelPermission+` {id: $permissionID})
        MERGE (u)-[g:`+gk_neo4j.RelHasDirectPermission+` {effect: $effect}]->(p)
        SET g.assignedBy = $assignedBy,
            g.assignedAt = $assignedAt,
            g.expiresAt  = $expiresAt
        RETURN p
        `, map[string]interface{}{
			"userID":       userID,
			"permissionID": permissionID,
			"effect":       string(effect),
			"assignedBy":   assignedBy,
			"assignedAt":   now.Format(time.RFC3339),
			"expiresAt":    helper_util.FormatNullableTime(expiresAt),
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
		logger.Error("Failed to create direct user grant",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("permissionID", permissionID))
		return nil, err
	}

	grant := &model.UserPermission{
		UserID:     userID,
		Permission: permissionFromNode(result.(neo4j.Node)),
		Effect:     effect,
		ExpiresAt:  expiresAt,
		AssignedBy: assignedBy,
		AssignedAt: now,
	}

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindPermissionGranted,
		ActorID:  assignedBy,
		TargetID: userID,
		Metadata: map[string]interface{}{
			"permission_id": permissionID,
			"resource":      grant.Permission.Resource,
			"action":        grant.Permission.Action,
			"effect":        string(effect),
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return grant, nil
}

// DeleteUserPermission removes a direct grant.
func (dao *GrantDAO) DeleteUserPermission(ctx context.Context, userID, permissionID, actorID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (u:`+gk_neo4j.LabelUser+` {id: $userID})-[g:`+gk_neo4j.RelHasDirectPermission+`]->(p:`+gk_neo4j.LabelPermission+` {id: $permissionID})
        DELETE g
        RETURN count(g)
        `, map[string]interface{}{
			"userID":       userID,
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
		logger.Error("Failed to remove direct user grant",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("permissionID", permissionID))
		return err
	}

	dao.AuditService.Record(ctx, audit.Entry{
		Kind:     audit.KindPermissionRevoked,
		ActorID:  actorID,
		TargetID: userID,
		Metadata: map[string]interface{}{
			"permission_id": permissionID,
		},
		Success:  true,
		Severity: audit.SeverityInfo,
	})

	return nil
}
