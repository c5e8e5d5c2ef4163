// dao/resource_dao.go
package dao

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	gk_neo4j "github.com/accesskit/gatekeeper/api/model/neo4j"
)

// resourceLabels maps public resource type names to graph labels. Only
// mapped types can be fetched for ownership checks.
var resourceLabels = map[string]string{
	"user":     gk_neo4j.LabelUser,
	"role":     gk_neo4j.LabelRole,
	"resource": gk_neo4j.LabelResource,
}

type ResourceDAO struct {
	Driver neo4j.Driver
}

func NewResourceDAO(driver neo4j.Driver) *ResourceDAO {
	return &ResourceDAO{Driver: driver}
}

// FetchResource loads a resource's properties by type and id. A nil map
// with a nil error means the resource does not exist.
func (dao *ResourceDAO) FetchResource(ctx context.Context, resourceType, resourceID string) (map[string]interface{}, error) {
	label, ok := resourceLabels[resourceType]
	if !ok {
		logger.Warn("Ownership check against unmapped resource type",
			zap.String("resourceType", resourceType))
		return nil, gk_errors.ErrUnmappedResourceType
	}

	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`
        MATCH (n:`+label+` {id: $id})
        RETURN n
        `, map[string]interface{}{"id": resourceID})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to fetch resource",
			zap.Error(err),
			zap.String("resourceType", resourceType),
			zap.String("resourceID", resourceID),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	return resourceFromNode(result.(neo4j.Node)), nil
}
