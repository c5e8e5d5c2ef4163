// dao/helpers.go
package dao

import (
	"context"
	"encoding/json"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/accesskit/gatekeeper/api/model"
	helper_util "github.com/accesskit/gatekeeper/api/util/helper"
)

type contextKey string

const actorContextKey contextKey = "gatekeeper.actor"

// ContextWithActor tags a context with the acting user so DAO-level audit
// records can attribute catalog changes.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorContextKey, actorID)
}

func actorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorContextKey).(string); ok {
		return v
	}
	return "system"
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func boolProp(props map[string]interface{}, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}

func intProp(props map[string]interface{}, key string) int {
	switch v := props[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func timeProp(props map[string]interface{}, key string) time.Time {
	t, err := helper_util.ParseTime(stringProp(props, key))
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTimeProp(props map[string]interface{}, key string) *time.Time {
	value, ok := props[key]
	if !ok {
		return nil
	}
	t, err := helper_util.ParseNullableTime(value)
	if err != nil {
		return nil
	}
	return t
}

func effectProp(props map[string]interface{}, key string) model.Effect {
	if v := stringProp(props, key); v != "" {
		return model.Effect(v)
	}
	return model.EffectAllow
}

func permissionFromNode(node neo4j.Node) model.Permission {
	props := node.Props
	return model.Permission{
		ID:          stringProp(props, "id"),
		Name:        stringProp(props, "name"),
		Resource:    stringProp(props, "resource"),
		Action:      stringProp(props, "action"),
		Scope:       stringProp(props, "scope"),
		Category:    stringProp(props, "category"),
		Description: stringProp(props, "description"),
		Active:      boolProp(props, "active"),
		System:      boolProp(props, "system"),
		CreatedAt:   timeProp(props, "createdAt"),
		UpdatedAt:   timeProp(props, "updatedAt"),
	}
}

func roleFromNode(node neo4j.Node) model.Role {
	props := node.Props
	return model.Role{
		ID:          stringProp(props, "id"),
		Name:        stringProp(props, "name"),
		Description: stringProp(props, "description"),
		Priority:    intProp(props, "priority"),
		ParentID:    stringProp(props, "parentID"),
		Active:      boolProp(props, "active"),
		CreatedAt:   timeProp(props, "createdAt"),
		UpdatedAt:   timeProp(props, "updatedAt"),
	}
}

// resourceFromNode flattens a resource node into a map for ownership field
// lookup, decoding the attributes JSON blob into a nested map when present.
func resourceFromNode(node neo4j.Node) map[string]interface{} {
	out := make(map[string]interface{}, len(node.Props))
	for k, v := range node.Props {
		out[k] = v
	}
	if raw, ok := out["attributes"].(string); ok && raw != "" {
		var nested map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &nested); err == nil {
			out["attributes"] = nested
		}
	}
	return out
}
