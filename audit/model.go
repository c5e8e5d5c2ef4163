// audit/model.go
package audit

import "time"

// Event kinds recorded by the authorization engine.
const (
	KindAccessGranted     = "ACCESS_GRANTED"
	KindAccessDenied      = "ACCESS_DENIED"
	KindAdminBypass       = "ADMIN_BYPASS"
	KindRoleAssigned      = "ROLE_ASSIGNED"
	KindRoleRemoved       = "ROLE_REMOVED"
	KindPermissionGranted = "PERMISSION_GRANTED"
	KindPermissionRevoked = "PERMISSION_REVOKED"
	KindRoleChanged       = "ROLE_CHANGED"
	KindPermissionChanged = "PERMISSION_CHANGED"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Entry is an immutable audit record. Entries are append-only; nothing in
// this package mutates or deletes them once indexed.
type Entry struct {
	ID           string                 `json:"id,omitempty"`
	Kind         string                 `json:"kind"`
	ActorID      string                 `json:"actor_id"`
	TargetID     string                 `json:"target_id,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	IP           string                 `json:"ip,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	Success      bool                   `json:"success"`
	Severity     string                 `json:"severity"`
	Error        string                 `json:"error,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Filter narrows audit queries. Zero values are ignored.
type Filter struct {
	From         time.Time
	To           time.Time
	ActorID      string
	Kind         string
	ResourceType string
	Success      *bool
}

type Pagination struct {
	Limit  int
	Offset int
}

// ActorActivity is an aggregated count of denied attempts for one actor,
// grouped by resource type. Used for anomaly detection.
type ActorActivity struct {
	ActorID      string `json:"actor_id"`
	ResourceType string `json:"resource_type,omitempty"`
	DeniedCount  int64  `json:"denied_count"`
}
