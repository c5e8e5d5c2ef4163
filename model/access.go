// model/access.go
package model

import "time"

// Effect states whether a grant allows or denies the permission it names.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// RoleTypeAdmin is the distinguished role type that bypasses all role and
// permission checks. Every bypass is recorded in the audit trail.
const RoleTypeAdmin = "super_admin"

// Principal is the authenticated actor an authorization decision is made for.
// It is resolved by the authentication middleware before the guard runs.
type Principal struct {
	ID       string `json:"id"`
	RoleType string `json:"role_type"`
}

type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"` // e.g., "read", "create", "update", "delete"
	Scope       string    `json:"scope,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	System      bool      `json:"system"` // reserved permissions cannot be edited
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Priority    int       `json:"priority"` // display tie-break only
	ParentID    string    `json:"parent_id,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission links a role to a permission with an effect. At most one
// effective link per (role, permission) pair is consulted at evaluation time.
type RolePermission struct {
	RoleID     string     `json:"role_id"`
	Permission Permission `json:"permission"`
	Effect     Effect     `json:"effect"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// UserRole assigns a role to a user. A user may hold any number of
// simultaneous assignments.
type UserRole struct {
	UserID     string     `json:"user_id"`
	Role       Role       `json:"role"`
	Effect     Effect     `json:"effect"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	AssignedBy string     `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// UserPermission is a direct grant or denial attached to a user, bypassing
// roles entirely.
type UserPermission struct {
	UserID     string     `json:"user_id"`
	Permission Permission `json:"permission"`
	Effect     Effect     `json:"effect"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	AssignedBy string     `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// Effective reports whether the link itself is still live. Callers must also
// check the Active flag on the referenced permission.
func (p UserPermission) Effective(now time.Time) bool {
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

func (r UserRole) Effective(now time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

func (rp RolePermission) Effective(now time.Time) bool {
	return rp.ExpiresAt == nil || rp.ExpiresAt.After(now)
}

type RoleSearchCriteria struct {
	Name      string `json:"name,omitempty"`
	Active    *bool  `json:"active,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

type PermissionSearchCriteria struct {
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
	Category string `json:"category,omitempty"`
	Active   *bool  `json:"active,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
