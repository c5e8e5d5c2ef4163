// model/neo4j/schema.go
package gk_neo4j

// Node Labels
const (
	// LabelUser represents a principal in the system
	LabelUser = "User"

	// LabelRole represents a role assignable to users
	LabelRole = "Role"

	// LabelPermission represents a (resource, action, scope) permission
	LabelPermission = "Permission"

	// LabelResource represents a domain resource instance used by
	// ownership checks
	LabelResource = "Resource"
)

// Relationship Types
const (
	// RelHasRole links a user to an assigned role. Carries effect,
	// expiresAt, assignedBy and assignedAt properties.
	RelHasRole = "HAS_ROLE"

	// RelHasPermission links a role to a permission. Carries effect and
	// expiresAt properties.
	RelHasPermission = "HAS_PERMISSION"

	// RelHasDirectPermission links a user straight to a permission,
	// bypassing roles. Same properties as RelHasRole.
	RelHasDirectPermission = "HAS_DIRECT_PERMISSION"

	// RelParentRole links a role to its parent. Informational only; it
	// implies no permission inheritance.
	RelParentRole = "PARENT_ROLE"
)
