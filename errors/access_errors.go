package errors

import "errors"

var (
	// ErrUnauthenticated is surfaced when no principal was resolved for the
	// request. It is distinct from ErrForbidden: no decision was reached.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means a decision was reached and access was denied.
	ErrForbidden = errors.New("forbidden")

	ErrAssignmentConflict = errors.New("role assignment already exists")
	ErrAssignmentNotFound = errors.New("role assignment not found")

	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnmappedResourceType indicates a resource type with no registered
	// fetch mapping. This is a configuration error, not a denial.
	ErrUnmappedResourceType = errors.New("resource type has no registered mapping")

	// ErrMissingResourceID indicates an ownership-checked route whose id
	// parameter was not present in the request.
	ErrMissingResourceID = errors.New("resource id parameter missing")
)
