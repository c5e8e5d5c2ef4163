// authz/scope_test.go
package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accesskit/gatekeeper/api/authz"
)

func TestScopeIncludes(t *testing.T) {
	tests := []struct {
		name          string
		userScope     string
		requiredScope string
		want          bool
	}{
		{"no required scope always satisfied", "own", "", true},
		{"no required scope with no user scope", "", "", true},
		{"no user scope never satisfies a requirement", "", "own", false},
		{"equal scopes", "team", "team", true},
		{"all includes own", "all", "own", true},
		{"all includes team", "all", "team", true},
		{"all includes organization", "all", "organization", true},
		{"organization includes team", "organization", "team", true},
		{"organization includes own", "organization", "own", true},
		{"team includes own", "team", "own", true},
		{"own does not include team", "own", "team", false},
		{"team does not include organization", "team", "organization", false},
		{"organization does not include all", "organization", "all", false},
		{"custom scope equals itself", "project", "project", true},
		{"custom scope never includes enumerated", "project", "own", false},
		{"enumerated never includes custom", "all", "project", false},
		{"distinct custom scopes", "project", "cluster", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authz.ScopeIncludes(tt.userScope, tt.requiredScope))
		})
	}
}

func TestIncludedScopes(t *testing.T) {
	assert.Equal(t,
		[]string{"all", "organization", "team", "own"},
		authz.IncludedScopes(authz.ScopeAll))
	assert.Equal(t,
		[]string{"organization", "team", "own"},
		authz.IncludedScopes(authz.ScopeOrganization))
	assert.Equal(t,
		[]string{"team", "own"},
		authz.IncludedScopes(authz.ScopeTeam))
	assert.Equal(t,
		[]string{"own"},
		authz.IncludedScopes(authz.ScopeOwn))
	assert.Equal(t,
		[]string{"project"},
		authz.IncludedScopes("project"))
}
