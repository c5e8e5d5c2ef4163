// authz/scope.go
package authz

// Enumerated scope levels, narrowest to broadest. A scope string outside
// this enumeration is a custom scope and is comparable only by exact
// equality.
const (
	ScopeOwn          = "own"
	ScopeTeam         = "team"
	ScopeOrganization = "organization"
	ScopeAll          = "all"
)

var scopeLevels = map[string]int{
	ScopeOwn:          1,
	ScopeTeam:         2,
	ScopeOrganization: 3,
	ScopeAll:          4,
}

// ScopeIncludes reports whether a grant held at userScope satisfies a
// request for requiredScope. An empty requiredScope means no restriction
// was requested; an empty userScope satisfies nothing but an unrestricted
// request.
func ScopeIncludes(userScope, requiredScope string) bool {
	if requiredScope == "" {
		return true
	}
	if userScope == "" {
		return false
	}
	if userScope == requiredScope {
		return true
	}

	userLevel, userOK := scopeLevels[userScope]
	requiredLevel, requiredOK := scopeLevels[requiredScope]
	if !userOK || !requiredOK {
		// Custom scopes fall back to exact string equality, which
		// already failed above.
		return false
	}

	return userLevel >= requiredLevel
}

// IncludedScopes returns every scope at or below the given level, broadest
// first. A custom scope includes only itself.
func IncludedScopes(scope string) []string {
	level, ok := scopeLevels[scope]
	if !ok {
		return []string{scope}
	}

	included := make([]string, 0, len(scopeLevels))
	for _, s := range []string{ScopeAll, ScopeOrganization, ScopeTeam, ScopeOwn} {
		if scopeLevels[s] <= level {
			included = append(included, s)
		}
	}
	return included
}
