// Package rbac maps role identifiers to flattened permission sets and
// evaluates permission checks, including wildcard grants like "admin:*".
package rbac

import (
	"sort"
	"strings"
)

// Role slugs. Numeric values are the legacy role IDs still present in old
// tokens and must keep resolving to the same permission sets.
const (
	RoleStudent  = "student"
	RoleFaculty  = "faculty"
	RoleWarden   = "warden"
	RoleSecurity = "security"
	RoleAdmin    = "admin"
)

var legacyRoleIDs = map[string]string{
	"1":  RoleStudent,
	"2":  RoleFaculty,
	"3":  RoleWarden,
	"4":  RoleSecurity,
	"99": RoleAdmin,
}

var rolePerms = map[string][]string{
	RoleStudent: {
		"complaint:create:self",
		"complaint:read:self",
	},

	// faculty has normal faculty perms plus full admin powers
	RoleFaculty: {
		"complaint:create",
		"complaint:read:block",
		"complaint:update:block",
		"complaint:escalate",
		"complaint:reopen",
		"admin:*",
		"complaint:read:all",
	},

	RoleWarden: {
		"complaint:read:block",
		"complaint:update:block",
		"complaint:resolve",
	},

	// security can only file complaints
	RoleSecurity: {
		"complaint:create",
	},

	RoleAdmin: {
		"admin:*",
		"complaint:read:all",
		"complaint:reopen",
	},
}

// Normalize resolves a role value (slug or legacy numeric ID) to a slug.
// Unknown values pass through unchanged and simply match no permissions.
func Normalize(role string) string {
	v := strings.ToLower(strings.TrimSpace(role))
	if _, ok := rolePerms[v]; ok {
		return v
	}
	if slug, ok := legacyRoleIDs[v]; ok {
		return slug
	}
	return v
}

// Permissions flattens a set of role values into a deduplicated, sorted
// permission list. Unknown roles contribute nothing.
func Permissions(roles []string) []string {
	seen := make(map[string]struct{})
	for _, r := range roles {
		for _, p := range rolePerms[Normalize(r)] {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasAny reports whether userPerms grants at least one of the wanted
// permissions. A wildcard grant "x:*" covers "x" itself and anything under
// "x:", but not sibling prefixes ("admin:*" does not grant "administration:x").
func HasAny(userPerms, wanted []string) bool {
	direct := make(map[string]struct{}, len(userPerms))
	var wild []string
	for _, p := range userPerms {
		direct[p] = struct{}{}
		if strings.HasSuffix(p, ":*") {
			wild = append(wild, p[:len(p)-2])
		}
	}

	for _, need := range wanted {
		if _, ok := direct[need]; ok {
			return true
		}
		for _, base := range wild {
			if need == base || strings.HasPrefix(need, base+":") {
				return true
			}
		}
	}
	return false
}
