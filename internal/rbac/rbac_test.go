package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hostelwatch/backend/internal/rbac"
)

func TestNormalize_LegacyNumericIDs(t *testing.T) {
	assert.Equal(t, rbac.RoleStudent, rbac.Normalize("1"))
	assert.Equal(t, rbac.RoleFaculty, rbac.Normalize("2"))
	assert.Equal(t, rbac.RoleWarden, rbac.Normalize("3"))
	assert.Equal(t, rbac.RoleSecurity, rbac.Normalize("4"))
	assert.Equal(t, rbac.RoleAdmin, rbac.Normalize("99"))
}

func TestNormalize_SlugsAndUnknown(t *testing.T) {
	assert.Equal(t, rbac.RoleWarden, rbac.Normalize("  Warden "))
	assert.Equal(t, rbac.RoleAdmin, rbac.Normalize("ADMIN"))
	// Unknown values pass through and simply match no permissions.
	assert.Equal(t, "gatekeeper", rbac.Normalize("gatekeeper"))
}

func TestPermissions_NumericAndSlugResolveSame(t *testing.T) {
	bySlug := rbac.Permissions([]string{"warden"})
	byID := rbac.Permissions([]string{"3"})
	assert.Equal(t, bySlug, byID)
	assert.Contains(t, bySlug, "complaint:resolve")
}

func TestPermissions_UnknownRolesContributeNothing(t *testing.T) {
	assert.Empty(t, rbac.Permissions([]string{"gatekeeper", "42"}))
}

func TestPermissions_Deduplicated(t *testing.T) {
	perms := rbac.Permissions([]string{"admin", "faculty"})
	seen := make(map[string]int)
	for _, p := range perms {
		seen[p]++
	}
	// admin:* appears in both role sets but must be flattened once.
	assert.Equal(t, 1, seen["admin:*"])
}

func TestHasAny_Wildcard(t *testing.T) {
	tests := []struct {
		name   string
		perms  []string
		wanted []string
		want   bool
	}{
		{"direct match", []string{"complaint:create"}, []string{"complaint:create"}, true},
		{"wildcard grants subtree", []string{"admin:*"}, []string{"admin:anything"}, true},
		{"wildcard grants deep subtree", []string{"admin:*"}, []string{"complaint:read:all", "admin:users:delete"}, true},
		{"wildcard grants the base itself", []string{"admin:*"}, []string{"admin"}, true},
		{"wildcard does not grant sibling prefix", []string{"admin:*"}, []string{"administration:x"}, false},
		{"narrow perm does not widen", []string{"complaint:read:block"}, []string{"complaint:read:all"}, false},
		{"no perms", nil, []string{"complaint:create"}, false},
		{"empty wanted", []string{"admin:*"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rbac.HasAny(tt.perms, tt.wanted))
		})
	}
}

func TestFacultyCarriesAdminGrant(t *testing.T) {
	perms := rbac.Permissions([]string{"faculty"})
	assert.True(t, rbac.HasAny(perms, []string{"admin"}))
	assert.True(t, rbac.HasAny(perms, []string{"complaint:read:all"}))
}

func TestSecurityCanOnlyFile(t *testing.T) {
	perms := rbac.Permissions([]string{"security"})
	assert.True(t, rbac.HasAny(perms, []string{"complaint:create"}))
	assert.False(t, rbac.HasAny(perms, []string{"complaint:read:block", "complaint:update:block", "admin"}))
}
