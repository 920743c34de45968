package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/dairy-portal/internal/domain"
)

func menuPaths(role domain.Role) []string {
	var out []string
	for _, m := range Menu(role) {
		out = append(out, m.Path)
	}
	return out
}

func TestMenuFollowsViewRoles(t *testing.T) {
	admin := menuPaths(domain.RoleAdmin)
	assert.Contains(t, admin, "/users")
	assert.Contains(t, admin, "/audit")
	assert.Len(t, admin, len(Views))

	for _, role := range []domain.Role{domain.RoleManager, domain.RoleService, domain.RoleSales, domain.RoleLogistics} {
		paths := menuPaths(role)
		assert.NotContains(t, paths, "/users", role)
		assert.NotContains(t, paths, "/audit", role)
		assert.Contains(t, paths, "/", role)
	}
}

func TestContentEditors(t *testing.T) {
	assert.True(t, ContentEditors.Contains(domain.RoleAdmin))
	assert.True(t, ContentEditors.Contains(domain.RoleManager))
	assert.False(t, ContentEditors.Contains(domain.RoleSales))
}
