package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Servicio ")
	require.NoError(t, err)
	assert.Equal(t, RoleService, role)

	_, err = ParseRole("servicios")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleSetContains(t *testing.T) {
	admins := NewRoleSet(RoleAdmin, RoleManager)
	assert.True(t, admins.Contains(RoleAdmin))
	assert.False(t, admins.Contains(RoleService))
	assert.Equal(t, []Role{RoleAdmin, RoleManager}, admins.Roles())

	assert.True(t, NewRoleSet().Contains(RoleSales))
}

func TestIdentityApplyNeverUnsetsPassword(t *testing.T) {
	id := &Identity{Name: "Ana", Role: RoleService, IsPasswordSet: true}
	no := false
	name := "Ana María"
	bogus := Role("root")

	id.Apply(IdentityPatch{Name: &name, IsPasswordSet: &no, Role: &bogus})

	assert.Equal(t, "Ana María", id.Name)
	assert.True(t, id.IsPasswordSet)
	assert.Equal(t, RoleService, id.Role)
}

func TestIdentityApplySetsPassword(t *testing.T) {
	id := &Identity{IsPasswordSet: false}
	yes := true
	id.Apply(IdentityPatch{IsPasswordSet: &yes})
	assert.True(t, id.IsPasswordSet)
}

func TestValidIsExact(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("Admin").Valid())
	assert.False(t, Role(" admin").Valid())
}

func TestRoleJSONCanonicalizes(t *testing.T) {
	var id Identity
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u-1","role":"Admin"}`), &id))
	assert.Equal(t, RoleAdmin, id.Role)
	assert.True(t, NewRoleSet(RoleAdmin).Contains(id.Role))

	require.NoError(t, json.Unmarshal([]byte(`{"id":"u-1","role":"root"}`), &id))
	assert.Equal(t, Role("root"), id.Role)
	assert.False(t, id.Role.Valid())

	assert.Error(t, json.Unmarshal([]byte(`{"role":7}`), &id))
}

func TestIdentityApplyCanonicalizesRole(t *testing.T) {
	id := &Identity{Role: RoleService}
	mixed := Role("Gerencia")
	id.Apply(IdentityPatch{Role: &mixed})
	assert.Equal(t, RoleManager, id.Role)
}
