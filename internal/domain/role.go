package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// Role is the closed set of portal roles issued by the management API.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "gerencia"
	RoleService   Role = "servicio"
	RoleSales     Role = "ventas"
	RoleLogistics Role = "logistica"
)

// ErrUnknownRole is returned when a role tag is not part of the enumeration.
var ErrUnknownRole = errors.New("unknown role")

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleService, RoleSales, RoleLogistics}

// ParseRole maps a wire tag onto a Role.
func ParseRole(tag string) (Role, error) {
	candidate := Role(strings.ToLower(strings.TrimSpace(tag)))
	for _, role := range AllRoles {
		if role == candidate {
			return role, nil
		}
	}
	return "", ErrUnknownRole
}

// Valid reports whether r is exactly one of the known roles. Tags from the
// wire are canonicalized by UnmarshalJSON or ParseRole first.
func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// UnmarshalJSON canonicalizes known tags ("Admin" becomes "admin"). Unknown
// tags are kept verbatim so callers can reject them with Valid.
func (r *Role) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	if role, err := ParseRole(tag); err == nil {
		*r = role
		return nil
	}
	*r = Role(tag)
	return nil
}

// RoleSet is an allow-list of roles for a protected feature.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports membership. An empty set admits every role.
func (s RoleSet) Contains(role Role) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[role]
	return ok
}

// Roles returns the members in display order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s))
	for _, role := range AllRoles {
		if _, ok := s[role]; ok {
			out = append(out, role)
		}
	}
	return out
}
