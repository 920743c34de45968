package handlers

import (
	"github.com/spec-kit/dairy-portal/internal/api/dto"
	"github.com/spec-kit/dairy-portal/internal/domain"
)

// View declares a protected page and the roles allowed to open it. An empty
// role set admits every authenticated role.
type View struct {
	Path  string
	Title string
	Roles domain.RoleSet
}

var (
	// ContentEditors may change mission, vision and diagnostics.
	ContentEditors = domain.NewRoleSet(domain.RoleAdmin, domain.RoleManager)
	// Administrators manage accounts and read the audit log.
	Administrators = domain.NewRoleSet(domain.RoleAdmin)
)

// Views is the portal navigation. Routes are gated with the same role sets.
var Views = []View{
	{Path: "/", Title: "Inicio"},
	{Path: "/content/mission", Title: "Misión"},
	{Path: "/content/vision", Title: "Visión"},
	{Path: "/content/diagnostics", Title: "Diagnóstico"},
	{Path: "/tools/acopio", Title: "Herramientas de acopio"},
	{Path: "/tools/distribucion", Title: "Herramientas de distribución"},
	{Path: "/tools/ventas", Title: "Herramientas de ventas"},
	{Path: "/documents", Title: "Documentos"},
	{Path: "/users", Title: "Usuarios", Roles: Administrators},
	{Path: "/audit", Title: "Auditoría", Roles: Administrators},
}

// Sections are the editable content sections.
var Sections = map[string]struct{}{
	"mission":     {},
	"vision":      {},
	"diagnostics": {},
}

// Menu returns the views visible to role.
func Menu(role domain.Role) []dto.MenuEntry {
	out := make([]dto.MenuEntry, 0, len(Views))
	for _, v := range Views {
		if v.Roles.Contains(role) {
			out = append(out, dto.MenuEntry{Path: v.Path, Title: v.Title})
		}
	}
	return out
}
