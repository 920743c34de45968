package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/api/dto"
	"github.com/spec-kit/dairy-portal/internal/apiclient"
	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/guard"
	"github.com/spec-kit/dairy-portal/internal/service"
	apperrors "github.com/spec-kit/dairy-portal/pkg/util"
)

const defaultAuditLimit = 50

// PortalHandler serves the protected portal views as thin proxies over the
// management API.
type PortalHandler struct {
	api    *apiclient.Client
	audit  *service.AuditService
	paths  guard.Paths
	logger *zap.Logger
}

// NewPortalHandler constructs handler. audit may be nil.
func NewPortalHandler(api *apiclient.Client, audit *service.AuditService, paths guard.Paths, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{api: api, audit: audit, paths: paths, logger: logger}
}

// Dashboard handles GET /.
func (h *PortalHandler) Dashboard(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	user := entry.Store().State().Identity
	if user == nil {
		return guard.Redirect(c, h.paths.Login)
	}
	return c.JSON(dto.DashboardView{User: user, Menu: Menu(user.Role)})
}

// Content handles GET /content/:section.
func (h *PortalHandler) Content(c *fiber.Ctx) error {
	section := c.Params("section")
	if _, ok := Sections[section]; !ok {
		return apperrors.NewNotFound("section", map[string]any{"section": section})
	}
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	store := entry.Store()
	key := "content:" + section

	if raw, ok := store.Cached(c.UserContext(), key); ok {
		var cached apiclient.Content
		if json.Unmarshal([]byte(raw), &cached) == nil {
			return c.JSON(cached)
		}
	}

	content, err := sessionClient(h.api, entry).GetContent(section)
	if err != nil {
		return mapAPIError(c, h.paths, err)
	}
	h.remember(c, key, content)
	return c.JSON(content)
}

// UpdateContent handles PUT /content/:section.
func (h *PortalHandler) UpdateContent(c *fiber.Ctx) error {
	section := c.Params("section")
	if _, ok := Sections[section]; !ok {
		return apperrors.NewNotFound("section", map[string]any{"section": section})
	}
	var req dto.ContentUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title is required", nil)
	}
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}

	content, err := sessionClient(h.api, entry).UpdateContent(section, apiclient.ContentUpdate{
		Title: strings.TrimSpace(req.Title),
		Body:  req.Body,
	})
	if err != nil {
		return mapAPIError(c, h.paths, err)
	}
	// the next read fetches the saved version
	entry.Store().Invalidate(c.UserContext(), "content:"+section)
	return c.JSON(content)
}

// Tools handles GET /tools/:phase.
func (h *PortalHandler) Tools(c *fiber.Ctx) error {
	phase := strings.ToLower(c.Params("phase"))
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	store := entry.Store()
	key := "tools:" + phase

	if raw, ok := store.Cached(c.UserContext(), key); ok {
		var cached []apiclient.Tool
		if json.Unmarshal([]byte(raw), &cached) == nil {
			return c.JSON(fiber.Map{"phase": phase, "tools": cached})
		}
	}

	tools, err := sessionClient(h.api, entry).ListTools(phase)
	if err != nil {
		return mapAPIError(c, h.paths, err)
	}
	if tools == nil {
		tools = []apiclient.Tool{}
	}
	h.remember(c, key, tools)
	return c.JSON(fiber.Map{"phase": phase, "tools": tools})
}

// Documents handles GET /documents.
func (h *PortalHandler) Documents(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	docs, err := sessionClient(h.api, entry).ListDocuments()
	if err != nil {
		return mapAPIError(c, h.paths, err)
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// Users handles GET /users.
func (h *PortalHandler) Users(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	users, err := sessionClient(h.api, entry).ListUsers()
	if err != nil {
		return mapAPIError(c, h.paths, err)
	}
	return c.JSON(fiber.Map{"users": users, "roles": domain.AllRoles})
}

// UpdateRole handles PUT /users/:id/role.
func (h *PortalHandler) UpdateRole(c *fiber.Ctx) error {
	var req dto.RoleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
	}
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	if err := sessionClient(h.api, entry).UpdateUserRole(c.Params("id"), role); err != nil {
		return mapAPIError(c, h.paths, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Audit handles GET /audit, combining the API's audit log with the portal's
// own session events, optionally narrowed to one account with ?identity=.
func (h *PortalHandler) Audit(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultAuditLimit)
	identityID := strings.TrimSpace(c.Query("identity"))
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	logs, err := sessionClient(h.api, entry).ListAuditLogs(limit)
	if err != nil {
		return mapAPIError(c, h.paths, err)
	}

	response := fiber.Map{"logs": logs, "sessionEvents": []dto.SessionEventView{}}
	if h.audit == nil {
		return c.JSON(response)
	}
	var rows []domain.SessionEvent
	if identityID != "" {
		rows, err = h.audit.ForIdentity(c.UserContext(), identityID, limit)
	} else {
		rows, err = h.audit.Recent(c.UserContext(), limit)
	}
	switch {
	case errors.Is(err, service.ErrAuditDisabled):
	case err != nil:
		h.logger.Warn("list session events", zap.Error(err))
	default:
		views := make([]dto.SessionEventView, 0, len(rows))
		for _, row := range rows {
			views = append(views, dto.SessionEventView{
				ID:         row.ID,
				SessionID:  row.SessionID,
				Kind:       string(row.Kind),
				Reason:     row.Reason,
				IdentityID: row.IdentityID,
				Role:       string(row.Role),
				OccurredAt: row.OccurredAt,
			})
		}
		response["sessionEvents"] = views
	}
	return c.JSON(response)
}

func (h *PortalHandler) remember(c *fiber.Ctx, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	entry, err := entryFrom(c)
	if err != nil {
		return
	}
	entry.Store().Cache(c.UserContext(), key, string(raw))
}
