package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dairy-portal/internal/api/dto"
	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/idle"
)

// SessionHandler serves the browser-side session plumbing: state, activity
// reports, notices and the tab-close beacon.
type SessionHandler struct{}

// NewSessionHandler constructs handler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// State handles GET /session/state.
func (h *SessionHandler) State(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	state := entry.Store().State()
	monitor := entry.Monitor()
	last := monitor.LastActivity()
	return c.JSON(dto.SessionStateView{
		Initialized:        state.Initialized,
		Authenticated:      state.Authenticated(),
		User:               state.Identity,
		IdleTimeoutSeconds: int(monitor.Timeout().Seconds()),
		LastActivity:       last,
		ExpiresAt:          last.Add(monitor.Timeout()),
	})
}

// Activity handles POST /session/activity.
func (h *SessionHandler) Activity(c *fiber.Ctx) error {
	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}

	accepted := 0
	for _, kind := range req.Events {
		if entry.Record(idle.EventKind(kind)) {
			accepted++
		}
	}
	return c.JSON(dto.ActivityResponse{Accepted: accepted})
}

// Notices handles GET /session/notices.
func (h *SessionHandler) Notices(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.NoticesView{Notices: entry.Notices()})
}

// Unload handles POST /session/unload, sent by the page's unload beacon. It
// also fires on refresh; the session is cleared either way.
func (h *SessionHandler) Unload(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	entry.Store().Logout(c.UserContext(), domain.LogoutUnload)
	return c.SendStatus(http.StatusNoContent)
}
