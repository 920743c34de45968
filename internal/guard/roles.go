package guard

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/auth"
	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/events"
	apperrors "github.com/spec-kit/dairy-portal/pkg/util"
)

const accessDeniedMessage = "No tienes permisos para acceder a esta sección."

// RequireRoles admits only identities whose role is in allowed. It runs after
// Protect, so a missing identity here is an ordering bug and is denied.
func (g *Guard) RequireRoles(allowed domain.RoleSet) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entry, ok := auth.EntryFromContext(c)
		if !ok {
			return apperrors.NewForbidden(accessDeniedMessage)
		}
		state := entry.Store().State()
		if state.Identity == nil {
			return apperrors.NewForbidden(accessDeniedMessage)
		}
		if allowed.Contains(state.Identity.Role) {
			return c.Next()
		}

		g.logger.Info("access denied",
			zap.String("path", c.Path()),
			zap.String("role", string(state.Identity.Role)),
			zap.Any("allowed", allowed.Roles()))
		if g.dispatcher != nil {
			err := g.dispatcher.Publish(c.UserContext(), events.Event{
				Type:      events.EventAccessDenied,
				SessionID: entry.Store().ID(),
				Actor:     events.Actor{IdentityID: state.Identity.ID, Role: state.Identity.Role},
				Payload:   events.AccessDeniedPayload{Path: c.Path()},
			})
			if err != nil {
				g.logger.Warn("publish session event",
					zap.String("type", string(events.EventAccessDenied)),
					zap.String("session_id", entry.Store().ID()),
					zap.Error(err))
			}
		}
		return apperrors.NewForbidden(accessDeniedMessage)
	}
}
