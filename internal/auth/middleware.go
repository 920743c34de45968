package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/session"
	apperrors "github.com/spec-kit/dairy-portal/pkg/util"
)

const entryKey = "session_entry"

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name   string
	Secure bool
}

// SessionMiddleware binds every request to its browser session entry,
// minting a new session id when the cookie is missing or invalid.
type SessionMiddleware struct {
	signer   *CookieSigner
	registry *session.Registry
	cookie   CookieConfig
	logger   *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(signer *CookieSigner, registry *session.Registry, cookie CookieConfig, logger *zap.Logger) *SessionMiddleware {
	if cookie.Name == "" {
		cookie.Name = "portal_sid"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{signer: signer, registry: registry, cookie: cookie, logger: logger}
}

// Handle mounts the session entry for the request.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	sid, err := m.signer.Parse(c.Cookies(m.cookie.Name))
	if err == nil {
		c.Locals(entryKey, m.registry.Mount(sid))
		return c.Next()
	}

	// a freshly minted id has nothing persisted behind it
	sid = uuid.NewString()
	value, expiresAt, err := m.signer.Issue(sid)
	if err != nil {
		m.logger.Error("issue session cookie", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	c.Locals(entryKey, m.registry.MountNew(sid))
	return c.Next()
}

// EntryFromContext retrieves the session entry bound to the request.
func EntryFromContext(c *fiber.Ctx) (*session.Entry, bool) {
	val := c.Locals(entryKey)
	if val == nil {
		return nil, false
	}
	entry, ok := val.(*session.Entry)
	return entry, ok
}
