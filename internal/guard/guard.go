// Package guard decides, per navigation, whether a protected view renders or
// the browser is sent elsewhere.
package guard

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/auth"
	"github.com/spec-kit/dairy-portal/internal/events"
	"github.com/spec-kit/dairy-portal/internal/session"
	apperrors "github.com/spec-kit/dairy-portal/pkg/util"
)

// Decision is the outcome of evaluating a session against a protected view.
type Decision int

const (
	DecisionSuspend Decision = iota
	DecisionRedirectLogin
	DecisionRedirectPasswordChange
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionSuspend:
		return "suspend"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectPasswordChange:
		return "redirect_password_change"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Evaluate maps a session snapshot onto a decision.
func Evaluate(state session.State) Decision {
	switch {
	case !state.Initialized:
		return DecisionSuspend
	case state.Identity == nil:
		return DecisionRedirectLogin
	case !state.Identity.IsPasswordSet:
		return DecisionRedirectPasswordChange
	default:
		return DecisionAllow
	}
}

// Paths are the redirect targets.
type Paths struct {
	Login          string
	PasswordChange string
	Home           string
}

// DefaultPaths returns the portal's standard routes.
func DefaultPaths() Paths {
	return Paths{Login: "/login", PasswordChange: "/change-password", Home: "/"}
}

// Option customises a Guard.
type Option func(*Guard)

// WithObserver is called with every decision taken by Protect.
func WithObserver(fn func(Decision)) Option {
	return func(g *Guard) { g.observe = fn }
}

// WithDispatcher publishes access-denied events from RequireRoles.
func WithDispatcher(d events.Dispatcher) Option {
	return func(g *Guard) { g.dispatcher = d }
}

// WithLogger sets the guard's logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// Guard wires Evaluate into fiber routes.
type Guard struct {
	paths      Paths
	wait       time.Duration
	observe    func(Decision)
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// New builds a guard that waits at most wait for session restoration.
func New(paths Paths, wait time.Duration, opts ...Option) *Guard {
	g := &Guard{paths: paths, wait: wait, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Paths returns the redirect targets.
func (g *Guard) Paths() Paths {
	return g.paths
}

// Protect gates a protected view on an initialized, fully set up session.
func (g *Guard) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return g.handle(c, false)
	}
}

// RequireIdentity gates the password-change view: a session is needed but
// its password may still be unset.
func (g *Guard) RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return g.handle(c, true)
	}
}

func (g *Guard) handle(c *fiber.Ctx, allowSetup bool) error {
	entry, ok := auth.EntryFromContext(c)
	if !ok {
		return apperrors.NewInternalError(nil)
	}

	decision := DecisionSuspend
	if state, ready := g.await(c.UserContext(), entry.Store()); ready {
		decision = Evaluate(state)
	}
	if allowSetup && decision == DecisionRedirectPasswordChange {
		decision = DecisionAllow
	}
	if g.observe != nil {
		g.observe(decision)
	}

	switch decision {
	case DecisionSuspend:
		// render nothing until the session has been restored
		c.Set(fiber.HeaderRetryAfter, "1")
		c.Status(fiber.StatusServiceUnavailable)
		return nil
	case DecisionRedirectLogin:
		return Redirect(c, g.paths.Login)
	case DecisionRedirectPasswordChange:
		return Redirect(c, g.paths.PasswordChange)
	default:
		return c.Next()
	}
}

func (g *Guard) await(ctx context.Context, store *session.Store) (session.State, bool) {
	select {
	case <-store.Ready():
		return store.State(), true
	default:
	}
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(g.wait)
	defer timer.Stop()

	select {
	case <-store.Ready():
		return store.State(), true
	case <-timer.C:
	case <-ctx.Done():
	}
	return session.State{}, false
}

// Redirect sends navigations to location with 303 so the denied URL never
// becomes a history entry; XHR callers get a 401 naming the location.
func Redirect(c *fiber.Ctx, location string) error {
	if WantsJSON(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "SESSION_REQUIRED",
				"message": "session required",
			},
			"redirect": location,
		})
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// WantsJSON reports whether the caller prefers JSON over a page navigation.
func WantsJSON(c *fiber.Ctx) bool {
	if c.Get(fiber.HeaderXRequestedWith) == "XMLHttpRequest" {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}
