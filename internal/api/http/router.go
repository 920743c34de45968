package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/dairy-portal/internal/api/http/handlers"
	"github.com/spec-kit/dairy-portal/internal/auth"
	"github.com/spec-kit/dairy-portal/internal/guard"
	"github.com/spec-kit/dairy-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Session  *handlers.SessionHandler
	Portal   *handlers.PortalHandler
	Sessions *auth.SessionMiddleware
	Guard    *guard.Guard
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	web := app.Group("", cfg.Sessions.Handle)

	web.Get("/login", cfg.Auth.LoginView)
	web.Post("/login", cfg.Auth.Login)
	web.Post("/register", cfg.Auth.Register)
	web.Post("/logout", cfg.Auth.Logout)

	web.Get("/session/state", cfg.Session.State)
	web.Post("/session/activity", cfg.Session.Activity)
	web.Get("/session/notices", cfg.Session.Notices)
	web.Post("/session/unload", cfg.Session.Unload)

	setup := web.Group("/change-password", cfg.Guard.RequireIdentity())
	setup.Get("", cfg.Auth.ChangePasswordView)
	setup.Put("", cfg.Auth.ChangePassword)

	protected := web.Group("", cfg.Guard.Protect())
	protected.Get("/", cfg.Portal.Dashboard)
	protected.Get("/content/:section", cfg.Portal.Content)
	protected.Put("/content/:section", cfg.Guard.RequireRoles(handlers.ContentEditors), cfg.Portal.UpdateContent)
	protected.Get("/tools/:phase", cfg.Portal.Tools)
	protected.Get("/documents", cfg.Portal.Documents)
	protected.Get("/users", cfg.Guard.RequireRoles(handlers.Administrators), cfg.Portal.Users)
	protected.Put("/users/:id/role", cfg.Guard.RequireRoles(handlers.Administrators), cfg.Portal.UpdateRole)
	protected.Get("/audit", cfg.Guard.RequireRoles(handlers.Administrators), cfg.Portal.Audit)

	// unknown locations go home, where the guard decides again
	app.Use(func(c *fiber.Ctx) error {
		return c.Redirect(cfg.Guard.Paths().Home, fiber.StatusSeeOther)
	})
}
