package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dairy-portal/internal/api/http"
	"github.com/spec-kit/dairy-portal/internal/api/http/handlers"
	"github.com/spec-kit/dairy-portal/internal/apiclient"
	"github.com/spec-kit/dairy-portal/internal/auth"
	"github.com/spec-kit/dairy-portal/internal/config"
	"github.com/spec-kit/dairy-portal/internal/events"
	"github.com/spec-kit/dairy-portal/internal/guard"
	"github.com/spec-kit/dairy-portal/internal/observability"
	"github.com/spec-kit/dairy-portal/internal/persistence"
	"github.com/spec-kit/dairy-portal/internal/repository"
	"github.com/spec-kit/dairy-portal/internal/service"
	"github.com/spec-kit/dairy-portal/internal/session"
	"github.com/spec-kit/dairy-portal/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger, nil
}

func runServe() error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var eventRepo repository.SessionEventRepository
	if pg.Enabled() {
		eventRepo = repository.NewSessionEventRepository(pg.PoolHandle())
	}
	audit := service.NewAuditService(dispatcher, eventRepo, metrics, logger)
	audit.RegisterHandlers()

	namespaces := redis.Namespaces(cfg.Session.NamespacePrefix, cfg.Session.NamespaceTTL())
	registry := session.NewRegistry(namespaces, dispatcher, logger, session.RegistryConfig{
		IdleTimeout:    cfg.Session.IdleTimeout(),
		FreshRetention: cfg.Session.FreshRetention(),
	})
	defer registry.Close()

	go worker.RunJanitor(ctx, registry, cfg.Session.SweepInterval(), cfg.Session.SweepRetention(), logger)

	g := guard.New(guard.DefaultPaths(), cfg.Session.GuardInitWait(),
		guard.WithObserver(func(d guard.Decision) { metrics.RecordGuardDecision(d.String()) }),
		guard.WithDispatcher(dispatcher),
		guard.WithLogger(logger),
	)
	api := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout(), logger)
	signer := auth.NewCookieSigner(cfg.Session.Secret, cfg.Session.CookieTTL())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:    handlers.NewAuthHandler(api, g.Paths(), logger),
		Session: handlers.NewSessionHandler(),
		Portal:  handlers.NewPortalHandler(api, audit, g.Paths(), logger),
		Sessions: auth.NewSessionMiddleware(signer, registry, auth.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		}, logger),
		Guard:   g,
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	return app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
