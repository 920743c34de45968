package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/devapi"
)

func devAPICmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "devapi",
		Short: "Run an in-memory management API for local development",
		Long: `Run an in-memory stand-in for the management API.

It seeds one administrator (document 1000, password 1000). New accounts get
the servicio role and their document number as first password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevAPI(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from DEVAPI_HOST/DEVAPI_PORT)")
	return cmd
}

func runDevAPI(addr string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	srv, err := devapi.New(devapi.Config{
		JWTSecret:  cfg.DevAPI.JWTSecret,
		TokenTTL:   time.Duration(cfg.DevAPI.TokenTTLHours) * time.Hour,
		BcryptCost: cfg.DevAPI.BcryptCost,
	}, logger)
	if err != nil {
		return fmt.Errorf("build dev api: %w", err)
	}

	if addr == "" {
		addr = cfg.DevAPI.Addr()
	}
	app := srv.App()
	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Fatal("dev api listen", zap.Error(err))
		}
	}()
	logger.Info("dev api listening", zap.String("addr", addr))

	waitForShutdown(logger)
	return app.Shutdown()
}
