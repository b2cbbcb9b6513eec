package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"subtrack/internal/cli"
	apihttp "subtrack/internal/http"
	"subtrack/internal/log"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON API, the calendar feed and the metrics endpoint on PORT.

The server drains in-flight requests on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	logger.Info("Starting subtrack", "port", cfg.Port, "backend", cfg.DataBackend)

	app, err := cli.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	srv := apihttp.NewServer(":"+cfg.Port, apihttp.Deps{
		Subscriptions:      app.Subscriptions,
		Dashboard:          app.Dashboard,
		Settings:           app.Settings,
		Rates:              app.Rates,
		Metrics:            app.Metrics,
		Logger:             logger,
		Ready:              app.Backend.Ping,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", log.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Closing application failed", log.FieldError, err)
		}
	})
	app.Caches.Start(ctx, time.Minute)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		logger.Error("HTTP server failed", log.FieldError, err)
		_ = app.Close()
		return err
	case <-ctx.Done():
	}

	cli.WaitForShutdown(ctx, done)
	app.Caches.Wait()
	return nil
}
