// Command subtrack-worker runs the scheduled jobs: FX refresh, payment
// reminders and the Google Sheets export. When AMQP is configured it also
// consumes the payment-due queue.
package main

import (
	"context"
	"errors"
	"time"

	"subtrack/internal/cli"
	"subtrack/internal/log"
	"subtrack/internal/services"
	gsheet "subtrack/internal/sheets/google"
	"subtrack/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(log.New(log.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting subtrack-worker")

	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize application", err)
	}

	scheduler := worker.NewScheduler(logger, app.Metrics)

	if err := scheduler.Add(worker.FXRefreshJob(cfg.FXRefreshSchedule, app.Rates, logger)); err != nil {
		cli.Fatal(logger, "Failed to schedule FX refresh", err)
	}

	if p := app.ReminderProcessor(); p != nil {
		if err := scheduler.Add(worker.RemindersJob(cfg.ReminderSchedule, p, logger)); err != nil {
			cli.Fatal(logger, "Failed to schedule reminders", err)
		}
	} else {
		logger.Info("Reminders disabled - no AMQP_URL provided")
	}

	if cfg.SheetsExportEnabled() {
		sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		if err := scheduler.Add(worker.SheetsExportJob(cfg.SheetsExportSchedule, app.Dashboard, sheetsClient, nil)); err != nil {
			cli.Fatal(logger, "Failed to schedule Sheets export", err)
		}
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Warn("Jobs still running at shutdown")
		}
		if err := app.Close(); err != nil {
			logger.Error("Closing application failed", log.FieldError, err)
		}
	})

	scheduler.Start(ctx)

	// Warm the rate cache so the API has a real rate before the first tick.
	if err := scheduler.RunNow(worker.JobFXRefresh); err != nil {
		logger.Warn("Startup FX refresh failed", log.FieldError, err)
	}

	if app.Broker != nil {
		go func() {
			err := app.Broker.ConsumePaymentDue(ctx, services.LogReminder(logger))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Payment due consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
}
