package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/fx"
	"subtrack/internal/log"
	"subtrack/internal/sheets"
)

// Job names, also used as metric labels.
const (
	JobFXRefresh    = "fx_refresh"
	JobReminders    = "reminders"
	JobSheetsExport = "sheets_export"
)

// RateSource is the part of *fx.Provider the refresh job needs.
type RateSource interface {
	Rates(ctx context.Context) fx.Rates
}

// ReminderRunner is implemented by *services.ReminderProcessor.
type ReminderRunner interface {
	Process(ctx context.Context) (int, error)
}

// errFallbackRate makes an FX refresh that could not produce any real rate
// count as a failed run.
var errFallbackRate = errors.New("no rate available, serving fallback")

// FXRefreshJob keeps the cached rate warm. The provider only goes upstream
// once the cached rate is older than its minimum refresh interval.
func FXRefreshJob(schedule string, rates RateSource, logger *log.Logger) Job {
	logger = logger.WithComponent(log.ComponentFX)
	return Job{
		Name:     JobFXRefresh,
		Schedule: schedule,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			r := rates.Rates(ctx)
			if r.IsFallback {
				return errFallbackRate
			}
			logger.InfoContext(ctx, "FX rate checked",
				log.FieldRate, r.UsdToKrw,
				"source", r.Source,
				"stale", r.IsStale,
				"last_updated", r.LastUpdated)
			return nil
		},
	}
}

// RemindersJob publishes today's payment reminders.
func RemindersJob(schedule string, p ReminderRunner, logger *log.Logger) Job {
	logger = logger.WithComponent(log.ComponentReminder)
	return Job{
		Name:     JobReminders,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := p.Process(ctx)
			if err != nil {
				return fmt.Errorf("process reminders: %w", err)
			}
			logger.InfoContext(ctx, "Reminders processed", "published", n)
			return nil
		},
	}
}

// SheetsExportJob rewrites the current year's breakdown sheet in the
// display currency from settings.
func SheetsExportJob(schedule string, src sheets.BreakdownSource, w sheets.BreakdownWriter, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:     JobSheetsExport,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			return sheets.Export(ctx, src, w, now().Year(), core.Currency(""))
		},
	}
}
