package sheets

import (
	"context"

	"subtrack/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// BreakdownWriter replaces the yearly breakdown sheet with rows.
	BreakdownWriter interface {
		WriteBreakdown(ctx context.Context, year int, rows [][]any) error
	}

	// BreakdownSource computes the yearly breakdown in a display currency.
	// *services.DashboardService implements it.
	BreakdownSource interface {
		Breakdown(ctx context.Context, cur core.Currency, year int) ([]core.MonthlyBreakdownItem, core.Currency, error)
	}
)
