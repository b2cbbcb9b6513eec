// Package sheets renders the yearly breakdown as a spreadsheet table and
// exports it through a BreakdownWriter.
package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"subtrack/internal/core"
)

// Rows lays out the breakdown as a header, one row per month and a total
// row. Amounts are rounded to the currency's display precision.
func Rows(items []core.MonthlyBreakdownItem, cur core.Currency) [][]any {
	cats := core.AllCategories()

	header := []any{"Month"}
	for _, c := range cats {
		header = append(header, string(c))
	}
	header = append(header, "Total ("+string(cur)+")")
	rows := [][]any{header}

	sums := core.NewCategoryTotals()
	var grand float64
	for _, it := range items {
		row := []any{time.Month(it.Month).String()}
		for _, c := range cats {
			row = append(row, round(it.ByCategory[c], cur))
			sums.Add(c, it.ByCategory[c])
		}
		row = append(row, round(it.Total, cur))
		grand += it.Total
		rows = append(rows, row)
	}

	total := []any{"Total"}
	for _, c := range cats {
		total = append(total, round(sums[c], cur))
	}
	total = append(total, round(grand, cur))
	return append(rows, total)
}

func round(v float64, cur core.Currency) float64 {
	places := int32(2)
	if cur == core.KRW {
		places = 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Export computes year's breakdown from src and writes it through w.
func Export(ctx context.Context, src BreakdownSource, w BreakdownWriter, year int, cur core.Currency) error {
	items, cur, err := src.Breakdown(ctx, cur, year)
	if err != nil {
		return fmt.Errorf("compute breakdown: %w", err)
	}
	if err := w.WriteBreakdown(ctx, year, Rows(items, cur)); err != nil {
		return fmt.Errorf("write breakdown: %w", err)
	}
	return nil
}
