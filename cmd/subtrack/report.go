package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"subtrack/internal/core"
	"subtrack/internal/format"
	"subtrack/internal/services"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print spending totals",
	Long: `Print spending totals by category.

Examples:
  subtrack report ytd
  subtrack report month --currency=USD
  subtrack report breakdown --year=2024`,
}

var reportYTDCmd = &cobra.Command{
	Use:   "ytd",
	Short: "Paid so far this year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTotals(cmd, (*services.DashboardService).YearToDate)
	},
}

var reportMonthCmd = &cobra.Command{
	Use:   "month",
	Short: "Charges of the current month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTotals(cmd, (*services.DashboardService).CurrentMonth)
	},
}

var reportBreakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Monthly totals of a year",
	Args:  cobra.NoArgs,
	RunE:  runBreakdown,
}

var reportYear int

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportYTDCmd)
	reportCmd.AddCommand(reportMonthCmd)
	reportCmd.AddCommand(reportBreakdownCmd)

	reportBreakdownCmd.Flags().IntVar(&reportYear, "year", 0, "calendar year (default: current year)")
}

type totalsFunc func(*services.DashboardService, context.Context, core.Currency) (services.Totals, error)

func runTotals(cmd *cobra.Command, compute totalsFunc) error {
	cur, err := displayCurrency()
	if err != nil {
		return err
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	totals, err := compute(app.Dashboard, cmd.Context(), cur)
	if err != nil {
		return fmt.Errorf("failed to compute totals: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s to %s\n\n", totals.From.Format(time.DateOnly), totals.To.Format(time.DateOnly))
	return writeCategories(out, totals.ByCategory, totals.Total, totals.Currency)
}

func writeCategories(out io.Writer, by core.CategoryTotals, total float64, cur core.Currency) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CATEGORY\tAMOUNT\t")
	for _, c := range core.AllCategories() {
		if by[c] == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t\n", c, format.Currency(by[c], cur))
	}
	fmt.Fprintf(w, "TOTAL\t%s\t\n", format.Currency(total, cur))
	return w.Flush()
}

func runBreakdown(cmd *cobra.Command, _ []string) error {
	cur, err := displayCurrency()
	if err != nil {
		return err
	}
	year := reportYear
	if year == 0 {
		year = time.Now().Year()
	}
	if year < 1970 || year > 9999 {
		return fmt.Errorf("invalid year %d", year)
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	items, cur, err := app.Dashboard.Breakdown(cmd.Context(), cur, year)
	if err != nil {
		return fmt.Errorf("failed to compute breakdown: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%d\t%s\t\n", year, cur)
	var total float64
	for _, it := range items {
		total += it.Total
		fmt.Fprintf(w, "%s\t%s\t\n", time.Month(it.Month), format.Currency(it.Total, cur))
	}
	fmt.Fprintf(w, "Total\t%s\t\n", format.Currency(total, cur))
	return w.Flush()
}
