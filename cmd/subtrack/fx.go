package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"subtrack/internal/format"
	"subtrack/internal/fx"
)

var fxCmd = &cobra.Command{
	Use:   "fx",
	Short: "Inspect and refresh the USD/KRW exchange rate",
}

var fxShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current rate",
	Long: `Show the current rate. The cached rate is used while it is younger
than FX_MIN_REFRESH_INTERVAL, otherwise it is fetched again.`,
	Args: cobra.NoArgs,
	RunE: runFXShow,
}

var fxRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the rate from upstream now",
	Args:  cobra.NoArgs,
	RunE:  runFXRefresh,
}

func init() {
	rootCmd.AddCommand(fxCmd)
	fxCmd.AddCommand(fxShowCmd)
	fxCmd.AddCommand(fxRefreshCmd)
}

func runFXShow(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	writeRates(cmd.OutOrStdout(), app.Rates.Rates(cmd.Context()))
	return nil
}

func runFXRefresh(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	// A fresh process has no manual cooldown to honour.
	rates, _ := app.Rates.ManualRefresh(cmd.Context())
	writeRates(cmd.OutOrStdout(), rates)
	if rates.IsStale || rates.IsFallback {
		return fmt.Errorf("refresh failed, showing %s rate", stateOf(rates))
	}
	return nil
}

func writeRates(out io.Writer, r fx.Rates) {
	fmt.Fprintln(out, format.Rate(r.UsdToKrw))
	fmt.Fprintf(out, "Source:  %s\n", r.Source)
	fmt.Fprintf(out, "Updated: %s (%s)\n", r.LastUpdated.Format(time.RFC3339), format.Since(r.LastUpdated, time.Now()))
	fmt.Fprintf(out, "State:   %s\n", stateOf(r))
}

func stateOf(r fx.Rates) string {
	switch {
	case r.IsFallback:
		return "fallback"
	case r.IsStale:
		return "stale"
	default:
		return "fresh"
	}
}
