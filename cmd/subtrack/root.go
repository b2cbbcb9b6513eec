package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subtrack/internal/cli"
	"subtrack/internal/core"
	"subtrack/internal/log"
)

var currencyFlag string

var rootCmd = &cobra.Command{
	Use:   "subtrack",
	Short: "Track recurring subscriptions in KRW and USD",
	Long: `subtrack keeps a list of recurring subscriptions, projects their
billing dates and totals them in Korean won or US dollars.

Quick start:
  subtrack seed      # Load the demo portfolio
  subtrack serve     # Start the HTTP API

Reports:
  subtrack list
  subtrack upcoming --days=14
  subtrack report ytd --currency=KRW

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&currencyFlag, "currency", "", "display currency (KRW or USD); defaults to settings")
}

// openApp wires the application for a one-shot command. Logs go to stderr
// so stdout carries only the command's output.
func openApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(cmd.ErrOrStderr(), cfg, log.ComponentCLI)
	return cli.NewApp(cmd.Context(), cfg, logger)
}

// displayCurrency validates --currency. Empty means the settings default.
func displayCurrency() (core.Currency, error) {
	if currencyFlag == "" {
		return "", nil
	}
	c := core.Currency(strings.ToUpper(currencyFlag))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %s", core.ErrInvalidCurrency, currencyFlag)
	}
	return c, nil
}
