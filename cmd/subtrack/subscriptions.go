package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"subtrack/internal/billing"
	"subtrack/internal/core"
	"subtrack/internal/format"
	"subtrack/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo subscriptions",
	Long: `Load the demo portfolio into the configured store.

Nothing is added when subscriptions already exist, unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscriptions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Show the payments due in the coming days",
	Args:  cobra.NoArgs,
	RunE:  runUpcoming,
}

var (
	seedForce    bool
	listAll      bool
	upcomingDays int
)

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(upcomingCmd)

	seedCmd.Flags().BoolVar(&seedForce, "force", false, "add the demo data even when subscriptions exist")
	listCmd.Flags().BoolVar(&listAll, "all", false, "include paused and ended subscriptions")
	upcomingCmd.Flags().IntVar(&upcomingDays, "days", 0, "look-ahead in days (default: horizon from settings)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := seed.Load(cmd.Context(), app.Subscriptions, seedForce)
	if err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}
	out := cmd.OutOrStdout()
	if n == 0 {
		fmt.Fprintln(out, "Subscriptions already exist, nothing seeded.")
		fmt.Fprintln(out, "Use --force to add the demo data anyway.")
		return nil
	}
	fmt.Fprintf(out, "Seeded %d subscriptions.\n", n)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	var subs []core.Subscription
	if listAll {
		subs, err = app.Subscriptions.List(ctx)
	} else {
		subs, err = app.Subscriptions.ListActive(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(subs) == 0 {
		fmt.Fprintln(out, "No subscriptions found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Load the demo data with: subtrack seed")
		return nil
	}

	today := core.StartOfDay(time.Now())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tAMOUNT\tCYCLE\tNEXT\tSTATUS")
	fmt.Fprintln(w, "--\t----\t--------\t------\t-----\t----\t------")
	for _, s := range subs {
		next := "-"
		if s.IsActive && !s.HasEnded() {
			next = billing.NextPaymentDate(s, today).Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Category, format.Currency(s.Amount, s.Currency), s.BillingCycle, next, status(s, today))
	}
	return w.Flush()
}

func status(s core.Subscription, today time.Time) string {
	switch {
	case s.HasEnded():
		return "ended"
	case !s.IsActive:
		return "paused"
	case s.InFreeTrial(today):
		return "trial"
	default:
		return "active"
	}
}

func runUpcoming(cmd *cobra.Command, _ []string) error {
	cur, err := displayCurrency()
	if err != nil {
		return err
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	payments, err := app.Dashboard.Schedule(ctx, cur, upcomingDays)
	if err != nil {
		return fmt.Errorf("failed to build schedule: %w", err)
	}
	settings, err := app.Settings.Get(ctx)
	if err != nil {
		return err
	}
	if cur == "" {
		cur = settings.DisplayCurrency()
	}

	out := cmd.OutOrStdout()
	if len(payments) == 0 {
		fmt.Fprintln(out, "No payments due.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tIN\tNAME\tAMOUNT\t"+string(cur))
	fmt.Fprintln(w, "----\t--\t----\t------\t---")
	var total float64
	for _, p := range payments {
		total += p.DisplayAmount
		fmt.Fprintf(w, "%s\t%dd\t%s\t%s\t%s\n",
			format.DateMedium(p.Date, settings.Language), p.DaysUntil, p.Name,
			format.Currency(p.Amount, p.Currency), format.Currency(p.DisplayAmount, cur))
	}
	fmt.Fprintf(w, "\t\tTotal\t\t%s\n", format.Currency(total, cur))
	return w.Flush()
}
