// Package seed loads the demo portfolio.
package seed

import (
	"context"
	"fmt"

	"subtrack/internal/core"
)

// Adder is the part of the subscription service seeding needs.
type Adder interface {
	Add(ctx context.Context, sub core.Subscription) (core.Subscription, error)
	List(ctx context.Context) ([]core.Subscription, error)
}

func monthly(name string, cat core.Category, amount float64, cur core.Currency, day int, notes string) core.Subscription {
	return core.Subscription{
		Name: name, Category: cat, Amount: amount, Currency: cur,
		BillingCycle: core.Monthly, BillingDay: day, Notes: notes, IsActive: true,
	}
}

func yearly(name string, cat core.Category, amount float64, cur core.Currency, month, day int, notes string) core.Subscription {
	s := monthly(name, cat, amount, cur, day, notes)
	s.BillingCycle = core.Yearly
	s.BillingMonth = month
	return s
}

// Demo returns thirteen subscriptions in mixed currencies with their billing
// days spread over the month.
func Demo() []core.Subscription {
	return []core.Subscription{
		monthly("ChatGPT Plus", core.CategoryAI, 20, core.USD, 15, "GPT-4 access"),
		monthly("Claude Pro", core.CategoryAI, 20, core.USD, 15, "Anthropic AI assistant"),
		monthly("Midjourney", core.CategoryAI, 10, core.USD, 8, "Basic plan for image generation"),

		monthly("Netflix", core.CategoryEntertain, 15.99, core.USD, 5, "Standard plan"),
		monthly("Spotify Premium", core.CategoryEntertain, 10990, core.KRW, 20, ""),
		monthly("YouTube Premium", core.CategoryEntertain, 14900, core.KRW, 12, "Includes YouTube Music"),
		yearly("Disney+", core.CategoryEntertain, 109.99, core.USD, 6, 1, "Annual subscription"),

		yearly("Amazon Prime", core.CategoryMembership, 139, core.USD, 3, 15, "Includes Prime Video"),
		yearly("Costco", core.CategoryMembership, 48000, core.KRW, 9, 10, ""),
		monthly("Gym Membership", core.CategoryMembership, 99000, core.KRW, 1, ""),

		monthly("iCloud+", core.CategoryOther, 2.99, core.USD, 18, "200GB storage"),
		yearly("Notion", core.CategoryOther, 96, core.USD, 1, 22, "Personal Pro"),
		monthly("Naver Cloud", core.CategoryOther, 4400, core.KRW, 5, "100GB storage"),
	}
}

// Load adds the demo portfolio. Unless force is set it does nothing when
// subscriptions already exist, and reports 0.
func Load(ctx context.Context, a Adder, force bool) (int, error) {
	if !force {
		existing, err := a.List(ctx)
		if err != nil {
			return 0, fmt.Errorf("check existing subscriptions: %w", err)
		}
		if len(existing) > 0 {
			return 0, nil
		}
	}
	n := 0
	for _, s := range Demo() {
		if _, err := a.Add(ctx, s); err != nil {
			return n, fmt.Errorf("seed %s: %w", s.Name, err)
		}
		n++
	}
	return n, nil
}
