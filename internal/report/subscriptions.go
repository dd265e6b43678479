package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/models"
)

// SubscriptionSummary lists recurring payments with their next charge and what
// they cost per month.
type SubscriptionSummary struct {
	Subscriptions []models.Subscription `json:"subscriptions"`
	// Total is the sum of one charge of every subscription.
	Total       decimal.Decimal `json:"total"`
	MonthlyCost decimal.Decimal `json:"monthly_cost"`
	// Upcoming holds the payments due within UpcomingDays, soonest first.
	Upcoming []models.Subscription `json:"upcoming"`
}

// Subscriptions summarises the user's recurring payments as of now's calendar
// day. A non-empty category narrows the summary to that label.
func (a *Aggregator) Subscriptions(ctx context.Context, userID int64, category string, now time.Time) (*SubscriptionSummary, error) {
	subs, err := a.ledger.ListSubscriptions(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	today := models.DateOf(now)
	horizon := today.AddDays(models.UpcomingDays)
	summary := &SubscriptionSummary{
		Subscriptions: subs,
		Upcoming:      []models.Subscription{},
	}
	monthly := decimal.Zero
	for i := range subs {
		s := &subs[i]
		s.NextPayment = s.BillingCycle.NextPayment(s.StartDate, today)
		summary.Total = summary.Total.Add(s.Amount)
		monthly = monthly.Add(s.BillingCycle.MonthlyCost(s.Amount))
		if !s.NextPayment.After(horizon.Time) {
			summary.Upcoming = append(summary.Upcoming, *s)
		}
	}
	summary.MonthlyCost = monthly.Round(2)

	slices.SortStableFunc(summary.Upcoming, func(x, y models.Subscription) int {
		if c := x.NextPayment.Compare(y.NextPayment.Time); c != 0 {
			return c
		}
		return cmp.Compare(x.Name, y.Name)
	})
	return summary, nil
}
