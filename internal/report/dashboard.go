package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

// RecentLimit is how many expenses the dashboard lists.
const RecentLimit = 5

// Dashboard is the landing view for a user.
type Dashboard struct {
	Totals    Totals           `json:"totals"`
	Breakdown *Breakdown       `json:"breakdown"`
	Recent    []models.Expense `json:"recent"`
	Budgets   []Budget         `json:"budgets"`
	// Subscriptions carries the monthly cost and the payments due this week.
	Subscriptions *SubscriptionSummary `json:"subscriptions"`
}

// Dashboard fetches its sections concurrently. The first failure cancels the rest.
func (a *Aggregator) Dashboard(ctx context.Context, userID int64, now time.Time) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := a.Totals(ctx, userID, now)
		if err != nil {
			return err
		}
		d.Totals = t
		return nil
	})
	g.Go(func() error {
		b, err := a.CategoryBreakdown(ctx, userID, models.PeriodAll, now)
		if err != nil {
			return err
		}
		d.Breakdown = b
		return nil
	})
	g.Go(func() error {
		recent, err := a.ledger.ListExpenses(ctx, userID, storage.ExpenseFilter{Limit: RecentLimit})
		if err != nil {
			return fmt.Errorf("recent expenses: %w", err)
		}
		d.Recent = recent
		return nil
	})
	g.Go(func() error {
		budgets, err := a.BudgetStatus(ctx, userID, now)
		if err != nil {
			return err
		}
		d.Budgets = budgets
		return nil
	})
	g.Go(func() error {
		subs, err := a.Subscriptions(ctx, userID, "", now)
		if err != nil {
			return err
		}
		d.Subscriptions = subs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
