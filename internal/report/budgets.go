package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/models"
)

// Budget compares a category's spending in the trailing month against its limit.
type Budget struct {
	Category   string          `json:"category"`
	Color      string          `json:"color"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage float64         `json:"percentage"`
	Over       bool            `json:"over"`
}

// BudgetStatus reports every category that has a budget limit, in name order.
// Spending is measured over the same window as Totals.ThisMonth.
func (a *Aggregator) BudgetStatus(ctx context.Context, userID int64, now time.Time) ([]Budget, error) {
	categories, err := a.ledger.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	sums, err := a.ledger.CategorySums(ctx, userID, models.PeriodMonth.Range(now))
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}

	spent := make(map[string]decimal.Decimal, len(sums))
	for _, s := range sums {
		spent[s.Name] = s.Total
	}

	budgets := []Budget{}
	for _, c := range categories {
		if c.BudgetLimit == nil {
			continue
		}
		budgets = append(budgets, NewBudget(c, spent[c.Name]))
	}
	return budgets, nil
}

// NewBudget builds the status of category c given what was spent against it.
// c.BudgetLimit must be set.
func NewBudget(c models.Category, spent decimal.Decimal) Budget {
	limit := *c.BudgetLimit
	return Budget{
		Category:   c.Name,
		Color:      c.Color,
		Limit:      limit,
		Spent:      spent,
		Remaining:  limit.Sub(spent),
		Percentage: PercentageOfTotal(spent, limit),
		Over:       spent.GreaterThan(limit),
	}
}
