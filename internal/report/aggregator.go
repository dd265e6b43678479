// Package report computes read-only spending summaries over the ledger.
package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

// Ledger is the slice of the store the aggregator reads from.
type Ledger interface {
	SumWindows(ctx context.Context, userID int64, windows ...models.DateRange) ([]decimal.Decimal, error)
	CategorySums(ctx context.Context, userID int64, r models.DateRange) ([]models.CategoryTotal, error)
	ListExpenses(ctx context.Context, userID int64, f storage.ExpenseFilter) ([]models.Expense, error)
	ListCategories(ctx context.Context, userID int64) ([]models.Category, error)
	ListSubscriptions(ctx context.Context, userID int64, category string) ([]models.Subscription, error)
}

// Aggregator computes totals and breakdowns on demand. It holds no state of its own.
type Aggregator struct {
	ledger Ledger
}

func NewAggregator(ledger Ledger) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// Totals holds the period buckets. Empty buckets are zero.
type Totals struct {
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"this_week"`
	ThisMonth decimal.Decimal `json:"this_month"`
	AllTime   decimal.Decimal `json:"all_time"`
}

// Totals sums the user's expenses over each period ending on now's calendar day.
// All four buckets are read in one query so they agree with each other.
func (a *Aggregator) Totals(ctx context.Context, userID int64, now time.Time) (Totals, error) {
	sums, err := a.ledger.SumWindows(ctx, userID,
		models.PeriodToday.Range(now),
		models.PeriodWeek.Range(now),
		models.PeriodMonth.Range(now),
		models.PeriodAll.Range(now),
	)
	if err != nil {
		return Totals{}, fmt.Errorf("sum totals: %w", err)
	}
	return Totals{Today: sums[0], ThisWeek: sums[1], ThisMonth: sums[2], AllTime: sums[3]}, nil
}

// CategoryShare is one row of a breakdown.
type CategoryShare struct {
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
	Orphaned   bool            `json:"orphaned,omitempty"`
}

// Breakdown is the per-category split of one period, largest category first.
type Breakdown struct {
	Period     models.Period   `json:"period,omitempty"`
	From       models.Date     `json:"from"`
	To         models.Date     `json:"to"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryShare `json:"categories"`
}

// CategoryBreakdown groups the user's expenses in period by category label.
// Categories without expenses in the period are left out.
func (a *Aggregator) CategoryBreakdown(ctx context.Context, userID int64, period models.Period, now time.Time) (*Breakdown, error) {
	if period == "" {
		period = models.PeriodAll
	}
	r := period.Range(now)
	b, err := a.breakdown(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	b.Period = period
	return b, nil
}

// RangeBreakdown groups the user's expenses between r.From and r.To inclusive.
// Both bounds are required and From may not be after To.
func (a *Aggregator) RangeBreakdown(ctx context.Context, userID int64, r models.DateRange) (*Breakdown, error) {
	if r.From.IsZero() {
		return nil, &models.ValidationError{Field: "from", Reason: "required"}
	}
	if r.To.IsZero() {
		return nil, &models.ValidationError{Field: "to", Reason: "required"}
	}
	if r.From.After(r.To.Time) {
		return nil, &models.ValidationError{Field: "from", Reason: "must not be after to"}
	}
	return a.breakdown(ctx, userID, r)
}

func (a *Aggregator) breakdown(ctx context.Context, userID int64, r models.DateRange) (*Breakdown, error) {
	sums, err := a.ledger.CategorySums(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	shares, total := shareOf(sums)
	return &Breakdown{From: r.From, To: r.To, Total: total, Categories: shares}, nil
}

// shareOf orders category totals by total descending then name ascending and
// attaches each one's percentage of the grand total.
func shareOf(sums []models.CategoryTotal) ([]CategoryShare, decimal.Decimal) {
	shares := make([]CategoryShare, 0, len(sums))
	total := decimal.Zero
	for _, s := range sums {
		if !s.Total.IsPositive() {
			continue
		}
		total = total.Add(s.Total)
		shares = append(shares, CategoryShare{
			Name:     s.Name,
			Color:    s.Color,
			Total:    s.Total,
			Count:    s.Count,
			Orphaned: s.Orphaned,
		})
	}

	slices.SortStableFunc(shares, func(x, y CategoryShare) int {
		if c := y.Total.Cmp(x.Total); c != 0 {
			return c
		}
		return cmp.Compare(x.Name, y.Name)
	})

	for i := range shares {
		shares[i].Percentage = PercentageOfTotal(shares[i].Total, total)
	}
	return shares, total
}

// PercentageOfTotal returns part as a percentage of grand, or 0 when grand is zero.
func PercentageOfTotal(part, grand decimal.Decimal) float64 {
	if grand.IsZero() {
		return 0
	}
	return part.Div(grand).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// MonthlySummary is the calendar-month view: category split plus every expense of the month.
type MonthlySummary struct {
	Year       int              `json:"year"`
	Month      time.Month       `json:"month"`
	Total      decimal.Decimal  `json:"total"`
	Categories []CategoryShare  `json:"categories"`
	Expenses   []models.Expense `json:"expenses"`
}

// MonthlySummary reports one calendar month. Unlike PeriodMonth it is aligned to
// the first and last day of the month.
func (a *Aggregator) MonthlySummary(ctx context.Context, userID int64, year int, month time.Month) (*MonthlySummary, error) {
	if month < time.January || month > time.December {
		return nil, &models.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	r := models.MonthRange(year, month)

	b, err := a.breakdown(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	expenses, err := a.ledger.ListExpenses(ctx, userID, storage.ExpenseFilter{Range: r})
	if err != nil {
		return nil, fmt.Errorf("list month expenses: %w", err)
	}
	return &MonthlySummary{
		Year:       year,
		Month:      month,
		Total:      b.Total,
		Categories: b.Categories,
		Expenses:   expenses,
	}, nil
}
