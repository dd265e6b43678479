package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

// NearingRatio is the share of the limit at which a nearing alert fires.
var NearingRatio = decimal.RequireFromString("0.8")

// Publisher delivers alerts somewhere.
type Publisher interface {
	Publish(ctx context.Context, alert *BudgetAlert) error
}

// BudgetReader is what the watcher needs from the store.
type BudgetReader interface {
	GetCategory(ctx context.Context, userID int64, name string) (*models.Category, error)
	SumExpenses(ctx context.Context, userID int64, f storage.ExpenseFilter) (decimal.Decimal, error)
}

// Watcher checks freshly added expenses against their category's budget.
type Watcher struct {
	store     BudgetReader
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

func NewWatcher(store BudgetReader, publisher Publisher, logger *log.Logger) *Watcher {
	return &Watcher{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAlerts),
		now:       time.Now,
	}
}

// Check looks at the budget of e's category over the trailing month and
// publishes an alert when e moved spending across the nearing or exceeded
// threshold. It returns the alert, or nil when nothing fired.
func (w *Watcher) Check(ctx context.Context, e models.Expense) (*BudgetAlert, error) {
	category, err := w.store.GetCategory(ctx, e.UserID, e.Category)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	if category.BudgetLimit == nil || !category.BudgetLimit.IsPositive() {
		return nil, nil
	}

	window := models.PeriodMonth.Range(w.now())
	if !window.Contains(e.Date) {
		return nil, nil
	}

	spent, err := w.store.SumExpenses(ctx, e.UserID, storage.ExpenseFilter{Range: window, Category: category.Name})
	if err != nil {
		return nil, fmt.Errorf("sum category: %w", err)
	}

	level := crossed(spent.Sub(e.Amount), spent, *category.BudgetLimit)
	if level == "" {
		return nil, nil
	}

	alert := &BudgetAlert{
		ID:        uuid.NewString(),
		UserID:    e.UserID,
		ExpenseID: e.ID,
		Category:  category.Name,
		Level:     level,
		Spent:     spent,
		Limit:     *category.BudgetLimit,
		From:      window.From,
		To:        window.To,
		Timestamp: w.now().UTC(),
	}
	if err := w.publisher.Publish(ctx, alert); err != nil {
		return alert, fmt.Errorf("publish alert: %w", err)
	}
	return alert, nil
}

// crossed reports the highest threshold passed while spending went from before to after.
func crossed(before, after, limit decimal.Decimal) Level {
	if after.GreaterThan(limit) && before.LessThanOrEqual(limit) {
		return LevelExceeded
	}
	nearing := limit.Mul(NearingRatio)
	if after.GreaterThanOrEqual(nearing) && before.LessThan(nearing) && after.LessThanOrEqual(limit) {
		return LevelNearing
	}
	return ""
}

// LogPublisher only logs alerts. It stands in when no broker is configured.
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.WithComponent(log.ComponentAlerts)}
}

func (p *LogPublisher) Publish(ctx context.Context, alert *BudgetAlert) error {
	p.logger.WarnContext(ctx, alert.Message(),
		log.FieldUserID, alert.UserID,
		log.FieldCategory, alert.Category,
		"spent", alert.Spent.StringFixed(2),
		"limit", alert.Limit.StringFixed(2),
	)
	return nil
}
