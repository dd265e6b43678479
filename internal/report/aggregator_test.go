package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

// AggregatorTestSuite runs the aggregator against an in-memory store.
type AggregatorTestSuite struct {
	suite.Suite
	db  *storage.DB
	agg *Aggregator
	ctx context.Context
}

func (suite *AggregatorTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.agg = NewAggregator(db)
	suite.ctx = context.Background()
}

func (suite *AggregatorTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *AggregatorTestSuite) add(userID int64, amount, category, date string) {
	d, err := models.ParseDate(date)
	require.NoError(suite.T(), err)
	_, err = suite.db.AddExpense(suite.ctx, &models.Expense{
		UserID:   userID,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Date:     d,
	})
	require.NoError(suite.T(), err)
}

func (suite *AggregatorTestSuite) category(userID int64, name, color, limit string) {
	c := &models.Category{UserID: userID, Name: name, Color: color}
	if limit != "" {
		l := decimal.RequireFromString(limit)
		c.BudgetLimit = &l
	}
	_, err := suite.db.AddCategory(suite.ctx, c)
	require.NoError(suite.T(), err)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func money(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func (suite *AggregatorTestSuite) TestTwoExpenseScenario() {
	suite.category(1, "Food", "#4361ee", "")
	suite.category(1, "Transport", "#3a0ca3", "")
	suite.add(1, "12.50", "Food", "2024-03-01")
	suite.add(1, "40.00", "Transport", "2024-03-02")
	now := day(2024, time.March, 2)

	b, err := suite.agg.CategoryBreakdown(suite.ctx, 1, models.PeriodMonth, now)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), b.Categories, 2)

	assert.Equal(suite.T(), "Transport", b.Categories[0].Name)
	money(suite.T(), "40.00", b.Categories[0].Total)
	assert.Equal(suite.T(), "#3a0ca3", b.Categories[0].Color)
	assert.Equal(suite.T(), "Food", b.Categories[1].Name)
	money(suite.T(), "12.50", b.Categories[1].Total)

	assert.InDelta(suite.T(), 76.19, b.Categories[0].Percentage, 0.01)
	assert.InDelta(suite.T(), 23.81, b.Categories[1].Percentage, 0.01)

	totals, err := suite.agg.Totals(suite.ctx, 1, now)
	require.NoError(suite.T(), err)
	money(suite.T(), "52.50", totals.AllTime)
	money(suite.T(), "52.50", totals.ThisMonth)
	money(suite.T(), "52.50", totals.ThisWeek)
	money(suite.T(), "40.00", totals.Today)
}

func (suite *AggregatorTestSuite) TestNoExpenses() {
	now := day(2024, time.March, 2)

	totals, err := suite.agg.Totals(suite.ctx, 1, now)
	require.NoError(suite.T(), err)
	for _, v := range []decimal.Decimal{totals.Today, totals.ThisWeek, totals.ThisMonth, totals.AllTime} {
		assert.True(suite.T(), v.IsZero())
	}

	b, err := suite.agg.CategoryBreakdown(suite.ctx, 1, models.PeriodAll, now)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), b.Categories)
	assert.True(suite.T(), b.Total.IsZero())
}

func (suite *AggregatorTestSuite) TestWindowBoundaries() {
	now := day(2024, time.March, 31)
	suite.add(1, "1.00", "A", "2024-03-31")  // today
	suite.add(1, "2.00", "A", "2024-03-24")  // now - 7 days, still in the week
	suite.add(1, "4.00", "A", "2024-03-23")  // outside the week
	suite.add(1, "8.00", "A", "2024-03-01")  // now - 30 days, still in the month
	suite.add(1, "16.00", "A", "2024-02-29") // outside the month
	suite.add(1, "32.00", "A", "2024-04-01") // after now

	totals, err := suite.agg.Totals(suite.ctx, 1, now)
	require.NoError(suite.T(), err)
	money(suite.T(), "1.00", totals.Today)
	money(suite.T(), "3.00", totals.ThisWeek)
	money(suite.T(), "15.00", totals.ThisMonth)
	money(suite.T(), "63.00", totals.AllTime)
}

// countingLedger records how many reads Totals issues against the store.
type countingLedger struct {
	*storage.DB
	windowReads int
}

func (c *countingLedger) SumWindows(ctx context.Context, userID int64, windows ...models.DateRange) ([]decimal.Decimal, error) {
	c.windowReads++
	return c.DB.SumWindows(ctx, userID, windows...)
}

func (suite *AggregatorTestSuite) TestTotalsReadOneSnapshot() {
	suite.add(1, "1.00", "A", "2024-03-31")
	suite.add(1, "2.00", "A", "2024-03-26")
	suite.add(1, "4.00", "A", "2024-03-05")
	suite.add(1, "8.00", "A", "2023-07-01")
	now := day(2024, time.March, 31)

	ledger := &countingLedger{DB: suite.db}
	totals, err := NewAggregator(ledger).Totals(suite.ctx, 1, now)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, ledger.windowReads)

	money(suite.T(), "1.00", totals.Today)
	money(suite.T(), "3.00", totals.ThisWeek)
	money(suite.T(), "7.00", totals.ThisMonth)
	money(suite.T(), "15.00", totals.AllTime)
	assert.True(suite.T(), totals.Today.LessThanOrEqual(totals.ThisWeek))
	assert.True(suite.T(), totals.ThisWeek.LessThanOrEqual(totals.ThisMonth))
	assert.True(suite.T(), totals.ThisMonth.LessThanOrEqual(totals.AllTime))
}

func (suite *AggregatorTestSuite) TestBreakdownMatchesTotals() {
	suite.add(1, "3.33", "Food", "2024-03-30")
	suite.add(1, "10.10", "Rent", "2024-03-20")
	suite.add(1, "0.01", "Misc", "2024-03-31")
	suite.add(1, "99.99", "Food", "2023-12-01")
	suite.add(2, "500.00", "Food", "2024-03-31")
	now := day(2024, time.March, 31)

	totals, err := suite.agg.Totals(suite.ctx, 1, now)
	require.NoError(suite.T(), err)

	for period, want := range map[models.Period]decimal.Decimal{
		models.PeriodToday: totals.Today,
		models.PeriodWeek:  totals.ThisWeek,
		models.PeriodMonth: totals.ThisMonth,
		models.PeriodAll:   totals.AllTime,
	} {
		b, err := suite.agg.CategoryBreakdown(suite.ctx, 1, period, now)
		require.NoError(suite.T(), err)

		sum := decimal.Zero
		pct := 0.0
		for _, c := range b.Categories {
			assert.True(suite.T(), c.Total.IsPositive(), "zero categories are omitted")
			sum = sum.Add(c.Total)
			pct += c.Percentage
		}
		money(suite.T(), want.String(), sum)
		money(suite.T(), want.String(), b.Total)
		if len(b.Categories) > 0 {
			assert.InDelta(suite.T(), 100.0, pct, 0.0001, "period %s", period)
		}
	}
}

func (suite *AggregatorTestSuite) TestBreakdownTiesOrderedByName() {
	suite.add(1, "5.00", "Zeta", "2024-03-01")
	suite.add(1, "5.00", "Alpha", "2024-03-01")
	suite.add(1, "5.00", "Mid", "2024-03-01")
	suite.add(1, "7.00", "Top", "2024-03-01")

	b, err := suite.agg.CategoryBreakdown(suite.ctx, 1, models.PeriodAll, day(2024, time.March, 1))
	require.NoError(suite.T(), err)

	var names []string
	for _, c := range b.Categories {
		names = append(names, c.Name)
	}
	assert.Equal(suite.T(), []string{"Top", "Alpha", "Mid", "Zeta"}, names)
}

func (suite *AggregatorTestSuite) TestOrphanedCategoryLabel() {
	suite.category(1, "Food", "#4361ee", "")
	suite.add(1, "5.00", "Food", "2024-03-01")
	suite.add(1, "9.00", "Gadgets", "2024-03-01")

	b, err := suite.agg.CategoryBreakdown(suite.ctx, 1, "", day(2024, time.March, 1))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.PeriodAll, b.Period)
	require.Len(suite.T(), b.Categories, 2)

	assert.Equal(suite.T(), "Gadgets", b.Categories[0].Name)
	assert.True(suite.T(), b.Categories[0].Orphaned)
	assert.Equal(suite.T(), models.FallbackColor, b.Categories[0].Color)
	assert.False(suite.T(), b.Categories[1].Orphaned)
}

func (suite *AggregatorTestSuite) TestMonthlySummary() {
	suite.add(1, "10.00", "Food", "2024-02-29")
	suite.add(1, "20.00", "Food", "2024-03-01")
	suite.add(1, "5.00", "Rent", "2024-03-31")
	suite.add(1, "1.00", "Rent", "2024-04-01")

	s, err := suite.agg.MonthlySummary(suite.ctx, 1, 2024, time.March)
	require.NoError(suite.T(), err)
	money(suite.T(), "25.00", s.Total)
	require.Len(suite.T(), s.Categories, 2)
	assert.Equal(suite.T(), "Food", s.Categories[0].Name)
	require.Len(suite.T(), s.Expenses, 2)
	assert.Equal(suite.T(), "2024-03-31", s.Expenses[0].Date.String())

	_, err = suite.agg.MonthlySummary(suite.ctx, 1, 2024, 13)
	var verr *models.ValidationError
	assert.ErrorAs(suite.T(), err, &verr)
}

func (suite *AggregatorTestSuite) TestBudgetStatus() {
	suite.category(1, "Food", "#4361ee", "10.00")
	suite.category(1, "Rent", "#ffd166", "500.00")
	suite.category(1, "Fun", "#f72585", "")
	suite.add(1, "12.50", "Food", "2024-03-01")
	suite.add(1, "100.00", "Food", "2024-01-01")

	budgets, err := suite.agg.BudgetStatus(suite.ctx, 1, day(2024, time.March, 2))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), budgets, 2)

	food := budgets[0]
	assert.Equal(suite.T(), "Food", food.Category)
	money(suite.T(), "12.50", food.Spent)
	money(suite.T(), "-2.50", food.Remaining)
	assert.True(suite.T(), food.Over)
	assert.InDelta(suite.T(), 125.0, food.Percentage, 0.001)

	rent := budgets[1]
	assert.Equal(suite.T(), "Rent", rent.Category)
	assert.True(suite.T(), rent.Spent.IsZero())
	assert.False(suite.T(), rent.Over)
}

func (suite *AggregatorTestSuite) TestDashboard() {
	suite.category(1, "Food", "#4361ee", "50.00")
	for i := 1; i <= 7; i++ {
		suite.add(1, "1.00", "Food", time.Date(2024, time.March, i, 0, 0, 0, 0, time.UTC).Format(models.DateLayout))
	}

	d, err := suite.agg.Dashboard(suite.ctx, 1, day(2024, time.March, 7))
	require.NoError(suite.T(), err)
	money(suite.T(), "7.00", d.Totals.AllTime)
	require.NotNil(suite.T(), d.Breakdown)
	assert.Len(suite.T(), d.Breakdown.Categories, 1)
	assert.Len(suite.T(), d.Recent, RecentLimit)
	assert.Equal(suite.T(), "2024-03-07", d.Recent[0].Date.String())
	require.Len(suite.T(), d.Budgets, 1)
	money(suite.T(), "43.00", d.Budgets[0].Remaining)
	require.NotNil(suite.T(), d.Subscriptions)
	assert.Empty(suite.T(), d.Subscriptions.Subscriptions)
	assert.True(suite.T(), d.Subscriptions.MonthlyCost.IsZero())
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

func TestPercentageOfTotal(t *testing.T) {
	assert.Equal(t, 0.0, PercentageOfTotal(decimal.NewFromInt(42), decimal.Zero))
	assert.Equal(t, 0.0, PercentageOfTotal(decimal.Zero, decimal.Zero))
	assert.Equal(t, 50.0, PercentageOfTotal(decimal.NewFromInt(1), decimal.NewFromInt(2)))
	assert.Equal(t, 100.0, PercentageOfTotal(decimal.NewFromInt(3), decimal.NewFromInt(3)))
}

type failingLedger struct{ err error }

func (f failingLedger) SumWindows(context.Context, int64, ...models.DateRange) ([]decimal.Decimal, error) {
	return nil, f.err
}

func (f failingLedger) CategorySums(context.Context, int64, models.DateRange) ([]models.CategoryTotal, error) {
	return nil, f.err
}

func (f failingLedger) ListExpenses(context.Context, int64, storage.ExpenseFilter) ([]models.Expense, error) {
	return nil, f.err
}

func (f failingLedger) ListCategories(context.Context, int64) ([]models.Category, error) {
	return nil, f.err
}

func (f failingLedger) ListSubscriptions(context.Context, int64, string) ([]models.Subscription, error) {
	return nil, f.err
}

func TestStoreFailuresPropagate(t *testing.T) {
	cause := &storage.UnavailableError{Op: "sum expenses", Err: errors.New("database is locked")}
	agg := NewAggregator(failingLedger{err: cause})
	now := day(2024, time.March, 2)
	ctx := context.Background()

	_, err := agg.Totals(ctx, 1, now)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = agg.CategoryBreakdown(ctx, 1, models.PeriodWeek, now)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = agg.BudgetStatus(ctx, 1, now)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = agg.Dashboard(ctx, 1, now)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = agg.Subscriptions(ctx, 1, "", now)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = agg.RangeBreakdown(ctx, 1, models.DateRange{From: models.DateOf(now), To: models.DateOf(now)})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
