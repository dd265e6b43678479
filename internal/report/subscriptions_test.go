package report

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-ledger/internal/models"
)

func (suite *AggregatorTestSuite) subscription(userID int64, name, amount, category, start string, cycle models.BillingCycle) {
	d, err := models.ParseDate(start)
	require.NoError(suite.T(), err)
	_, err = suite.db.AddSubscription(suite.ctx, &models.Subscription{
		UserID:       userID,
		Name:         name,
		Amount:       decimal.RequireFromString(amount),
		Category:     category,
		StartDate:    d,
		BillingCycle: cycle,
	})
	require.NoError(suite.T(), err)
}

func (suite *AggregatorTestSuite) TestSubscriptionSummary() {
	suite.subscription(1, "Video", "15.00", "Streaming", "2024-02-20", models.CycleMonthly)  // next 2024-03-21
	suite.subscription(1, "Editor", "120.00", "Software", "2023-03-20", models.CycleYearly) // next 2024-03-19
	suite.subscription(1, "Box", "2.50", "Other", "2024-03-01", models.CycleWeekly)         // next 2024-03-15
	suite.subscription(1, "Gym", "30.00", "Memberships", "2024-04-01", models.CycleMonthly) // not started yet
	suite.subscription(2, "Not mine", "99.00", "Other", "2024-03-15", models.CycleWeekly)

	s, err := suite.agg.Subscriptions(suite.ctx, 1, "", day(2024, time.March, 15))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), s.Subscriptions, 4)

	next := map[string]string{}
	for _, sub := range s.Subscriptions {
		next[sub.Name] = sub.NextPayment.String()
	}
	assert.Equal(suite.T(), map[string]string{
		"Box":    "2024-03-15",
		"Editor": "2024-03-19",
		"Gym":    "2024-04-01",
		"Video":  "2024-03-21",
	}, next)

	money(suite.T(), "167.50", s.Total)
	// 15 + 120/12 + 2.50*4 + 30
	money(suite.T(), "65.00", s.MonthlyCost)

	require.Len(suite.T(), s.Upcoming, 3)
	assert.Equal(suite.T(), "Box", s.Upcoming[0].Name)
	assert.Equal(suite.T(), "Editor", s.Upcoming[1].Name)
	assert.Equal(suite.T(), "Video", s.Upcoming[2].Name)
}

func (suite *AggregatorTestSuite) TestSubscriptionSummaryUpcomingEdge() {
	suite.subscription(1, "Edge", "1.00", "Other", "2024-03-22", models.CycleMonthly)
	suite.subscription(1, "Beyond", "1.00", "Other", "2024-03-23", models.CycleMonthly)

	s, err := suite.agg.Subscriptions(suite.ctx, 1, "", day(2024, time.March, 15))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), s.Upcoming, 1, "seven days ahead is still upcoming")
	assert.Equal(suite.T(), "Edge", s.Upcoming[0].Name)
}

func (suite *AggregatorTestSuite) TestSubscriptionSummaryByCategory() {
	suite.subscription(1, "Video", "15.00", "Streaming", "2024-02-20", models.CycleMonthly)
	suite.subscription(1, "Editor", "120.00", "Software", "2023-03-20", models.CycleYearly)

	s, err := suite.agg.Subscriptions(suite.ctx, 1, "Software", day(2024, time.March, 15))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), s.Subscriptions, 1)
	money(suite.T(), "10.00", s.MonthlyCost)

	none, err := suite.agg.Subscriptions(suite.ctx, 3, "", day(2024, time.March, 15))
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), none.Subscriptions)
	assert.Empty(suite.T(), none.Upcoming)
	assert.True(suite.T(), none.Total.IsZero())
}

func (suite *AggregatorTestSuite) TestRangeBreakdown() {
	suite.add(1, "10.00", "Food", "2024-01-31")
	suite.add(1, "20.00", "Food", "2024-02-01")
	suite.add(1, "5.00", "Rent", "2024-02-29")
	suite.add(1, "40.00", "Rent", "2024-03-01")

	from, _ := models.ParseDate("2024-02-01")
	to, _ := models.ParseDate("2024-02-29")
	b, err := suite.agg.RangeBreakdown(suite.ctx, 1, models.DateRange{From: from, To: to})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), b.Period)
	assert.Equal(suite.T(), "2024-02-01", b.From.String())
	assert.Equal(suite.T(), "2024-02-29", b.To.String())
	money(suite.T(), "25.00", b.Total)
	require.Len(suite.T(), b.Categories, 2)
	assert.Equal(suite.T(), "Food", b.Categories[0].Name)
	assert.InDelta(suite.T(), 80.0, b.Categories[0].Percentage, 0.0001)

	single, err := suite.agg.RangeBreakdown(suite.ctx, 1, models.DateRange{From: to, To: to})
	require.NoError(suite.T(), err)
	money(suite.T(), "5.00", single.Total)
}

func (suite *AggregatorTestSuite) TestRangeBreakdownValidation() {
	from, _ := models.ParseDate("2024-03-01")
	to, _ := models.ParseDate("2024-02-01")

	tests := []struct {
		name  string
		r     models.DateRange
		field string
	}{
		{"missing from", models.DateRange{To: to}, "from"},
		{"missing to", models.DateRange{From: from}, "to"},
		{"reversed", models.DateRange{From: from, To: to}, "from"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.agg.RangeBreakdown(suite.ctx, 1, tt.r)
			var verr *models.ValidationError
			require.ErrorAs(suite.T(), err, &verr)
			assert.Equal(suite.T(), tt.field, verr.Field)
		})
	}
}
