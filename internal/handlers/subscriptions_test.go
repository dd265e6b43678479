package handlers

import (
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-ledger/internal/models"
	"expense-ledger/internal/report"
)

func (suite *APITestSuite) addSubscription(body map[string]string) models.Subscription {
	w := suite.authed(http.MethodPost, "/api/v1/subscriptions", body)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Subscription](suite.T(), w)
}

func (suite *APITestSuite) TestSubscriptionLifecycle() {
	video := suite.addSubscription(map[string]string{
		"name": "Video", "amount": "15.00", "category": "Streaming",
		"start_date": "2024-02-20", "billing_cycle": "monthly",
	})
	assert.Positive(suite.T(), video.ID)
	assert.Equal(suite.T(), "2024-03-21", video.NextPayment.String())

	box := suite.addSubscription(map[string]string{
		"name": "Box", "amount": "2.50", "category": "Other", "billing_cycle": "weekly",
	})
	assert.Equal(suite.T(), "2024-03-15", box.StartDate.String(), "start defaults to today")
	assert.Equal(suite.T(), "2024-03-15", box.NextPayment.String())

	gym := suite.addSubscription(map[string]string{
		"name": "Gym", "amount": "30", "category": "Memberships", "start_date": "2024-04-01",
	})
	assert.Equal(suite.T(), models.CycleMonthly, gym.BillingCycle)

	w := suite.authed(http.MethodGet, "/api/v1/subscriptions", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	summary := decode[report.SubscriptionSummary](suite.T(), w)
	require.Len(suite.T(), summary.Subscriptions, 3)
	assertDecimal(suite.T(), "47.50", summary.Total)
	assertDecimal(suite.T(), "55", summary.MonthlyCost)
	require.Len(suite.T(), summary.Upcoming, 2)
	assert.Equal(suite.T(), "Box", summary.Upcoming[0].Name)
	assert.Equal(suite.T(), "Video", summary.Upcoming[1].Name)

	w = suite.authed(http.MethodGet, "/api/v1/subscriptions?category=Streaming", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), decode[report.SubscriptionSummary](suite.T(), w).Subscriptions, 1)

	w = suite.authed(http.MethodDelete, "/api/v1/subscriptions/"+jsonID(gym.ID), nil)
	assert.Equal(suite.T(), http.StatusNoContent, w.Code)
	w = suite.authed(http.MethodDelete, "/api/v1/subscriptions/"+jsonID(gym.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.authed(http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	d := decode[report.Dashboard](suite.T(), w)
	require.NotNil(suite.T(), d.Subscriptions)
	assert.Len(suite.T(), d.Subscriptions.Subscriptions, 2)
	assertDecimal(suite.T(), "25", d.Subscriptions.MonthlyCost)
}

func (suite *APITestSuite) TestSubscriptionValidation() {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"blank name", map[string]string{"name": " ", "amount": "5", "category": "Other"}, "name"},
		{"zero amount", map[string]string{"name": "Box", "amount": "0", "category": "Other"}, "amount"},
		{"huge amount", map[string]string{"name": "Box", "amount": "184467440737095516.17", "category": "Other"}, "amount"},
		{"missing category", map[string]string{"name": "Box", "amount": "5"}, "category"},
		{"unknown cycle", map[string]string{"name": "Box", "amount": "5", "category": "Other", "billing_cycle": "daily"}, "billing_cycle"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.authed(http.MethodPost, "/api/v1/subscriptions", tt.body)
			assert.Equal(suite.T(), http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(suite.T(), tt.field, decode[errorResponse](suite.T(), w).Field)
		})
	}

	w := suite.authed(http.MethodGet, "/api/v1/subscriptions", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Empty(suite.T(), decode[report.SubscriptionSummary](suite.T(), w).Subscriptions)
}

func (suite *APITestSuite) TestSubscriptionsAreScopedToUser() {
	s := suite.addSubscription(map[string]string{"name": "Video", "amount": "15", "category": "Streaming"})

	suite.register("bob", "secret456")
	bob := suite.login("bob", "secret456")

	w := suite.do(http.MethodGet, "/api/v1/subscriptions", nil, bob)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Empty(suite.T(), decode[report.SubscriptionSummary](suite.T(), w).Subscriptions)

	w = suite.do(http.MethodDelete, "/api/v1/subscriptions/"+jsonID(s.ID), nil, bob)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestPreferences() {
	w := suite.authed(http.MethodGet, "/api/v1/preferences", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	p := decode[models.Preferences](suite.T(), w)
	assert.Equal(suite.T(), "$", p.Currency)
	assert.True(suite.T(), p.MonthlyBudget.IsZero())

	w = suite.authed(http.MethodPut, "/api/v1/preferences", map[string]string{"currency": "€", "monthly_budget": "1500.50"})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	w = suite.authed(http.MethodGet, "/api/v1/preferences", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	p = decode[models.Preferences](suite.T(), w)
	assert.Equal(suite.T(), "€", p.Currency)
	assertDecimal(suite.T(), "1500.50", p.MonthlyBudget)
	assert.NotContains(suite.T(), w.Body.String(), "user_id")

	for _, body := range []map[string]string{
		{"currency": "", "monthly_budget": "10"},
		{"currency": "$", "monthly_budget": "-1"},
		{"currency": "$", "monthly_budget": "184467440737095516.17"},
	} {
		w = suite.authed(http.MethodPut, "/api/v1/preferences", body)
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, body)
	}

	w = suite.do(http.MethodGet, "/api/v1/preferences", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestBreakdownDateRange() {
	suite.addExpense("10", "Food", "2024-01-31")
	suite.addExpense("20", "Food", "2024-02-01")
	suite.addExpense("5", "Rent", "2024-02-29")
	suite.addExpense("40", "Rent", "2024-03-01")

	w := suite.authed(http.MethodGet, "/api/v1/breakdown?from=2024-02-01&to=2024-02-29", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	b := decode[report.Breakdown](suite.T(), w)
	assert.Equal(suite.T(), "2024-02-01", b.From.String())
	assert.Equal(suite.T(), "2024-02-29", b.To.String())
	assertDecimal(suite.T(), "25", b.Total)
	require.Len(suite.T(), b.Categories, 2)
	assert.Equal(suite.T(), "Food", b.Categories[0].Name)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"only from", "from=2024-02-01", "to"},
		{"only to", "to=2024-02-29", "from"},
		{"reversed", "from=2024-03-01&to=2024-02-01", "from"},
		{"bad date", "from=01/02/2024&to=2024-02-29", "from"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.authed(http.MethodGet, "/api/v1/breakdown?"+tt.query, nil)
			assert.Equal(suite.T(), http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(suite.T(), tt.field, decode[errorResponse](suite.T(), w).Field)
		})
	}
}
