package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/validator"
)

type subscriptionRequest struct {
	Name         string          `json:"name" validate:"required,notblank,max=100"`
	Amount       decimal.Decimal `json:"amount" validate:"gt=0,lte=9999999999.99"`
	Category     string          `json:"category" validate:"required,notblank,max=64"`
	StartDate    models.Date     `json:"start_date"`
	BillingCycle string          `json:"billing_cycle"`
}

type preferencesRequest struct {
	Currency      string          `json:"currency" validate:"required,notblank,max=8"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget" validate:"gte=0,lte=9999999999.99"`
}

// ListSubscriptions returns the user's recurring payments with their next
// charge, monthly cost and the ones due this week. ?category= narrows the list.
func (h *Handlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	summary, err := h.agg.Subscriptions(r.Context(), GetUserFromContext(r).ID, r.URL.Query().Get("category"), h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CreateSubscription records a recurring payment. The billing cycle defaults
// to monthly and the start date to today.
func (h *Handlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	var req subscriptionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cycle, err := models.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	today := models.DateOf(h.now())
	s := &models.Subscription{
		UserID:       user.ID,
		Name:         strings.TrimSpace(req.Name),
		Amount:       req.Amount,
		Category:     strings.TrimSpace(req.Category),
		StartDate:    req.StartDate,
		BillingCycle: cycle,
	}
	if s.StartDate.IsZero() {
		s.StartDate = today
	}
	if _, err := h.db.AddSubscription(r.Context(), s); err != nil {
		h.writeError(w, r, err)
		return
	}
	s.NextPayment = s.BillingCycle.NextPayment(s.StartDate, today)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Subscription recorded", log.NewFields().
		WithOperation(log.OpCreate).
		WithUser(user.ID).
		ToSlice()...)
	writeJSON(w, http.StatusCreated, s)
}

// DeleteSubscription removes a recurring payment. Deleting a missing one is a 404.
func (h *Handlers) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.db.DeleteSubscription(r.Context(), GetUserFromContext(r).ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "subscription not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences returns the user's currency and monthly budget.
func (h *Handlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.db.GetPreferences(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePreferences replaces the user's currency and monthly budget.
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p := &models.Preferences{
		UserID:        GetUserFromContext(r).ID,
		Currency:      req.Currency,
		MonthlyBudget: req.MonthlyBudget,
	}
	if err := h.db.SavePreferences(r.Context(), p); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
