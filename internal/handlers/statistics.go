package handlers

import (
	"net/http"
	"strconv"
	"time"

	"expense-ledger/internal/models"
	"expense-ledger/internal/report"
)

// MonthlySummaryResponse adds navigation to the neighbouring months.
type MonthlySummaryResponse struct {
	*report.MonthlySummary
	MonthName      string `json:"month_name"`
	PrevYear       int    `json:"prev_year"`
	PrevMonth      int    `json:"prev_month"`
	NextYear       int    `json:"next_year"`
	NextMonth      int    `json:"next_month"`
	IsCurrentMonth bool   `json:"is_current_month"`
}

// Totals returns spending for today, the trailing week and month, and all time.
func (h *Handlers) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.agg.Totals(r.Context(), GetUserFromContext(r).ID, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// Breakdown returns per-category spending for ?period= (default all). With
// ?from= and ?to= it reports that inclusive date range instead.
func (h *Handlers) Breakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("from") || q.Has("to") {
		h.rangeBreakdown(w, r)
		return
	}

	period, err := models.ParsePeriod(q.Get("period"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.agg.CategoryBreakdown(r.Context(), GetUserFromContext(r).ID, period, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) rangeBreakdown(w http.ResponseWriter, r *http.Request) {
	var rng models.DateRange
	for _, bound := range []struct {
		field string
		dst   *models.Date
	}{
		{"from", &rng.From},
		{"to", &rng.To},
	} {
		s := r.URL.Query().Get(bound.field)
		if s == "" {
			continue
		}
		d, err := models.ParseDate(s)
		if err != nil {
			h.writeError(w, r, &models.ValidationError{Field: bound.field, Reason: "must be a date like 2024-03-01"})
			return
		}
		*bound.dst = d
	}

	b, err := h.agg.RangeBreakdown(r.Context(), GetUserFromContext(r).ID, rng)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// MonthlySummary reports a calendar month given by ?year= and ?month=,
// defaulting to the current month.
func (h *Handlers) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, month := now.Year(), int(now.Month())

	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			h.writeError(w, r, &models.ValidationError{Field: "year", Reason: "must be a positive integer"})
			return
		}
		year = y
	}
	if s := r.URL.Query().Get("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil {
			h.writeError(w, r, &models.ValidationError{Field: "month", Reason: "must be between 1 and 12"})
			return
		}
		month = m
	}

	summary, err := h.agg.MonthlySummary(r.Context(), GetUserFromContext(r).ID, year, time.Month(month))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	writeJSON(w, http.StatusOK, MonthlySummaryResponse{
		MonthlySummary: summary,
		MonthName:      time.Month(month).String(),
		PrevYear:       prev.Year(),
		PrevMonth:      int(prev.Month()),
		NextYear:       next.Year(),
		NextMonth:      int(next.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	})
}

// Budgets returns spending against each budgeted category over the trailing month.
func (h *Handlers) Budgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.agg.BudgetStatus(r.Context(), GetUserFromContext(r).ID, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

// Dashboard returns totals, the monthly breakdown, recent expenses and budgets in one call.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.agg.Dashboard(r.Context(), GetUserFromContext(r).ID, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
