package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
	"expense-ledger/internal/validator"
)

type expenseRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0,lte=9999999999.99"`
	Category    string          `json:"category" validate:"required,notblank,max=64"`
	Description string          `json:"description" validate:"max=500"`
	Date        models.Date     `json:"date"`
}

func (req expenseRequest) expense(userID int64) *models.Expense {
	return &models.Expense{
		UserID:      userID,
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
	}
}

// ExpenseGroup groups expenses by date.
type ExpenseGroup struct {
	Title string           `json:"title"`
	Date  models.Date      `json:"date"`
	Total decimal.Decimal  `json:"total"`
	Items []models.Expense `json:"items"`
}

type expenseListResponse struct {
	Total    decimal.Decimal  `json:"total"`
	Expenses []models.Expense `json:"expenses"`
}

type groupedExpensesResponse struct {
	Total  decimal.Decimal `json:"total"`
	Groups []ExpenseGroup  `json:"groups"`
}

// ListExpenses returns the user's expenses, newest first. With group=day the
// expenses are grouped per calendar day.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	filter, err := h.expenseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("group") == "day" {
		resp := groupedExpensesResponse{Groups: []ExpenseGroup{}}
		today := models.DateOf(h.now())
		for e, err := range h.db.Expenses(r.Context(), user.ID, filter) {
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			if n := len(resp.Groups); n == 0 || !resp.Groups[n-1].Date.Equal(e.Date.Time) {
				resp.Groups = append(resp.Groups, ExpenseGroup{Date: e.Date, Title: formatGroupTitle(e.Date, today)})
			}
			group := &resp.Groups[len(resp.Groups)-1]
			group.Total = group.Total.Add(e.Amount)
			group.Items = append(group.Items, e)
			resp.Total = resp.Total.Add(e.Amount)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	expenses, err := h.db.ListExpenses(r.Context(), user.ID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := expenseListResponse{Expenses: expenses}
	for _, e := range expenses {
		resp.Total = resp.Total.Add(e.Amount)
	}
	writeJSON(w, http.StatusOK, resp)
}

// expenseFilter reads period, from, to, category and limit. Explicit from/to
// bounds override the ones implied by period.
func (h *Handlers) expenseFilter(r *http.Request) (storage.ExpenseFilter, error) {
	q := r.URL.Query()
	var f storage.ExpenseFilter

	period, err := models.ParsePeriod(q.Get("period"))
	if err != nil {
		return f, err
	}
	f.Range = period.Range(h.now())

	if s := q.Get("from"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			return f, &models.ValidationError{Field: "from", Reason: "must be a date like 2024-03-01"}
		}
		f.Range.From = d
	}
	if s := q.Get("to"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			return f, &models.ValidationError{Field: "to", Reason: "must be a date like 2024-03-31"}
		}
		f.Range.To = d
	}
	f.Category = strings.TrimSpace(q.Get("category"))

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			return f, &models.ValidationError{Field: "limit", Reason: "must be a non-negative integer"}
		}
		f.Limit = limit
	}
	return f, nil
}

// CreateExpense records a new expense and runs the budget check for its category.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	var req expenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	e := req.expense(user.ID)
	if _, err := h.db.AddExpense(r.Context(), e); err != nil {
		h.writeError(w, r, err)
		return
	}

	logger := log.FromContext(r.Context())
	logger.InfoContext(r.Context(), "Expense recorded", log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(e.ID, e.Category, e.Amount.StringFixed(2)).
		ToSlice()...)

	if h.watcher != nil {
		// A failed check never fails the write.
		if _, err := h.watcher.Check(r.Context(), *e); err != nil {
			logger.WarnContext(r.Context(), "Budget check failed", log.FieldExpenseID, e.ID, log.FieldError, err)
		}
	}

	writeJSON(w, http.StatusCreated, e)
}

// GetExpense returns one expense.
func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.db.GetExpense(r.Context(), GetUserFromContext(r).ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateExpense replaces an existing expense.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	e := req.expense(user.ID)
	e.ID = id
	if err := h.db.UpdateExpense(r.Context(), e); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.db.GetExpense(r.Context(), user.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteExpense removes an expense. Deleting a missing expense is a 404.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.db.DeleteExpense(r.Context(), GetUserFromContext(r).ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "expense not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func formatGroupTitle(date, today models.Date) string {
	switch {
	case date.Equal(today.Time):
		return "TODAY"
	case date.Equal(today.AddDays(-1).Time):
		return "YESTERDAY"
	default:
		return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
	}
}
