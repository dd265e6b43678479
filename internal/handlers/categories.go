package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
	"expense-ledger/internal/validator"
)

type categoryRequest struct {
	Name        string           `json:"name" validate:"required,notblank,max=64"`
	Color       string           `json:"color" validate:"omitempty,color"`
	BudgetLimit *decimal.Decimal `json:"budget_limit"`
}

type categoryUpdateRequest struct {
	Color       string           `json:"color" validate:"omitempty,color"`
	BudgetLimit *decimal.Decimal `json:"budget_limit"`
}

// ListCategories returns the user's categories ordered by name.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.db.ListCategories(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory adds a category. Names are unique per user.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c := &models.Category{
		UserID:      GetUserFromContext(r).ID,
		Name:        strings.TrimSpace(req.Name),
		Color:       req.Color,
		BudgetLimit: req.BudgetLimit,
	}
	if _, err := h.db.AddCategory(r.Context(), c); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeMessage(w, http.StatusConflict, "category already exists")
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCategory replaces the colour and budget of a category. Omitting
// budget_limit removes the budget.
func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c := &models.Category{
		UserID:      GetUserFromContext(r).ID,
		Name:        r.PathValue("name"),
		Color:       req.Color,
		BudgetLimit: req.BudgetLimit,
	}
	if err := h.db.UpdateCategory(r.Context(), c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "category not found")
			return
		}
		h.writeError(w, r, err)
		return
	}

	updated, err := h.db.GetCategory(r.Context(), c.UserID, c.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
