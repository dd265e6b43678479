package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultColor is used for categories created without an explicit colour.
	DefaultColor = "#4361ee"
	// FallbackColor is shown for expenses whose category label matches no category.
	FallbackColor = "#6c757d"
)

// MaxAmount is the largest amount accepted for an expense or a budget. It keeps
// every cent count, and any realistic sum of them, inside int64.
var MaxAmount = decimal.RequireFromString("9999999999.99")

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Expense represents a financial expense record.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        Date            `json:"date"`
	// Color is filled from the matching category on reads; it is not persisted on the expense.
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the invariants every stored expense must hold.
func (e *Expense) Validate() error {
	if e.UserID <= 0 {
		return invalid("user_id", "required")
	}
	if ToCents(e.Amount) <= 0 {
		return invalid("amount", "must be greater than zero")
	}
	if e.Amount.GreaterThan(MaxAmount) {
		return invalid("amount", "must be at most "+MaxAmount.StringFixed(2))
	}
	if strings.TrimSpace(e.Category) == "" {
		return invalid("category", "required")
	}
	if e.Date.IsZero() {
		return invalid("date", "required")
	}
	return nil
}

// Category is a per-user spending category. Expenses reference it by name only.
type Category struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	// BudgetLimit is nil when the category has no limit.
	BudgetLimit *decimal.Decimal `json:"budget_limit"`
}

func (c *Category) Validate() error {
	if c.UserID <= 0 {
		return invalid("user_id", "required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", "required")
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return invalid("color", "must be a hex colour like #4361ee")
	}
	return ValidateBudgetLimit(c.BudgetLimit)
}

// ValidateBudgetLimit accepts nil (no limit) or an amount between zero and MaxAmount.
func ValidateBudgetLimit(limit *decimal.Decimal) error {
	if limit == nil {
		return nil
	}
	if limit.IsNegative() {
		return invalid("budget_limit", "must not be negative")
	}
	if limit.GreaterThan(MaxAmount) {
		return invalid("budget_limit", "must be at most "+MaxAmount.StringFixed(2))
	}
	return nil
}

// ValidColor reports whether s is an accepted hex colour.
func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}

// CategoryTotal is the sum of expenses under one category label.
type CategoryTotal struct {
	Name     string          `json:"name"`
	Color    string          `json:"color"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Orphaned bool            `json:"orphaned,omitempty"`
}

// User represents a user account.
type User struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email,omitempty"`
	PasswordHash       string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	IsPremium          bool      `json:"is_premium"`
	SubscriptionStatus string    `json:"subscription_status"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
