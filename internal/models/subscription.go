package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is how often a recurring payment is charged.
type BillingCycle string

const (
	CycleWeekly  BillingCycle = "weekly"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// UpcomingDays is how far ahead a payment counts as upcoming.
const UpcomingDays = 7

// SubscriptionCategories are the labels offered for recurring payments.
var SubscriptionCategories = []string{"Streaming", "Software", "Gaming", "Memberships", "Other"}

// ParseBillingCycle accepts weekly, monthly or yearly; empty means monthly.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch c := BillingCycle(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CycleMonthly, nil
	case CycleWeekly, CycleMonthly, CycleYearly:
		return c, nil
	default:
		return "", invalid("billing_cycle", "must be weekly, monthly or yearly")
	}
}

// Days is the fixed length of one cycle. Months count as 30 days and years as 365.
func (c BillingCycle) Days() int {
	switch c {
	case CycleWeekly:
		return 7
	case CycleYearly:
		return 365
	default:
		return 30
	}
}

// NextPayment returns the first charge on or after today, stepping whole
// cycles from start. A start in the future is itself the next payment.
func (c BillingCycle) NextPayment(start, today Date) Date {
	if !start.Before(today.Time) {
		return start
	}
	elapsed := int(today.Sub(start.Time) / (24 * time.Hour))
	step := c.Days()
	cycles := (elapsed + step - 1) / step
	return start.AddDays(cycles * step)
}

var (
	four   = decimal.NewFromInt(4)
	twelve = decimal.NewFromInt(12)
)

// MonthlyCost converts one charge of amount to its monthly equivalent.
// A month holds four weekly charges.
func (c BillingCycle) MonthlyCost(amount decimal.Decimal) decimal.Decimal {
	switch c {
	case CycleWeekly:
		return amount.Mul(four)
	case CycleYearly:
		return amount.Div(twelve)
	default:
		return amount
	}
}

// Subscription is a recurring payment such as a streaming plan.
type Subscription struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	StartDate    Date            `json:"start_date"`
	BillingCycle BillingCycle    `json:"billing_cycle"`
	// NextPayment is derived on reads; it is not persisted.
	NextPayment Date      `json:"next_payment"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Subscription) Validate() error {
	if s.UserID <= 0 {
		return invalid("user_id", "required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name", "required")
	}
	if ToCents(s.Amount) <= 0 {
		return invalid("amount", "must be greater than zero")
	}
	if s.Amount.GreaterThan(MaxAmount) {
		return invalid("amount", "must be at most "+MaxAmount.StringFixed(2))
	}
	if strings.TrimSpace(s.Category) == "" {
		return invalid("category", "required")
	}
	if s.StartDate.IsZero() {
		return invalid("start_date", "required")
	}
	switch s.BillingCycle {
	case CycleWeekly, CycleMonthly, CycleYearly:
		return nil
	default:
		return invalid("billing_cycle", "must be weekly, monthly or yearly")
	}
}

// DefaultCurrency is the symbol used until a user picks another.
const DefaultCurrency = "$"

// Preferences are per-user display settings. A zero MonthlyBudget means no
// overall budget is set.
type Preferences struct {
	UserID        int64           `json:"-"`
	Currency      string          `json:"currency"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

// DefaultPreferences is what a user without stored preferences sees.
func DefaultPreferences(userID int64) Preferences {
	return Preferences{UserID: userID, Currency: DefaultCurrency, MonthlyBudget: decimal.Zero}
}

func (p *Preferences) Validate() error {
	if p.UserID <= 0 {
		return invalid("user_id", "required")
	}
	if c := strings.TrimSpace(p.Currency); c == "" || len(c) > 8 {
		return invalid("currency", "must be 1 to 8 characters")
	}
	if p.MonthlyBudget.IsNegative() {
		return invalid("monthly_budget", "must not be negative")
	}
	if p.MonthlyBudget.GreaterThan(MaxAmount) {
		return invalid("monthly_budget", "must be at most "+MaxAmount.StringFixed(2))
	}
	return nil
}
