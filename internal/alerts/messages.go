// Package alerts detects categories going over budget and fans the alerts out over AMQP.
package alerts

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/models"
)

// Level says how close spending is to the limit.
type Level string

const (
	LevelNearing  Level = "nearing"
	LevelExceeded Level = "exceeded"
)

// BudgetAlert is published when an expense pushes a category past a threshold.
type BudgetAlert struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	ExpenseID int64           `json:"expense_id"`
	Category  string          `json:"category"`
	Level     Level           `json:"level"`
	Spent     decimal.Decimal `json:"spent"`
	Limit     decimal.Decimal `json:"limit"`
	From      models.Date     `json:"from"`
	To        models.Date     `json:"to"`
	Timestamp time.Time       `json:"timestamp"`
}

// Message is the human-readable form of the alert.
func (a *BudgetAlert) Message() string {
	if a.Level == LevelExceeded {
		return "You have exceeded your " + a.Category + " budget!"
	}
	return "You are nearing your " + a.Category + " budget!"
}

// ToJSON converts the alert to JSON bytes
func (a *BudgetAlert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// BudgetAlertFromJSON decodes an alert published by ToJSON.
func BudgetAlertFromJSON(data []byte) (*BudgetAlert, error) {
	var a BudgetAlert
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
