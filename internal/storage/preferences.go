package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"expense-ledger/internal/models"
)

// GetPreferences returns the user's settings, or the defaults when none were saved.
func (db *DB) GetPreferences(ctx context.Context, userID int64) (models.Preferences, error) {
	p := models.Preferences{UserID: userID}
	var cents int64
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT currency, monthly_budget_cents FROM user_preferences WHERE user_id = ?`), userID,
	).Scan(&p.Currency, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return models.Preferences{}, unavailable("get preferences", err)
	}
	p.MonthlyBudget = models.FromCents(cents)
	return p, nil
}

// SavePreferences validates and stores the user's settings, replacing any
// previous ones.
func (db *DB) SavePreferences(ctx context.Context, p *models.Preferences) error {
	p.Currency = strings.TrimSpace(p.Currency)
	if err := p.Validate(); err != nil {
		return err
	}

	cents := models.ToCents(p.MonthlyBudget)
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO user_preferences (user_id, currency, monthly_budget_cents)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			currency = excluded.currency,
			monthly_budget_cents = excluded.monthly_budget_cents`),
		p.UserID, p.Currency, cents,
	)
	if err != nil {
		return unavailable("save preferences", err)
	}
	p.MonthlyBudget = models.FromCents(cents)
	return nil
}
