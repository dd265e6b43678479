package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"expense-ledger/internal/models"
)

const subscriptionSelect = `
	SELECT id, user_id, name, amount_cents, category, start_date, billing_cycle, created_at
	FROM subscriptions`

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var (
		s         models.Subscription
		cents     int64
		cycle     string
		createdAt int64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &cents, &s.Category, &s.StartDate, &cycle, &createdAt); err != nil {
		return models.Subscription{}, err
	}
	s.Amount = models.FromCents(cents)
	s.BillingCycle = models.BillingCycle(cycle)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return s, nil
}

// AddSubscription validates and inserts a recurring payment, filling in its ID
// and CreatedAt.
func (db *DB) AddSubscription(ctx context.Context, s *models.Subscription) (int64, error) {
	s.Name = strings.TrimSpace(s.Name)
	s.Category = strings.TrimSpace(s.Category)
	if err := s.Validate(); err != nil {
		return 0, err
	}

	cents := models.ToCents(s.Amount)
	createdAt := time.Now().UTC().Truncate(time.Second)

	var id int64
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		INSERT INTO subscriptions (user_id, name, amount_cents, category, start_date, billing_cycle, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		s.UserID, s.Name, cents, s.Category, s.StartDate.String(), string(s.BillingCycle), createdAt.Unix(),
	).Scan(&id)
	if err != nil {
		return 0, unavailable("insert subscription", err)
	}

	s.ID = id
	s.Amount = models.FromCents(cents)
	s.CreatedAt = createdAt
	return id, nil
}

// ListSubscriptions returns the user's recurring payments ordered by name. A
// non-empty category narrows the list to that label.
func (db *DB) ListSubscriptions(ctx context.Context, userID int64, category string) ([]models.Subscription, error) {
	query := subscriptionSelect + ` WHERE user_id = ?`
	args := []any{userID}
	if category = strings.TrimSpace(category); category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	rows, err := db.conn.QueryContext(ctx, db.rebind(query+` ORDER BY name, id`), args...)
	if err != nil {
		return nil, unavailable("list subscriptions", err)
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, unavailable("scan subscription", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list subscriptions", err)
	}
	return subs, nil
}

// GetSubscription returns one recurring payment owned by userID.
func (db *DB) GetSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(subscriptionSelect+` WHERE id = ? AND user_id = ?`), id, userID)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get subscription", err)
	}
	return &s, nil
}

// DeleteSubscription removes a recurring payment if userID owns it and reports
// whether a row was removed.
func (db *DB) DeleteSubscription(ctx context.Context, userID, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM subscriptions WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return false, unavailable("delete subscription", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete subscription", err)
	}
	return n > 0, nil
}
