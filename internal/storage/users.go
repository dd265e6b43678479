package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"expense-ledger/internal/models"
)

const userSelect = `SELECT id, username, email, password_hash, created_at, is_premium, subscription_status FROM users`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		email     sql.NullString
		createdAt int64
		premium   int
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &createdAt, &premium, &u.SubscriptionStatus); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.IsPremium = premium != 0
	return &u, nil
}

// CreateUser inserts a new user and gives them the default categories in the
// same transaction.
func (db *DB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &models.ValidationError{Field: "username", Reason: "required"}
	}

	var id int64
	err := db.withTx(ctx, "create user", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, db.rebind(`
			INSERT INTO users (username, email, password_hash, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`),
			username, nullString(email), passwordHash, time.Now().UTC().Unix(),
		).Scan(&id)
		if err != nil {
			return unavailable("insert user", err)
		}
		return db.seedDefaultCategories(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return db.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUser(ctx, "get user", userSelect+` WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.getUser(ctx, "get user", userSelect+` WHERE username = ?`, strings.TrimSpace(username))
}

func (db *DB) getUser(ctx context.Context, op, query string, arg any) (*models.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, db.rebind(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(op, err)
	}
	return u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, unavailable("count users", err)
	}
	return count, nil
}

// ActivateSubscription marks the user as premium with an active subscription.
func (db *DB) ActivateSubscription(ctx context.Context, userID int64, subscriptionID string) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE users SET is_premium = 1, subscription_id = ?, subscription_status = 'active'
		WHERE id = ?`), subscriptionID, userID)
	if err != nil {
		return unavailable("activate subscription", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("activate subscription", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
