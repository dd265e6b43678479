package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"expense-ledger/internal/models"
)

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// CreateSession stores a new session token for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)`),
		token, userID, expiresAt.UnixNano(), time.Now().UnixNano(),
	)
	if err != nil {
		return unavailable("create session", err)
	}
	return nil
}

// ValidateSession checks if a session token is valid and returns the associated user.
func (db *DB) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
// Unknown and expired tokens both yield ErrNotFound.
func (db *DB) ValidateSessionWithInfo(ctx context.Context, token string) (*SessionInfo, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at, u.is_premium, u.subscription_status,
			s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?`), token, time.Now().UnixNano())

	var (
		u                       models.User
		email                   sql.NullString
		createdAt               int64
		premium                 int
		lastActivity, expiresAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &createdAt, &premium, &u.SubscriptionStatus,
		&lastActivity, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("validate session", err)
	}
	u.Email = email.String
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.IsPremium = premium != 0

	return &SessionInfo{
		User:         &u,
		LastActivity: time.Unix(0, lastActivity),
		ExpiresAt:    time.Unix(0, expiresAt),
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?`),
		time.Now().UnixNano(), newExpiresAt.UnixNano(), token,
	)
	if err != nil {
		return unavailable("renew session", err)
	}
	return nil
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM sessions WHERE token = ?`), token); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

// CleanExpiredSessions removes all expired sessions and reports how many were dropped.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM sessions WHERE expires_at <= ?`), time.Now().UnixNano())
	if err != nil {
		return 0, unavailable("clean sessions", err)
	}
	return res.RowsAffected()
}
