package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"expense-ledger/internal/models"
)

const categorySelect = `SELECT id, user_id, name, color, budget_limit_cents FROM categories`

func scanCategory(row rowScanner) (models.Category, error) {
	var (
		c      models.Category
		budget sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &budget); err != nil {
		return models.Category{}, err
	}
	if budget.Valid {
		limit := models.FromCents(budget.Int64)
		c.BudgetLimit = &limit
	}
	return c, nil
}

func budgetCents(c *models.Category) sql.NullInt64 {
	if c.BudgetLimit == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: models.ToCents(*c.BudgetLimit), Valid: true}
}

// ListCategories returns the user's categories ordered by name.
func (db *DB) ListCategories(ctx context.Context, userID int64) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(categorySelect+` WHERE user_id = ? ORDER BY name`), userID)
	if err != nil {
		return nil, unavailable("list categories", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, unavailable("scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list categories", err)
	}
	return categories, nil
}

// GetCategory returns the user's category with the given name.
func (db *DB) GetCategory(ctx context.Context, userID int64, name string) (*models.Category, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(categorySelect+` WHERE user_id = ? AND name = ?`), userID, strings.TrimSpace(name))
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get category", err)
	}
	return &c, nil
}

// AddCategory creates a category. Names are unique per user.
func (db *DB) AddCategory(ctx context.Context, c *models.Category) (int64, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.Color == "" {
		c.Color = models.DefaultColor
	}

	var id int64
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		INSERT INTO categories (user_id, name, color, budget_limit_cents)
		VALUES (?, ?, ?, ?)
		RETURNING id`),
		c.UserID, c.Name, c.Color, budgetCents(c),
	).Scan(&id)
	if err != nil {
		return 0, unavailable("insert category", err)
	}
	c.ID = id
	return id, nil
}

// UpdateCategory replaces the color and budget limit of the user's category
// named c.Name. A nil BudgetLimit clears the limit.
func (db *DB) UpdateCategory(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Color == "" {
		c.Color = models.DefaultColor
	}

	res, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE categories SET color = ?, budget_limit_cents = ?
		WHERE user_id = ? AND name = ?`),
		c.Color, budgetCents(c), c.UserID, c.Name,
	)
	if err != nil {
		return unavailable("update category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update category", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaultCategories copies the default category set to the user, skipping
// names the user already has.
func (db *DB) SeedDefaultCategories(ctx context.Context, userID int64) error {
	return db.withTx(ctx, "seed categories", func(tx *sql.Tx) error {
		return db.seedDefaultCategories(ctx, tx, userID)
	})
}

func (db *DB) seedDefaultCategories(ctx context.Context, tx *sql.Tx, userID int64) error {
	// WHERE keeps sqlite from parsing ON CONFLICT as part of the SELECT.
	_, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO categories (user_id, name, color)
		SELECT CAST(? AS BIGINT), name, color FROM default_categories WHERE 1 = 1
		ON CONFLICT (user_id, name) DO NOTHING`), userID)
	if err != nil {
		return unavailable("seed categories", err)
	}
	return nil
}
