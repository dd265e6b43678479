package storage

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expense-ledger/internal/models"
)

const expenseSelect = `
	SELECT e.id, e.user_id, e.amount_cents, e.category, e.description, e.date, e.created_at, c.color
	FROM expenses e
	LEFT JOIN categories c ON c.user_id = e.user_id AND c.name = e.category`

// ExpenseFilter narrows an expense query. Zero fields do not filter.
type ExpenseFilter struct {
	Range    models.DateRange
	Category string
	// Limit caps the number of rows; 0 means unlimited.
	Limit int
}

func (f ExpenseFilter) where(userID int64) (string, []any) {
	clauses := []string{"e.user_id = ?"}
	args := []any{userID}
	if !f.Range.From.IsZero() {
		clauses = append(clauses, "e.date >= ?")
		args = append(args, f.Range.From.String())
	}
	if !f.Range.To.IsZero() {
		clauses = append(clauses, "e.date <= ?")
		args = append(args, f.Range.To.String())
	}
	if f.Category != "" {
		clauses = append(clauses, "e.category = ?")
		args = append(args, f.Category)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (models.Expense, error) {
	var (
		e           models.Expense
		cents       int64
		description sql.NullString
		createdAt   int64
		color       sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &cents, &e.Category, &description, &e.Date, &createdAt, &color); err != nil {
		return models.Expense{}, err
	}
	e.Amount = models.FromCents(cents)
	e.Description = description.String
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	e.Color = models.FallbackColor
	if color.Valid {
		e.Color = color.String
	}
	return e, nil
}

// AddExpense validates and inserts an expense, filling in its ID, CreatedAt and
// Color. The colour is read in the same transaction as the insert.
func (db *DB) AddExpense(ctx context.Context, e *models.Expense) (int64, error) {
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return 0, err
	}

	cents := models.ToCents(e.Amount)
	createdAt := time.Now().UTC().Truncate(time.Second)

	var (
		id    int64
		color string
	)
	err := db.withTx(ctx, "insert expense", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, db.rebind(`
			INSERT INTO expenses (user_id, amount_cents, category, description, date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`),
			e.UserID, cents, e.Category, nullString(e.Description), e.Date.String(), createdAt.Unix(),
		).Scan(&id)
		if err != nil {
			return unavailable("insert expense", err)
		}
		color, err = db.categoryColor(ctx, tx, e.UserID, e.Category)
		return err
	})
	if err != nil {
		return 0, err
	}

	e.ID = id
	e.Amount = models.FromCents(cents)
	e.Description = strings.TrimSpace(e.Description)
	e.CreatedAt = createdAt
	e.Color = color
	return id, nil
}

// categoryColor returns the colour of the user's category called name, or the
// fallback colour when there is none.
func (db *DB) categoryColor(ctx context.Context, tx *sql.Tx, userID int64, name string) (string, error) {
	var color string
	err := tx.QueryRowContext(ctx, db.rebind(`SELECT color FROM categories WHERE user_id = ? AND name = ?`), userID, name).Scan(&color)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.FallbackColor, nil
	case err != nil:
		return "", unavailable("category color", err)
	}
	return color, nil
}

// GetExpense returns one expense owned by userID.
func (db *DB) GetExpense(ctx context.Context, userID, id int64) (*models.Expense, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(expenseSelect+` WHERE e.id = ? AND e.user_id = ?`), id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get expense", err)
	}
	return &e, nil
}

// UpdateExpense replaces the mutable fields of an expense owned by e.UserID.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) error {
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return err
	}

	cents := models.ToCents(e.Amount)
	res, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE expenses SET amount_cents = ?, category = ?, description = ?, date = ?
		WHERE id = ? AND user_id = ?`),
		cents, e.Category, nullString(e.Description), e.Date.String(), e.ID, e.UserID,
	)
	if err != nil {
		return unavailable("update expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update expense", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	e.Amount = models.FromCents(cents)
	return nil
}

// DeleteExpense removes an expense if userID owns it. It reports whether a row
// was removed; deleting a missing or foreign expense is not an error.
func (db *DB) DeleteExpense(ctx context.Context, userID, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM expenses WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return false, unavailable("delete expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete expense", err)
	}
	return n > 0, nil
}

// Expenses returns a lazy sequence of the user's expenses, newest date first.
// Each range over the sequence runs a fresh query, so it can be iterated more
// than once. Stopping early releases the connection.
//
// The connection is held while the caller iterates; callers must not issue
// other store calls from inside the loop.
func (db *DB) Expenses(ctx context.Context, userID int64, f ExpenseFilter) iter.Seq2[models.Expense, error] {
	return func(yield func(models.Expense, error) bool) {
		where, args := f.where(userID)
		query := expenseSelect + where + ` ORDER BY e.date DESC, e.id DESC`
		if f.Limit > 0 {
			query += ` LIMIT ?`
			args = append(args, f.Limit)
		}

		rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
		if err != nil {
			yield(models.Expense{}, unavailable("list expenses", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanExpense(rows)
			if err != nil {
				yield(models.Expense{}, unavailable("scan expense", err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Expense{}, unavailable("list expenses", err))
		}
	}
}

// ListExpenses collects Expenses into a slice. The result is never nil.
func (db *DB) ListExpenses(ctx context.Context, userID int64, f ExpenseFilter) ([]models.Expense, error) {
	expenses := []models.Expense{}
	for e, err := range db.Expenses(ctx, userID, f) {
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// SumExpenses returns the total of the user's expenses matching f, ignoring f.Limit.
func (db *DB) SumExpenses(ctx context.Context, userID int64, f ExpenseFilter) (decimal.Decimal, error) {
	where, args := f.where(userID)
	var cents int64
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT CAST(COALESCE(SUM(e.amount_cents), 0) AS BIGINT) FROM expenses e`+where), args...).Scan(&cents)
	if err != nil {
		return decimal.Zero, unavailable("sum expenses", err)
	}
	return models.FromCents(cents), nil
}

// SumWindows totals the user's expenses over each of windows in one statement,
// so every total comes from the same snapshot. Zero bounds are open.
func (db *DB) SumWindows(ctx context.Context, userID int64, windows ...models.DateRange) ([]decimal.Decimal, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	columns := make([]string, 0, len(windows))
	args := make([]any, 0, 2*len(windows)+1)
	for _, w := range windows {
		var conds []string
		if !w.From.IsZero() {
			conds = append(conds, "e.date >= ?")
			args = append(args, w.From.String())
		}
		if !w.To.IsZero() {
			conds = append(conds, "e.date <= ?")
			args = append(args, w.To.String())
		}
		if len(conds) == 0 {
			columns = append(columns, "CAST(COALESCE(SUM(e.amount_cents), 0) AS BIGINT)")
			continue
		}
		columns = append(columns, "CAST(COALESCE(SUM(CASE WHEN "+strings.Join(conds, " AND ")+
			" THEN e.amount_cents ELSE 0 END), 0) AS BIGINT)")
	}
	args = append(args, userID)

	cents := make([]int64, len(windows))
	dest := make([]any, len(windows))
	for i := range cents {
		dest[i] = &cents[i]
	}
	err := db.conn.QueryRowContext(ctx, db.rebind(
		"SELECT "+strings.Join(columns, ", ")+" FROM expenses e WHERE e.user_id = ?"), args...).Scan(dest...)
	if err != nil {
		return nil, unavailable("sum windows", err)
	}

	sums := make([]decimal.Decimal, len(windows))
	for i, c := range cents {
		sums[i] = models.FromCents(c)
	}
	return sums, nil
}

// CategorySums groups the user's expenses in r by category label, largest total
// first. Labels without a matching category row come back with the fallback
// color and Orphaned set.
func (db *DB) CategorySums(ctx context.Context, userID int64, r models.DateRange) ([]models.CategoryTotal, error) {
	where, args := ExpenseFilter{Range: r}.where(userID)
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT e.category, MAX(c.color), CAST(SUM(e.amount_cents) AS BIGINT) AS total_cents, COUNT(*)
		FROM expenses e
		LEFT JOIN categories c ON c.user_id = e.user_id AND c.name = e.category`+where+`
		GROUP BY e.category
		ORDER BY total_cents DESC, e.category ASC`), args...)
	if err != nil {
		return nil, unavailable("sum categories", err)
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var (
			ct    models.CategoryTotal
			color sql.NullString
			cents int64
		)
		if err := rows.Scan(&ct.Name, &color, &cents, &ct.Count); err != nil {
			return nil, unavailable("scan category sum", err)
		}
		ct.Total = models.FromCents(cents)
		ct.Color = color.String
		if !color.Valid {
			ct.Color = models.FallbackColor
			ct.Orphaned = true
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("sum categories", err)
	}
	return totals, nil
}
