package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

const transactionColumns = `id, user_id, type, amount_cents, description, date, category_id, notes, recurring_id, created_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t           core.Transaction
		typ, date   string
		createdAt   string
		recurringID sql.NullString
	)
	if err := s.Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &t.Description, &date,
		&t.CategoryID, &t.Notes, &recurringID, &createdAt); err != nil {
		return core.Transaction{}, err
	}

	t.Type = core.TransactionType(typ)
	t.RecurringID = recurringID.String

	var err error
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func insertTransaction(ctx context.Context, db execer, t *core.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	recurringID := sql.NullString{String: t.RecurringID, Valid: t.RecurringID != ""}
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Type), t.Amount.Cents, t.Description, t.Date.String(),
		t.CategoryID, t.Notes, recurringID, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateTransaction stores a single user-entered transaction.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := insertTransaction(ctx, r.db, &t); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// ListTransactions returns the user's transactions dated inside the given
// month, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	to := from.AddMonths(1)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND date >= ? AND date < ?
		 ORDER BY date DESC, created_at DESC`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactionsByRule returns the transactions materialized from a
// recurring rule in date order.
func (r *SQLiteRepository) ListTransactionsByRule(ctx context.Context, ruleID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE recurring_id = ? ORDER BY date`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("list rule transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction")
	}
	return t, nil
}

// UpdateTransaction overwrites the editable columns of t. The owner, the
// recurring link and the creation time never change.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET type = ?, amount_cents = ?, description = ?, date = ?, category_id = ?, notes = ?
		 WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Amount.Cents, t.Description, t.Date.String(), t.CategoryID, t.Notes,
		t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := affectedOrNotFound(res, "transaction"); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, t.UserID, t.ID)
}

// TransactionWithCategory is a transaction joined with the display fields
// of its category.
type TransactionWithCategory struct {
	core.Transaction
	CategoryName  string
	CategoryColor string
	CategoryIcon  string
}

// ListRecentTransactions returns the user's latest transactions by date,
// newest first.
func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]TransactionWithCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.type, t.amount_cents, t.description, t.date, t.category_id,
		   t.notes, t.recurring_id, t.created_at,
		   COALESCE(c.name, ''), COALESCE(c.color, ''), COALESCE(c.icon, '')
		 FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ?
		 ORDER BY t.date DESC, t.created_at DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionWithCategory
	for rows.Next() {
		var twc TransactionWithCategory
		t, err := scanTransaction(withTrailing(rows, &twc.CategoryName, &twc.CategoryColor, &twc.CategoryIcon))
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		twc.Transaction = t
		out = append(out, twc)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affectedOrNotFound(res, "transaction")
}

// ReadMonthOverview aggregates income, expense and per-category totals for
// one calendar month.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}
	from := core.NewDate(year, month, 1)
	to := from.AddMonths(1)

	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount_cents END), 0),
		   COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount_cents END), 0),
		   COUNT(*)
		 FROM transactions WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, from.String(), to.String()).Scan(&overview.Income.Cents, &overview.Expense.Cents, &overview.Count)
	if err != nil {
		return overview, fmt.Errorf("get month totals: %w", err)
	}

	overview.ByCategory, err = r.ReadCategoryTotals(ctx, userID, from, to, "", 0)
	return overview, err
}

// ReadCategoryTotals sums transactions dated in [from, to) per category,
// largest first. typ filters by transaction type when set and limit caps the
// result when positive.
func (r *SQLiteRepository) ReadCategoryTotals(ctx context.Context, userID string, from, to core.Date, typ core.TransactionType, limit int) ([]core.CategoryAmount, error) {
	query := `SELECT t.category_id, COALESCE(c.name, ''), t.type, COALESCE(c.color, ''), COALESCE(c.icon, ''),
		   SUM(t.amount_cents) AS total, COUNT(*)
		 FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.date >= ? AND t.date < ?`
	args := []any{userID, from.String(), to.String()}
	if typ != "" {
		query += ` AND t.type = ?`
		args = append(args, string(typ))
	}
	query += ` GROUP BY t.category_id, t.type ORDER BY total DESC, t.category_id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get category sums: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		var typ string
		if err := rows.Scan(&ca.CategoryID, &ca.Name, &typ, &ca.Color, &ca.Icon, &ca.Amount.Cents, &ca.Count); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		ca.Type = core.TransactionType(typ)
		out = append(out, ca)
	}
	return out, rows.Err()
}

// ReadMonthlyTotals returns income, expense and count per calendar month for
// transactions dated in [from, to). Months without transactions are absent.
func (r *SQLiteRepository) ReadMonthlyTotals(ctx context.Context, userID string, from, to core.Date) ([]core.MonthOverview, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(date, 1, 7) AS month,
		   COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount_cents END), 0),
		   COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount_cents END), 0),
		   COUNT(*)
		 FROM transactions WHERE user_id = ? AND date >= ? AND date < ?
		 GROUP BY month ORDER BY month`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("get monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthOverview
	for rows.Next() {
		var (
			o     core.MonthOverview
			month string
		)
		if err := rows.Scan(&month, &o.Income.Cents, &o.Expense.Cents, &o.Count); err != nil {
			return nil, fmt.Errorf("scan monthly totals: %w", err)
		}
		if _, err := fmt.Sscanf(month, "%d-%d", &o.Year, &o.Month); err != nil {
			return nil, fmt.Errorf("parse month %q: %w", month, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
