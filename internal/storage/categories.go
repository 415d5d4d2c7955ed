package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateCategory is returned when the user already has a category
// with the same name and type.
var ErrDuplicateCategory = errors.New("category already exists")

// CategoryUpdateFunc computes the new category from the stored one and its
// usage count.
type CategoryUpdateFunc func(current core.Category, usage int) (core.Category, error)

// CategoryDeleteFunc vetoes a delete by returning an error.
type CategoryDeleteFunc func(current core.Category, usage int) error

const categoryColumns = `id, user_id, name, type, color, icon`

func scanCategory(s scanner) (core.Category, error) {
	var c core.Category
	var typ string
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

// CreateCategory stores c and returns it with its generated ID.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, type, color, icon, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Color, c.Icon, formatTime(time.Now()))
	if isUniqueViolation(err) {
		return core.Category{}, ErrDuplicateCategory
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// ListCategories returns the user's categories, optionally filtered by type.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string, typ core.TransactionType) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ?`
	args := []any{userID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY type, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound(err, "category")
	}
	return c, nil
}

// UpdateCategory loads the category, lets apply compute the new values and
// writes them back in one transaction.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id string, apply CategoryUpdateFunc) (core.Category, error) {
	var updated core.Category

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, usage, err := lockCategory(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		updated, err = apply(current, usage)
		if err != nil {
			return err
		}
		updated.ID, updated.UserID = current.ID, current.UserID

		_, err = tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, type = ?, color = ?, icon = ? WHERE id = ?`,
			updated.Name, string(updated.Type), updated.Color, updated.Icon, id)
		if isUniqueViolation(err) {
			return ErrDuplicateCategory
		}
		if err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return updated, nil
}

// DeleteCategory removes the category unless allow vetoes it.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string, allow CategoryDeleteFunc) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		current, usage, err := lockCategory(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := allow(current, usage); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

// CountCategories returns how many categories the user has.
func (r *SQLiteRepository) CountCategories(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// lockCategory reads a category inside tx together with the number of
// transactions and recurring rules that reference it.
func lockCategory(ctx context.Context, tx *sql.Tx, userID, id string) (core.Category, int, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, 0, notFound(err, "category")
	}

	var usage int
	if err := tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
		      + (SELECT COUNT(*) FROM recurring_transactions WHERE category_id = ?)`,
		id, id).Scan(&usage); err != nil {
		return core.Category{}, 0, fmt.Errorf("count category usage: %w", err)
	}
	return c, usage, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
