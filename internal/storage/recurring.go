package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// ErrStaleRule is returned when a rule's last_processed moved between the
// read that computed its occurrences and the write that materializes them.
var ErrStaleRule = errors.New("recurring rule was processed concurrently")

const ruleColumns = `id, user_id, type, amount_cents, description, category_id, notes,
	frequency, start_date, end_date, day_of_month, day_of_week, last_processed,
	is_active, created_at, updated_at`

func scanRule(s scanner) (core.RecurringRule, error) {
	var (
		rule                  core.RecurringRule
		typ, freq, start      string
		end, lastProcessed    sql.NullString
		dayOfMonth, dayOfWeek sql.NullInt64
		active                int
		createdAt, updatedAt  string
	)
	if err := s.Scan(&rule.ID, &rule.UserID, &typ, &rule.Amount.Cents, &rule.Description,
		&rule.CategoryID, &rule.Notes, &freq, &start, &end, &dayOfMonth, &dayOfWeek,
		&lastProcessed, &active, &createdAt, &updatedAt); err != nil {
		return core.RecurringRule{}, err
	}

	rule.Type = core.TransactionType(typ)
	// Stored as-is; an unknown frequency surfaces as a ConfigurationError
	// when the scheduler looks at the rule.
	rule.Frequency = core.Frequency(freq)
	rule.DayOfMonth = scanNullInt(dayOfMonth)
	rule.DayOfWeek = scanNullInt(dayOfWeek)
	rule.IsActive = active != 0

	var err error
	if rule.StartDate, err = core.ParseDate(start); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.EndDate, err = scanNullDate(end); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.LastProcessed, err = scanNullDate(lastProcessed); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

func scanRules(rows *sql.Rows) ([]core.RecurringRule, error) {
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt, rule.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (`+ruleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, string(rule.Type), rule.Amount.Cents, rule.Description,
		rule.CategoryID, rule.Notes, string(rule.Frequency), rule.StartDate.String(),
		nullDate(rule.EndDate), nullInt(rule.DayOfMonth), nullInt(rule.DayOfWeek),
		nullDate(rule.LastProcessed), boolInt(rule.IsActive),
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt))
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("insert recurring rule: %w", err)
	}
	return rule, nil
}

func (r *SQLiteRepository) GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID)
	rule, err := scanRule(row)
	if err != nil {
		return core.RecurringRule{}, notFound(err, "recurring rule")
	}
	return rule, nil
}

func (r *SQLiteRepository) ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_transactions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	return scanRules(rows)
}

// ListDueRules returns active rules whose window contains today, across all
// users. This is the batch selection used by the processor.
func (r *SQLiteRepository) ListDueRules(ctx context.Context, today core.Date) ([]core.RecurringRule, error) {
	day := today.String()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_transactions
		 WHERE is_active = 1 AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY created_at`, day, day)
	if err != nil {
		return nil, fmt.Errorf("list due recurring rules: %w", err)
	}
	return scanRules(rows)
}

// UpdateRule rewrites the user-editable fields of a rule. last_processed is
// owned by MaterializeOccurrences and is left untouched.
func (r *SQLiteRepository) UpdateRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	rule.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET
		   type = ?, amount_cents = ?, description = ?, category_id = ?, notes = ?,
		   frequency = ?, start_date = ?, end_date = ?, day_of_month = ?, day_of_week = ?,
		   is_active = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(rule.Type), rule.Amount.Cents, rule.Description, rule.CategoryID, rule.Notes,
		string(rule.Frequency), rule.StartDate.String(), nullDate(rule.EndDate),
		nullInt(rule.DayOfMonth), nullInt(rule.DayOfWeek), boolInt(rule.IsActive),
		formatTime(rule.UpdatedAt), rule.ID, rule.UserID)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("update recurring rule: %w", err)
	}
	if err := affectedOrNotFound(res, "recurring rule"); err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	return affectedOrNotFound(res, "recurring rule")
}

// MaterializeOccurrences inserts one transaction per date and advances the
// rule's last_processed to the final date, all in one transaction. The
// update is guarded on the last_processed value the dates were computed
// from; if it moved, nothing is written and ErrStaleRule is returned.
func (r *SQLiteRepository) MaterializeOccurrences(ctx context.Context, rule core.RecurringRule, dates []core.Date) ([]core.Transaction, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	created := make([]core.Transaction, 0, len(dates))
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, d := range dates {
			t := core.Transaction{
				UserID:      rule.UserID,
				Type:        rule.Type,
				Amount:      rule.Amount,
				Description: rule.Description,
				Date:        d,
				CategoryID:  rule.CategoryID,
				Notes:       rule.Notes,
				RecurringID: rule.ID,
				CreatedAt:   now,
			}
			if err := insertTransaction(ctx, tx, &t); err != nil {
				return err
			}
			created = append(created, t)
		}

		last := dates[len(dates)-1]
		res, err := tx.ExecContext(ctx,
			`UPDATE recurring_transactions SET last_processed = ?, updated_at = ?
			 WHERE id = ? AND last_processed IS ?`,
			last.String(), formatTime(now), rule.ID, nullDate(rule.LastProcessed))
		if err != nil {
			return fmt.Errorf("advance last_processed: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("rule %s: %w", rule.ID, ErrStaleRule)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
