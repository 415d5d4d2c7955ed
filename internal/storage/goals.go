package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// GoalFilter narrows ListGoals. Zero values mean active goals ordered by
// creation date, newest first.
type GoalFilter struct {
	Status   string // active, completed, all
	Category core.GoalCategory
	OrderBy  string // createdAt, deadline, targetAmount, progress
	Asc      bool
}

var goalOrderColumns = map[string]string{
	"":             "created_at",
	"createdAt":    "created_at",
	"deadline":     "deadline",
	"targetAmount": "target_amount",
	"progress":     "CAST(current_amount AS REAL) / target_amount",
}

// ContributionFunc computes the goal state after a contribution.
// core.ApplyContribution has this shape.
type ContributionFunc func(goal core.Goal, amount core.Money) (core.Goal, bool, error)

const goalColumns = `id, user_id, name, description, category, target_amount, current_amount,
	deadline, is_completed, completed_at, created_at, updated_at`

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g                     core.Goal
		category              string
		deadline, completedAt sql.NullString
		completed             int
		createdAt, updatedAt  string
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &category,
		&g.TargetAmount.Cents, &g.CurrentAmount.Cents, &deadline, &completed,
		&completedAt, &createdAt, &updatedAt); err != nil {
		return core.Goal{}, err
	}

	g.Category = core.GoalCategory(category)
	g.IsCompleted = completed != 0

	var err error
	if g.Deadline, err = scanNullDate(deadline); err != nil {
		return core.Goal{}, err
	}
	if g.CompletedAt, err = scanNullTime(completedAt); err != nil {
		return core.Goal{}, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Goal{}, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Description, string(g.Category), g.TargetAmount.Cents,
		g.CurrentAmount.Cents, nullDate(g.Deadline), boolInt(g.IsCompleted),
		nullTime(g.CompletedAt), formatTime(g.CreatedAt), formatTime(g.UpdatedAt))
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, notFound(err, "goal")
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string, f GoalFilter) ([]core.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ?`
	args := []any{userID}

	switch f.Status {
	case "", "active":
		query += ` AND is_completed = 0`
	case "completed":
		query += ` AND is_completed = 1`
	case "all":
	default:
		return nil, fmt.Errorf("unknown goal status %q", f.Status)
	}

	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(f.Category))
	}

	col, ok := goalOrderColumns[f.OrderBy]
	if !ok {
		return nil, fmt.Errorf("unknown goal ordering %q", f.OrderBy)
	}
	dir := "DESC"
	if f.Asc {
		dir = "ASC"
	}
	query += fmt.Sprintf(` ORDER BY %s %s, id`, col, dir)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return affectedOrNotFound(res, "goal")
}

// ContributeToGoal reads the goal, lets apply compute the new state, then
// writes the goal and the contribution row. Everything happens inside one
// immediate transaction so concurrent contributions serialize and either
// both rows land or neither does.
func (r *SQLiteRepository) ContributeToGoal(ctx context.Context, userID, goalID string, c core.Contribution, apply ContributionFunc) (core.Goal, core.Contribution, bool, error) {
	var (
		updated       core.Goal
		justCompleted bool
	)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, goalID, userID)
		goal, err := scanGoal(row)
		if err != nil {
			return notFound(err, "goal")
		}

		updated, justCompleted, err = apply(goal, c.Amount)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updated.UpdatedAt = now
		if justCompleted {
			updated.CompletedAt = now
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET current_amount = ?, is_completed = ?, completed_at = ?, updated_at = ?
			 WHERE id = ?`,
			updated.CurrentAmount.Cents, boolInt(updated.IsCompleted),
			nullTime(updated.CompletedAt), formatTime(now), goalID); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}

		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.GoalID = goalID
		c.CreatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contributions (id, goal_id, amount, note, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.GoalID, c.Amount.Cents, c.Note, formatTime(c.CreatedAt)); err != nil {
			return fmt.Errorf("insert contribution: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Goal{}, core.Contribution{}, false, err
	}
	return updated, c, justCompleted, nil
}

// GoalUpdateFunc computes the edited goal and reports whether the edit
// completed it.
type GoalUpdateFunc func(goal core.Goal) (core.Goal, bool, error)

// UpdateGoal reads the goal, applies the edit and writes it back in one
// transaction. current_amount is never written here, so an edit cannot race
// a contribution into losing money.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, userID, id string, apply GoalUpdateFunc) (core.Goal, bool, error) {
	var (
		updated       core.Goal
		justCompleted bool
	)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID)
		goal, err := scanGoal(row)
		if err != nil {
			return notFound(err, "goal")
		}

		updated, justCompleted, err = apply(goal)
		if err != nil {
			return err
		}
		updated.CurrentAmount = goal.CurrentAmount

		now := time.Now().UTC()
		updated.UpdatedAt = now
		if justCompleted {
			updated.CompletedAt = now
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET name = ?, description = ?, category = ?, target_amount = ?, deadline = ?,
			   is_completed = ?, completed_at = ?, updated_at = ?
			 WHERE id = ?`,
			updated.Name, updated.Description, string(updated.Category), updated.TargetAmount.Cents,
			nullDate(updated.Deadline), boolInt(updated.IsCompleted), nullTime(updated.CompletedAt),
			formatTime(now), id); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Goal{}, false, err
	}
	return updated, justCompleted, nil
}

// ListContributions returns up to limit contributions for a goal the user
// owns, newest first.
func (r *SQLiteRepository) ListContributions(ctx context.Context, userID, goalID string, limit int) ([]core.Contribution, error) {
	if _, err := r.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, goal_id, amount, note, created_at FROM contributions
		 WHERE goal_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, goalID, limit)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []core.Contribution
	for rows.Next() {
		var c core.Contribution
		var createdAt string
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount.Cents, &c.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GoalStats counts the user's goals for the dashboard.
type GoalStats struct {
	Total              int
	Active             int
	CompletedThisMonth int
}

func (r *SQLiteRepository) ReadGoalStats(ctx context.Context, userID string, year, month int) (GoalStats, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var s GoalStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*),
		   COALESCE(SUM(CASE WHEN is_completed = 0 THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN is_completed = 1 AND completed_at >= ? AND completed_at < ? THEN 1 ELSE 0 END), 0)
		 FROM goals WHERE user_id = ?`,
		formatTime(from), formatTime(to), userID).Scan(&s.Total, &s.Active, &s.CompletedThisMonth)
	if err != nil {
		return GoalStats{}, fmt.Errorf("read goal stats: %w", err)
	}
	return s, nil
}
