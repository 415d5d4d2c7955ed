package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	GoalSavings    GoalCategory = "SAVINGS"
	GoalEmergency  GoalCategory = "EMERGENCY"
	GoalInvestment GoalCategory = "INVESTMENT"
	GoalPurchase   GoalCategory = "PURCHASE"
	GoalDebt       GoalCategory = "DEBT"
	GoalVacation   GoalCategory = "VACATION"
	GoalEducation  GoalCategory = "EDUCATION"
	GoalOther      GoalCategory = "OTHER"
)

// MinGoalTarget is the smallest target a user may set (1.00).
const MinGoalTarget = 100

type (
	GoalCategory string

	// Goal is a savings target. CurrentAmount only grows through
	// ApplyContribution; IsCompleted flips once and never flips back here.
	Goal struct {
		ID            string
		UserID        string
		Name          string
		Description   string
		Category      GoalCategory
		TargetAmount  Money
		CurrentAmount Money
		Deadline      Date
		IsCompleted   bool
		CompletedAt   time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Contribution is an immutable history row for one deposit into a goal.
	Contribution struct {
		ID        string
		GoalID    string
		Amount    Money
		Note      string
		CreatedAt time.Time
	}
)

func (c GoalCategory) Valid() bool {
	switch c {
	case GoalSavings, GoalEmergency, GoalInvestment, GoalPurchase,
		GoalDebt, GoalVacation, GoalEducation, GoalOther:
		return true
	}
	return false
}

// Validate checks a goal submitted for creation. today is used to reject
// deadlines that are not in the future.
func (g Goal) Validate(today Date) error {
	if err := g.validateFields(); err != nil {
		return err
	}
	return validateDeadline(g.Deadline, today)
}

func validateDeadline(deadline, today Date) error {
	if !deadline.IsEmpty() && !deadline.IsAfter(today) {
		return invalid("deadline", "deadline must be a future date", ErrInvalidDate)
	}
	return nil
}

func (g Goal) validateFields() error {
	name := strings.TrimSpace(g.Name)
	if len(name) < 3 {
		return invalid("name", "name must have at least 3 characters", ErrEmptyDescription)
	}
	if len(name) > 100 {
		return invalid("name", "name too long (max 100 characters)", ErrDescriptionTooLong)
	}
	if len(g.Description) > 500 {
		return invalid("description", "description too long (max 500 characters)", ErrDescriptionTooLong)
	}
	if g.TargetAmount.Cents < MinGoalTarget {
		return invalid("targetAmount", "target must be at least 1.00", ErrInvalidAmount)
	}
	if g.TargetAmount.Cents > MaxAmount {
		return invalid("targetAmount", fmt.Sprintf("target must not exceed %s", Money{Cents: MaxAmount}), ErrAmountTooLarge)
	}
	if !g.Category.Valid() {
		return invalid("category", "invalid category", ErrEmptyCategory)
	}
	return nil
}

// GoalPatch carries the editable fields of a goal. Nil means unchanged.
// CurrentAmount is not editable; it only moves through contributions.
type GoalPatch struct {
	Name         *string
	Description  *string
	Category     *GoalCategory
	TargetAmount *Money
	Deadline     *Date // zero Date clears it
	IsCompleted  *bool
}

// ApplyGoalPatch returns the goal with patch applied and reports whether
// the edit completed it. A completed goal cannot be reopened and its target
// is frozen. An active goal completes when marked so or when its target is
// lowered to the amount already saved. A new deadline must be in the future.
func ApplyGoalPatch(goal Goal, patch GoalPatch, today Date) (Goal, bool, error) {
	if goal.IsCompleted {
		if patch.IsCompleted != nil && !*patch.IsCompleted {
			return goal, false, &InvalidStateError{Reason: "a completed goal cannot be reopened"}
		}
		if patch.TargetAmount != nil && patch.TargetAmount.Cents != goal.TargetAmount.Cents {
			return goal, false, &InvalidStateError{Reason: "cannot change the target of a completed goal"}
		}
	}

	updated := goal
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		updated.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.TargetAmount != nil {
		updated.TargetAmount = *patch.TargetAmount
	}
	if patch.Deadline != nil {
		updated.Deadline = *patch.Deadline
		if err := validateDeadline(updated.Deadline, today); err != nil {
			return goal, false, err
		}
	}
	if err := updated.validateFields(); err != nil {
		return goal, false, err
	}

	if goal.IsCompleted {
		return updated, false, nil
	}
	justCompleted := (patch.IsCompleted != nil && *patch.IsCompleted) ||
		updated.CurrentAmount.Cents >= updated.TargetAmount.Cents
	updated.IsCompleted = justCompleted
	return updated, justCompleted, nil
}

// Progress returns the goal's bounded progress percentage.
func (g Goal) Progress() int {
	return ProgressPercent(g.CurrentAmount.Cents, g.TargetAmount.Cents)
}

// Remaining returns how much is still missing to reach the target.
func (g Goal) Remaining() Money {
	return Money{Cents: Remaining(g.CurrentAmount.Cents, g.TargetAmount.Cents)}
}

// ProgressPercent returns round(current/target*100) clamped to [0, 100].
// A zero target reports 0. Rounding is half-up on integers.
func ProgressPercent(current, target int64) int {
	if target <= 0 || current <= 0 {
		return 0
	}
	if current >= target {
		return 100
	}
	if target <= math.MaxInt64/200 {
		return int((current*200 + target) / (2 * target))
	}
	return int(math.Floor(float64(current)/float64(target)*100 + 0.5))
}

// Remaining returns max(0, target-current).
func Remaining(current, target int64) int64 {
	if current >= target {
		return 0
	}
	return target - current
}

// ApplyContribution adds amount to the goal and reports whether this
// contribution is the one that completed it. The input goal is not modified.
// Persisting the result together with the contribution row is the caller's
// job and must happen atomically.
func ApplyContribution(goal Goal, amount Money) (Goal, bool, error) {
	if goal.IsCompleted {
		return goal, false, &InvalidStateError{Reason: "cannot contribute to a completed goal"}
	}
	if amount.Cents <= 0 {
		return goal, false, &InvalidStateError{Reason: "contribution amount must be positive"}
	}

	if amount.Cents > MaxAmount {
		return goal, false, &InvalidStateError{Reason: fmt.Sprintf("contribution must not exceed %s", Money{Cents: MaxAmount})}
	}
	current, ok := goal.CurrentAmount.CheckedAdd(amount)
	if !ok {
		return goal, false, &InvalidStateError{Reason: "contribution would overflow the goal balance"}
	}

	updated := goal
	updated.CurrentAmount = current
	justCompleted := updated.CurrentAmount.Cents >= goal.TargetAmount.Cents
	updated.IsCompleted = justCompleted
	return updated, justCompleted, nil
}

// Progress bands used for dashboard colouring.
const (
	BandCritical  = "critical"
	BandLow       = "low"
	BandOnTrack   = "on_track"
	BandExcellent = "excellent"
)

// ProgressBand buckets a percentage into a coarse status.
func ProgressBand(percent int) string {
	switch {
	case percent >= 75:
		return BandExcellent
	case percent >= 50:
		return BandOnTrack
	case percent >= 25:
		return BandLow
	default:
		return BandCritical
	}
}
