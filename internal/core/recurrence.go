package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Frequency is how often a recurring rule produces an occurrence. It is
// fixed when the rule is created.
type Frequency string

// ParseFrequency accepts any casing ("monthly", "MONTHLY").
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return f, nil
	}
	return "", &ConfigurationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s)}
}

// RecurringRule is a template that materializes a transaction on every
// occurrence between StartDate and EndDate.
//
// EndDate and LastProcessed use the zero Date for "absent". DayOfMonth and
// DayOfWeek are pointers because 0 (Sunday) is a valid anchor.
type RecurringRule struct {
	ID          string
	UserID      string
	Type        TransactionType
	Amount      Money
	Description string
	CategoryID  string
	Notes       string

	Frequency     Frequency
	StartDate     Date
	EndDate       Date
	DayOfMonth    *int // 1-31, MONTHLY only
	DayOfWeek     *int // 0-6, 0 = Sunday, WEEKLY only
	LastProcessed Date

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IntPtr is a small helper for building optional anchors.
func IntPtr(v int) *int { return &v }

// ActiveOn reports whether today falls inside the rule's window and the rule
// is enabled. This mirrors the batch selection query.
func (r RecurringRule) ActiveOn(today Date) bool {
	if !r.IsActive || r.StartDate.IsAfter(today) {
		return false
	}
	return r.EndDate.IsEmpty() || !r.EndDate.IsBefore(today)
}

// Validate checks a rule submitted by a user before it is stored.
func (r RecurringRule) Validate() error {
	if !r.Type.Valid() {
		return invalid("type", "type must be INCOME or EXPENSE", ErrInvalidType)
	}
	if err := r.Amount.Validate(); err != nil {
		return invalidAmount("amountCents", err)
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return invalid("categoryId", "category is required", ErrEmptyCategory)
	}
	if len(r.Notes) > maxNotesLen {
		return invalid("notes", "notes too long (max 1000 characters)", ErrDescriptionTooLong)
	}
	if err := r.StartDate.Validate(); err != nil {
		return invalid("startDate", "start date is required", ErrInvalidDate)
	}
	if !r.EndDate.IsEmpty() && !r.EndDate.IsAfter(r.StartDate) {
		return invalid("endDate", "end date must be after start date", ErrInvalidDate)
	}
	return r.ValidateSchedule()
}

// ValidateSchedule checks only the fields the scheduler depends on and
// returns a *ConfigurationError for the first problem found.
func (r RecurringRule) ValidateSchedule() error {
	switch r.Frequency {
	case Daily, Yearly:
	case Weekly:
		if r.DayOfWeek == nil {
			return &ConfigurationError{Field: "dayOfWeek", Reason: "required for weekly recurrence"}
		}
		if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
			return &ConfigurationError{Field: "dayOfWeek", Reason: "must be between 0 and 6"}
		}
	case Monthly:
		if r.DayOfMonth == nil {
			return &ConfigurationError{Field: "dayOfMonth", Reason: "required for monthly recurrence"}
		}
		if *r.DayOfMonth < 1 || *r.DayOfMonth > 31 {
			return &ConfigurationError{Field: "dayOfMonth", Reason: "must be between 1 and 31"}
		}
	default:
		return &ConfigurationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", r.Frequency)}
	}
	if !r.EndDate.IsEmpty() && r.EndDate.IsBefore(r.StartDate) {
		return &ConfigurationError{Field: "endDate", Reason: "end date before start date"}
	}
	return nil
}

// DescribeRecurrence returns a short human description such as
// "Weekly (every Monday)" or "Monthly (day 31)".
func DescribeRecurrence(r RecurringRule) string {
	switch r.Frequency {
	case Daily:
		return "Daily"
	case Weekly:
		if r.DayOfWeek != nil && *r.DayOfWeek >= 0 && *r.DayOfWeek <= 6 {
			return fmt.Sprintf("Weekly (every %s)", time.Weekday(*r.DayOfWeek))
		}
		return "Weekly"
	case Monthly:
		if r.DayOfMonth != nil {
			return fmt.Sprintf("Monthly (day %d)", *r.DayOfMonth)
		}
		return "Monthly"
	case Yearly:
		return "Yearly"
	}
	return "Recurring"
}
