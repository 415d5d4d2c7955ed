package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	maxDescriptionLen = 255
	maxNotesLen       = 1000
)

type (
	TransactionType string

	Transaction struct {
		ID          string
		UserID      string
		Type        TransactionType
		Amount      Money
		Description string
		Date        Date
		CategoryID  string
		Notes       string
		RecurringID string // set when materialized from a recurring rule
		CreatedAt   time.Time
	}

	Category struct {
		ID     string
		UserID string
		Name   string
		Type   TransactionType
		Color  string
		Icon   string
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func validateDescription(desc string) error {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return invalid("description", "description is required", ErrEmptyDescription)
	}
	if len(desc) > maxDescriptionLen {
		return invalid("description", "description too long (max 255 characters)", ErrDescriptionTooLong)
	}
	return nil
}

// invalidAmount turns a Money.Validate error into a field error.
func invalidAmount(field string, err error) error {
	if errors.Is(err, ErrAmountTooLarge) {
		return invalid(field, fmt.Sprintf("amount must not exceed %s", Money{Cents: MaxAmount}), err)
	}
	return invalid(field, "amount must be a positive integer", err)
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return invalid("type", "type must be INCOME or EXPENSE", ErrInvalidType)
	}
	if err := t.Amount.Validate(); err != nil {
		return invalidAmount("amountCents", err)
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", "date is required", ErrInvalidDate)
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return invalid("categoryId", "category is required", ErrEmptyCategory)
	}
	if len(t.Notes) > maxNotesLen {
		return invalid("notes", "notes too long (max 1000 characters)", ErrDescriptionTooLong)
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return invalid("name", "name is required", ErrEmptyCategory)
	}
	if len(name) > 50 {
		return invalid("name", "name too long (max 50 characters)", ErrDescriptionTooLong)
	}
	if !c.Type.Valid() {
		return invalid("type", "type must be INCOME or EXPENSE", ErrInvalidType)
	}
	if c.Color != "" && !validHexColor(c.Color) {
		return invalid("color", "color must be a hex value like #1A2B3C", ErrInvalidColor)
	}
	if len(c.Icon) > 50 {
		return invalid("icon", "icon too long (max 50 characters)", ErrDescriptionTooLong)
	}
	return nil
}

// validHexColor accepts #RRGGBB.
func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// CategoryPatch carries the editable fields of a category. Nil means
// unchanged.
type CategoryPatch struct {
	Name  *string
	Type  *TransactionType
	Color *string
	Icon  *string
}

// ApplyCategoryPatch returns c with patch applied. usage is the number of
// transactions and recurring rules filed under the category; while it is
// non-zero the type is fixed, since it must keep matching theirs.
func ApplyCategoryPatch(c Category, patch CategoryPatch, usage int) (Category, error) {
	updated := c
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Type != nil {
		updated.Type = *patch.Type
	}
	if patch.Color != nil {
		updated.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.Icon != nil {
		updated.Icon = strings.TrimSpace(*patch.Icon)
	}
	if err := updated.Validate(); err != nil {
		return c, err
	}
	if updated.Type != c.Type && usage > 0 {
		return c, &InvalidStateError{Reason: fmt.Sprintf("cannot change the type of a category used by %d transactions or recurring rules", usage)}
	}
	return updated, nil
}

// CheckCategoryRemovable refuses to delete a category that is still in use.
func CheckCategoryRemovable(c Category, usage int) error {
	if usage > 0 {
		return &InvalidStateError{Reason: fmt.Sprintf("category %q is used by %d transactions or recurring rules", c.Name, usage)}
	}
	return nil
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Type       TransactionType
	Color      string
	Icon       string
	Amount     Money
	Count      int
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expense    Money
	Count      int
	ByCategory []CategoryAmount
}

// Balance returns income minus expense.
func (o MonthOverview) Balance() Money {
	return Money{Cents: o.Income.Cents - o.Expense.Cents}
}

// Notification is an in-app message produced from a domain event.
type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}
