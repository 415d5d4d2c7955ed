package core

import (
	"errors"
	"math"
	"testing"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: MaxAmount}).Validate(); err != nil {
		t.Fatalf("expected ok at the ceiling, got %v", err)
	}
	if err := (Money{Cents: MaxAmount + 1}).Validate(); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestMoneyCheckedAdd(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int64
		want   int64
		wantOK bool
	}{
		{"small", 600, 400, 1000, true},
		{"up to max", math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{"overflow", 600, math.MaxInt64, 0, false},
		{"negative overflow", math.MinInt64, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Money{Cents: tt.a}.CheckedAdd(Money{Cents: tt.b})
			if ok != tt.wantOK || got.Cents != tt.want {
				t.Fatalf("CheckedAdd(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got.Cents, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 1234: "12.34", -250: "-2.50", 100000: "1000.00"}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Expense,
		Amount:      Money{Cents: 100},
		Description: "Coffee",
		Date:        NewDate(2025, 1, 1),
		CategoryID:  "cat-1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "X", Amount: Money{Cents: 1}, Description: "a", Date: NewDate(2025, 1, 1), CategoryID: "c"},
		{Type: Income, Amount: Money{Cents: 0}, Description: "a", Date: NewDate(2025, 1, 1), CategoryID: "c"},
		{Type: Income, Amount: Money{Cents: MaxAmount + 1}, Description: "a", Date: NewDate(2025, 1, 1), CategoryID: "c"},
		{Type: Income, Amount: Money{Cents: 1}, Description: "", Date: NewDate(2025, 1, 1), CategoryID: "c"},
		{Type: Income, Amount: Money{Cents: 1}, Description: "a", CategoryID: "c"},
		{Type: Income, Amount: Money{Cents: 1}, Description: "a", Date: NewDate(2025, 1, 1)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: "Food", Type: Expense, Color: "#1a2B3c"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Category{
		{Name: "", Type: Expense},
		{Name: "Food", Type: "OTHER"},
		{Name: "Food", Type: Expense, Color: "red"},
		{Name: "Food", Type: Expense, Color: "#12345G"},
	}
	for i, c := range bads {
		var verr *ValidationError
		if err := c.Validate(); !errors.As(err, &verr) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestApplyCategoryPatch(t *testing.T) {
	cat := Category{ID: "c1", Name: "Food", Type: Expense}
	income := Income
	name := " Groceries "

	updated, err := ApplyCategoryPatch(cat, CategoryPatch{Name: &name}, 3)
	if err != nil {
		t.Fatalf("rename error = %v", err)
	}
	if updated.Name != "Groceries" || updated.ID != "c1" {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := ApplyCategoryPatch(cat, CategoryPatch{Type: &income}, 0); err != nil {
		t.Errorf("unused category type change error = %v", err)
	}
	if _, err := ApplyCategoryPatch(cat, CategoryPatch{Type: &income}, 2); !errors.Is(err, ErrInvalidState) {
		t.Errorf("used category type change error = %v, want invalid state", err)
	}

	if err := CheckCategoryRemovable(cat, 0); err != nil {
		t.Errorf("CheckCategoryRemovable(unused) = %v", err)
	}
	if err := CheckCategoryRemovable(cat, 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("CheckCategoryRemovable(used) = %v, want invalid state", err)
	}
}
