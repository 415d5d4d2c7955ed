package core

import (
	"fmt"
	"math"
)

// MaxAmount is the largest single amount accepted from users (10 billion
// units). Sums of a few of them stay far from int64 overflow.
const MaxAmount int64 = 1_000_000_000_000

// Money is an amount in the smallest currency unit. Arithmetic on money is
// integer-only.
type Money struct {
	Cents int64
}

// Validate accepts amounts in (0, MaxAmount].
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmount {
		return ErrAmountTooLarge
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// CheckedAdd returns m + o and false when the sum would overflow int64.
func (m Money) CheckedAdd(o Money) (Money, bool) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) ||
		(o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, false
	}
	return Money{Cents: m.Cents + o.Cents}, true
}

// String formats the amount with two decimals, e.g. 1234 -> "12.34".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
