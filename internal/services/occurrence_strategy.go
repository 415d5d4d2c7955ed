// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring occurrences.
// Each frequency (daily, weekly, monthly, yearly) has its own strategy that
// advances a base date by exactly one period.

package services

import (
	"fmt"
	"sync"

	"fintrack/internal/core"
)

// OccurrenceStrategy advances a base date by one period of a rule's
// frequency. Implementations must return a date strictly after base.
type OccurrenceStrategy interface {
	Advance(base core.Date, rule core.RecurringRule) (core.Date, error)
}

// DailyStrategy implements OccurrenceStrategy for daily rules.
type DailyStrategy struct{}

// Advance returns the next day.
func (DailyStrategy) Advance(base core.Date, _ core.RecurringRule) (core.Date, error) {
	return base.AddDays(1), nil
}

// WeeklyStrategy implements OccurrenceStrategy for weekly rules.
type WeeklyStrategy struct{}

// Advance moves one week forward and then onto the anchor weekday of that
// Sunday-started week.
func (WeeklyStrategy) Advance(base core.Date, rule core.RecurringRule) (core.Date, error) {
	if rule.DayOfWeek == nil {
		return core.Date{}, &core.ConfigurationError{Field: "dayOfWeek", Reason: "required for weekly recurrence"}
	}
	anchor := *rule.DayOfWeek
	if anchor < 0 || anchor > 6 {
		return core.Date{}, &core.ConfigurationError{Field: "dayOfWeek", Reason: fmt.Sprintf("must be between 0 and 6, got %d", anchor)}
	}

	next := base.AddDays(7)
	return next.AddDays(anchor - int(next.Weekday())), nil
}

// MonthlyStrategy implements OccurrenceStrategy for monthly rules.
type MonthlyStrategy struct{}

// Advance moves to the following calendar month on the anchor day, clamped
// to the month's last day when the anchor does not exist there.
func (MonthlyStrategy) Advance(base core.Date, rule core.RecurringRule) (core.Date, error) {
	if rule.DayOfMonth == nil {
		return core.Date{}, &core.ConfigurationError{Field: "dayOfMonth", Reason: "required for monthly recurrence"}
	}
	anchor := *rule.DayOfMonth
	if anchor < 1 || anchor > 31 {
		return core.Date{}, &core.ConfigurationError{Field: "dayOfMonth", Reason: fmt.Sprintf("must be between 1 and 31, got %d", anchor)}
	}

	return core.ClampDayOfMonth(base.Year(), int(base.Month())+1, anchor), nil
}

// YearlyStrategy implements OccurrenceStrategy for yearly rules.
type YearlyStrategy struct{}

// Advance returns the same month and day one year later.
func (YearlyStrategy) Advance(base core.Date, _ core.RecurringRule) (core.Date, error) {
	return base.AddYears(1), nil
}

var (
	strategiesMu sync.RWMutex
	// occurrenceStrategies maps frequencies to their strategies.
	occurrenceStrategies = map[core.Frequency]OccurrenceStrategy{
		core.Daily:   DailyStrategy{},
		core.Weekly:  WeeklyStrategy{},
		core.Monthly: MonthlyStrategy{},
		core.Yearly:  YearlyStrategy{},
	}
)

// GetOccurrenceStrategy returns the strategy for a frequency, or a
// *core.ConfigurationError if the frequency is not supported.
func GetOccurrenceStrategy(frequency core.Frequency) (OccurrenceStrategy, error) {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()

	strategy, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, &core.ConfigurationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", frequency)}
	}
	return strategy, nil
}

// RegisterOccurrenceStrategy registers a strategy for a new frequency.
func RegisterOccurrenceStrategy(frequency core.Frequency, strategy OccurrenceStrategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	occurrenceStrategies[frequency] = strategy
}
