package services

import (
	"fintrack/internal/core"
)

// DefaultMaxBacklog caps how many occurrences a single PendingOccurrences
// call produces. Callers with a larger backlog persist the first batch and
// call again.
const DefaultMaxBacklog = 365

// Scheduler computes due occurrences of recurring rules. It holds no state
// besides its configuration and is safe for concurrent use.
type Scheduler struct {
	maxBacklog int
}

// NewScheduler creates a scheduler. A non-positive maxBacklog falls back to
// DefaultMaxBacklog.
func NewScheduler(maxBacklog int) *Scheduler {
	if maxBacklog <= 0 {
		maxBacklog = DefaultMaxBacklog
	}
	return &Scheduler{maxBacklog: maxBacklog}
}

// MaxBacklog returns the per-call iteration ceiling.
func (s *Scheduler) MaxBacklog() int {
	return s.maxBacklog
}

var defaultScheduler = NewScheduler(DefaultMaxBacklog)

// NextOccurrence is Scheduler.NextOccurrence on the default scheduler.
func NextOccurrence(rule core.RecurringRule, today core.Date) (core.Date, bool, error) {
	return defaultScheduler.NextOccurrence(rule, today)
}

// PendingOccurrences is Scheduler.PendingOccurrences on the default scheduler.
func PendingOccurrences(rule core.RecurringRule, today core.Date) ([]core.Date, error) {
	return defaultScheduler.PendingOccurrences(rule, today)
}

// NextOccurrence returns the occurrence following the rule's last processed
// date (or its start date when nothing was processed yet). ok is false when
// that date falls before the start, after the end, or after today.
func (s *Scheduler) NextOccurrence(rule core.RecurringRule, today core.Date) (core.Date, bool, error) {
	if !rule.EndDate.IsEmpty() && rule.EndDate.IsBefore(rule.StartDate) {
		return core.Date{}, false, &core.ConfigurationError{Field: "endDate", Reason: "end date before start date"}
	}

	strategy, err := GetOccurrenceStrategy(rule.Frequency)
	if err != nil {
		return core.Date{}, false, err
	}

	base := rule.StartDate
	if !rule.LastProcessed.IsEmpty() {
		base = rule.LastProcessed
	}

	next, err := strategy.Advance(base, rule)
	if err != nil {
		return core.Date{}, false, err
	}

	if next.IsBefore(rule.StartDate) {
		return core.Date{}, false, nil
	}
	if !rule.EndDate.IsEmpty() && next.IsAfter(rule.EndDate) {
		return core.Date{}, false, nil
	}
	// never materialize anything dated after today
	if next.IsAfter(today) {
		return core.Date{}, false, nil
	}

	return next, true, nil
}

// PendingOccurrences returns every due but unprocessed occurrence in
// ascending order, at most MaxBacklog of them. The rule is taken by value
// and only the local copy's LastProcessed advances; persisting the dates and
// moving the stored marker is up to the caller.
func (s *Scheduler) PendingOccurrences(rule core.RecurringRule, today core.Date) ([]core.Date, error) {
	var dates []core.Date
	working := rule

	for len(dates) < s.maxBacklog {
		next, ok, err := s.NextOccurrence(working, today)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		dates = append(dates, next)
		working.LastProcessed = next
	}

	return dates, nil
}
