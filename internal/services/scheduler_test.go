package services

import (
	"errors"
	"reflect"
	"testing"

	"fintrack/internal/core"
)

func d(y, m, day int) core.Date { return core.NewDate(y, m, day) }

func dates(ds ...core.Date) []core.Date { return ds }

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name   string
		rule   core.RecurringRule
		today  core.Date
		want   core.Date
		wantOK bool
	}{
		{
			name:   "daily from start date",
			rule:   core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1)},
			today:  d(2025, 1, 10),
			want:   d(2025, 1, 2),
			wantOK: true,
		},
		{
			name:   "daily from last processed",
			rule:   core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1), LastProcessed: d(2025, 1, 5)},
			today:  d(2025, 1, 10),
			want:   d(2025, 1, 6),
			wantOK: true,
		},
		{
			name:   "weekly lands on monday anchor",
			rule:   core.RecurringRule{Frequency: core.Weekly, StartDate: d(2025, 10, 1), DayOfWeek: core.IntPtr(1), LastProcessed: d(2025, 11, 3)},
			today:  d(2025, 11, 20),
			want:   d(2025, 11, 10),
			wantOK: true,
		},
		{
			name:   "weekly anchor earlier in the week than base",
			rule:   core.RecurringRule{Frequency: core.Weekly, StartDate: d(2025, 11, 1), DayOfWeek: core.IntPtr(0), LastProcessed: d(2025, 11, 1)},
			today:  d(2025, 11, 30),
			want:   d(2025, 11, 2),
			wantOK: true,
		},
		{
			name:   "monthly clamps 31 to end of february",
			rule:   core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 31), DayOfMonth: core.IntPtr(31), LastProcessed: d(2025, 1, 31)},
			today:  d(2025, 3, 1),
			want:   d(2025, 2, 28),
			wantOK: true,
		},
		{
			name:   "monthly clamps 31 to leap day",
			rule:   core.RecurringRule{Frequency: core.Monthly, StartDate: d(2024, 1, 31), DayOfMonth: core.IntPtr(31)},
			today:  d(2024, 3, 1),
			want:   d(2024, 2, 29),
			wantOK: true,
		},
		{
			name:   "monthly returns to anchor after short month",
			rule:   core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 31), DayOfMonth: core.IntPtr(31), LastProcessed: d(2025, 2, 28)},
			today:  d(2025, 4, 1),
			want:   d(2025, 3, 31),
			wantOK: true,
		},
		{
			name:   "monthly 31 in april",
			rule:   core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 31), DayOfMonth: core.IntPtr(31), LastProcessed: d(2025, 3, 31)},
			today:  d(2025, 5, 1),
			want:   d(2025, 4, 30),
			wantOK: true,
		},
		{
			name:   "monthly across year boundary",
			rule:   core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 10), DayOfMonth: core.IntPtr(10), LastProcessed: d(2025, 12, 10)},
			today:  d(2026, 2, 1),
			want:   d(2026, 1, 10),
			wantOK: true,
		},
		{
			name:   "yearly same month and day",
			rule:   core.RecurringRule{Frequency: core.Yearly, StartDate: d(2023, 6, 15)},
			today:  d(2025, 1, 1),
			want:   d(2024, 6, 15),
			wantOK: true,
		},
		{
			name:   "yearly leap day",
			rule:   core.RecurringRule{Frequency: core.Yearly, StartDate: d(2024, 2, 29)},
			today:  d(2025, 12, 31),
			want:   d(2025, 2, 28),
			wantOK: true,
		},
		{
			name:   "candidate in the future",
			rule:   core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1), LastProcessed: d(2025, 1, 10)},
			today:  d(2025, 1, 10),
			wantOK: false,
		},
		{
			name:   "candidate equal to today is due",
			rule:   core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1), LastProcessed: d(2025, 1, 9)},
			today:  d(2025, 1, 10),
			want:   d(2025, 1, 10),
			wantOK: true,
		},
		{
			name:   "candidate after end date",
			rule:   core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1), EndDate: d(2025, 1, 5), LastProcessed: d(2025, 1, 5)},
			today:  d(2025, 2, 1),
			wantOK: false,
		},
		{
			name:   "candidate on end date is included",
			rule:   core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1), EndDate: d(2025, 1, 5), LastProcessed: d(2025, 1, 4)},
			today:  d(2025, 2, 1),
			want:   d(2025, 1, 5),
			wantOK: true,
		},
		{
			name:   "start date in the future",
			rule:   core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 6, 1)},
			today:  d(2025, 5, 1),
			wantOK: false,
		},
		{
			name:   "weekly snap before start date is rejected",
			rule:   core.RecurringRule{Frequency: core.Weekly, StartDate: d(2025, 11, 14), DayOfWeek: core.IntPtr(0), LastProcessed: d(2025, 11, 1)},
			today:  d(2025, 12, 31),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := NextOccurrence(tt.rule, tt.today)
			if err != nil {
				t.Fatalf("NextOccurrence() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("NextOccurrence() ok = %v, want %v (date %s)", ok, tt.wantOK, got)
			}
			if ok && !got.SameDay(tt.want) {
				t.Errorf("NextOccurrence() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		rule core.RecurringRule
	}{
		{"weekly without day of week", core.RecurringRule{Frequency: core.Weekly, StartDate: d(2025, 1, 1)}},
		{"monthly without day of month", core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 1)}},
		{"monthly day out of range", core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 1), DayOfMonth: core.IntPtr(0)}},
		{"unknown frequency", core.RecurringRule{Frequency: "FORTNIGHTLY", StartDate: d(2025, 1, 1)}},
		{"end before start", core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 2, 1), EndDate: d(2025, 1, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := NextOccurrence(tt.rule, d(2025, 12, 31))
			var cfgErr *core.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want *core.ConfigurationError", err)
			}
			if ok {
				t.Fatalf("ok should be false on error")
			}

			pending, err := PendingOccurrences(tt.rule, d(2025, 12, 31))
			if !errors.Is(err, core.ErrConfiguration) || pending != nil {
				t.Fatalf("PendingOccurrences() = %v, %v; want nil, configuration error", pending, err)
			}
		})
	}
}

func TestPendingOccurrences(t *testing.T) {
	tests := []struct {
		name  string
		rule  core.RecurringRule
		today core.Date
		want  []core.Date
	}{
		{
			name:  "daily backlog",
			rule:  core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1)},
			today: d(2025, 1, 5),
			want:  dates(d(2025, 1, 2), d(2025, 1, 3), d(2025, 1, 4), d(2025, 1, 5)),
		},
		{
			name:  "weekly backlog",
			rule:  core.RecurringRule{Frequency: core.Weekly, StartDate: d(2025, 10, 1), DayOfWeek: core.IntPtr(1), LastProcessed: d(2025, 11, 3)},
			today: d(2025, 11, 20),
			want:  dates(d(2025, 11, 10), d(2025, 11, 17)),
		},
		{
			name:  "monthly clamped backlog",
			rule:  core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 31), DayOfMonth: core.IntPtr(31)},
			today: d(2025, 5, 15),
			want:  dates(d(2025, 2, 28), d(2025, 3, 31), d(2025, 4, 30)),
		},
		{
			name:  "yearly backlog",
			rule:  core.RecurringRule{Frequency: core.Yearly, StartDate: d(2024, 2, 29)},
			today: d(2026, 3, 1),
			want:  dates(d(2025, 2, 28), d(2026, 2, 28)),
		},
		{
			name:  "bounded by end date",
			rule:  core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 1, 1), EndDate: d(2025, 1, 3)},
			today: d(2025, 1, 10),
			want:  dates(d(2025, 1, 2), d(2025, 1, 3)),
		},
		{
			name:  "caught up",
			rule:  core.RecurringRule{Frequency: core.Monthly, StartDate: d(2025, 1, 15), DayOfMonth: core.IntPtr(15), LastProcessed: d(2025, 3, 15)},
			today: d(2025, 4, 10),
			want:  nil,
		},
		{
			name:  "not started yet",
			rule:  core.RecurringRule{Frequency: core.Daily, StartDate: d(2025, 6, 1)},
			today: d(2025, 5, 1),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PendingOccurrences(tt.rule, tt.today)
			if err != nil {
				t.Fatalf("PendingOccurrences() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("PendingOccurrences() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].SameDay(tt.want[i]) {
					t.Errorf("occurrence %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPendingOccurrencesBacklogCeiling(t *testing.T) {
	rule := core.RecurringRule{Frequency: core.Daily, StartDate: d(2020, 1, 1)}
	today := d(2025, 1, 1)

	first, err := PendingOccurrences(rule, today)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != DefaultMaxBacklog {
		t.Fatalf("got %d occurrences, want %d", len(first), DefaultMaxBacklog)
	}
	if last := first[len(first)-1]; !last.SameDay(d(2020, 12, 31)) {
		t.Fatalf("last occurrence = %s, want 2020-12-31", last)
	}

	// a second call after persisting continues where the first stopped
	rule.LastProcessed = first[len(first)-1]
	second, err := PendingOccurrences(rule, today)
	if err != nil {
		t.Fatal(err)
	}
	if !second[0].SameDay(d(2021, 1, 1)) {
		t.Fatalf("second batch starts at %s, want 2021-01-01", second[0])
	}

	small := NewScheduler(3)
	got, err := small.PendingOccurrences(rule, today)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("custom ceiling: got %d occurrences, want 3", len(got))
	}
	if NewScheduler(0).MaxBacklog() != DefaultMaxBacklog {
		t.Fatalf("non-positive ceiling should fall back to the default")
	}
}

func TestPendingOccurrencesIsPureAndIdempotent(t *testing.T) {
	rule := core.RecurringRule{
		Frequency:     core.Weekly,
		StartDate:     d(2025, 1, 1),
		DayOfWeek:     core.IntPtr(5),
		LastProcessed: d(2025, 1, 3),
	}
	snapshot := rule
	today := d(2025, 4, 1)

	first, err := PendingOccurrences(rule, today)
	if err != nil {
		t.Fatal(err)
	}
	second, err := PendingOccurrences(rule, today)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between calls: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(rule, snapshot) {
		t.Fatalf("caller's rule was mutated: %+v", rule)
	}
}

func TestPendingOccurrencesInvariants(t *testing.T) {
	rules := []core.RecurringRule{
		{Frequency: core.Daily, StartDate: d(2024, 12, 1)},
		{Frequency: core.Weekly, StartDate: d(2024, 12, 1), DayOfWeek: core.IntPtr(0)},
		{Frequency: core.Weekly, StartDate: d(2024, 12, 4), DayOfWeek: core.IntPtr(6)},
		{Frequency: core.Monthly, StartDate: d(2024, 1, 31), DayOfMonth: core.IntPtr(31)},
		{Frequency: core.Monthly, StartDate: d(2024, 1, 5), DayOfMonth: core.IntPtr(29), EndDate: d(2025, 3, 1)},
		{Frequency: core.Yearly, StartDate: d(2020, 2, 29)},
	}

	for _, rule := range rules {
		for today := d(2024, 11, 1); !today.IsAfter(d(2025, 6, 1)); today = today.AddDays(17) {
			got, err := PendingOccurrences(rule, today)
			if err != nil {
				t.Fatalf("%s: %v", rule.Frequency, err)
			}
			for i, occ := range got {
				if occ.IsAfter(today) {
					t.Fatalf("%s: occurrence %s after today %s", rule.Frequency, occ, today)
				}
				if occ.IsBefore(rule.StartDate) {
					t.Fatalf("%s: occurrence %s before start %s", rule.Frequency, occ, rule.StartDate)
				}
				if !rule.EndDate.IsEmpty() && occ.IsAfter(rule.EndDate) {
					t.Fatalf("%s: occurrence %s after end %s", rule.Frequency, occ, rule.EndDate)
				}
				if i > 0 && !occ.IsAfter(got[i-1]) {
					t.Fatalf("%s: occurrences not strictly ascending: %s then %s", rule.Frequency, got[i-1], occ)
				}
			}
		}
	}
}
