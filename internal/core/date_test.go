package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestClampDayOfMonth(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int
		want             Date
	}{
		{"regular day", 2025, 3, 15, NewDate(2025, 3, 15)},
		{"31 in february", 2025, 2, 31, NewDate(2025, 2, 28)},
		{"31 in leap february", 2024, 2, 31, NewDate(2024, 2, 29)},
		{"31 in april", 2025, 4, 31, NewDate(2025, 4, 30)},
		{"30 in february", 2025, 2, 30, NewDate(2025, 2, 28)},
		{"day below one", 2025, 5, 0, NewDate(2025, 5, 1)},
		{"month overflow", 2025, 13, 31, NewDate(2026, 1, 31)},
		{"month overflow into february", 2024, 14, 31, NewDate(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampDayOfMonth(tt.year, tt.month, tt.day)
			if !got.SameDay(tt.want) {
				t.Errorf("ClampDayOfMonth(%d, %d, %d) = %s, want %s", tt.year, tt.month, tt.day, got, tt.want)
			}
		})
	}
}

func TestDateAddMonthsClamps(t *testing.T) {
	got := NewDate(2025, 1, 31).AddMonths(1)
	if !got.SameDay(NewDate(2025, 2, 28)) {
		t.Fatalf("AddMonths = %s, want 2025-02-28", got)
	}
	got = NewDate(2025, 12, 15).AddMonths(1)
	if !got.SameDay(NewDate(2026, 1, 15)) {
		t.Fatalf("AddMonths across year = %s, want 2026-01-15", got)
	}
}

func TestDateAddYearsLeapDay(t *testing.T) {
	got := NewDate(2024, 2, 29).AddYears(1)
	if !got.SameDay(NewDate(2025, 2, 28)) {
		t.Fatalf("AddYears = %s, want 2025-02-28", got)
	}
}

func TestDateOfTruncatesTime(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	d := DateOf(time.Date(2025, 11, 3, 23, 59, 0, 0, loc))
	if d.String() != "2025-11-03" {
		t.Fatalf("DateOf = %s, want 2025-11-03", d)
	}
	if d.Hour() != 0 || d.Location() != time.UTC {
		t.Fatalf("DateOf should be midnight UTC, got %v", d.Time)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-01-31", "2025-01-31", true},
		{"2025-01-31T15:04:05Z", "2025-01-31", true},
		{"31/01/2025", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Start Date `json:"start"`
		End   Date `json:"end"`
	}
	b, err := json.Marshal(payload{Start: NewDate(2025, 2, 28)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"start":"2025-02-28","end":null}` {
		t.Fatalf("unexpected json %s", b)
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"start":"2025-03-01","end":null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Start.SameDay(NewDate(2025, 3, 1)) || !p.End.IsEmpty() {
		t.Fatalf("unexpected payload %+v", p)
	}

	if err := json.Unmarshal([]byte(`{"start":42}`), &p); err == nil {
		t.Fatalf("expected error for numeric date")
	}
}
