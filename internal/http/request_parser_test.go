package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
	}{
		{"both values provided", url.Values{"year": {"2024"}, "month": {"12"}}, 2024, 12},
		{"only month", url.Values{"month": {"3"}}, 2025, 3},
		{"empty query uses defaults", url.Values{}, 2025, 6},
		{"invalid values are ignored", url.Values{"year": {"abc"}, "month": {"xyz"}}, 2025, 6},
		{"out of range month is kept for validation", url.Values{"month": {"13"}}, 2025, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMonthParams(tt.query, now)
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("ParseMonthParams() = %+v, want %d-%d", got, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    int
		wantErr bool
	}{
		{"absent uses default", url.Values{}, 10, false},
		{"blank uses default", url.Values{"limit": {" "}}, 10, false},
		{"value", url.Values{"limit": {"25"}}, 25, false},
		{"out of range is kept for validation", url.Values{"limit": {"-1"}}, -1, false},
		{"not a number", url.Values{"limit": {"ten"}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntParam(tt.query, "limit", 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIntParam() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIntParam() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseGoalFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(t *testing.T, status, category, orderBy string, asc bool)
	}{
		{
			name:  "defaults",
			query: "",
			check: func(t *testing.T, status, category, orderBy string, asc bool) {
				if status != "active" || category != "" || orderBy != "" || asc {
					t.Errorf("got %s %s %s %v", status, category, orderBy, asc)
				}
			},
		},
		{
			name:  "all fields",
			query: "status=Completed&category=vacation&orderBy=progress&order=asc",
			check: func(t *testing.T, status, category, orderBy string, asc bool) {
				if status != "completed" || category != "VACATION" || orderBy != "progress" || !asc {
					t.Errorf("got %s %s %s %v", status, category, orderBy, asc)
				}
			},
		},
		{name: "bad status", query: "status=paused", wantErr: true},
		{name: "bad order by", query: "orderBy=name", wantErr: true},
		{name: "bad order", query: "order=up", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			f, err := ParseGoalFilter(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGoalFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, f.Status, string(f.Category), f.OrderBy, f.Asc)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Amount int64 `json:"amount"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"amount": 10}`, false},
		{"empty", ``, true},
		{"unknown field", `{"amount": 10, "admin": true}`, true},
		{"trailing object", `{"amount": 10}{"amount": 11}`, true},
		{"wrong type", `{"amount": "ten"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  rent  ", "rent"},
		{"a\x00b\x07c", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseOptionalDate(t *testing.T) {
	d, err := parseOptionalDate("endDate", "")
	if err != nil || !d.IsEmpty() {
		t.Errorf("empty = %v, %v", d, err)
	}
	d, err = parseOptionalDate("endDate", "2025-02-28")
	if err != nil || !d.SameDay(core.NewDate(2025, 2, 28)) {
		t.Errorf("valid = %v, %v", d, err)
	}
	_, err = parseOptionalDate("endDate", "28/02/2025")
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "endDate" {
		t.Errorf("invalid = %v", err)
	}
}
