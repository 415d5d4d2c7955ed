// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// month parameters, integer query values, goal list filters and
// size-limited JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// now as the default. Unparseable values fall back to the default; range
// checks are left to the services.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}

	return params
}

// ParseIntParam reads an integer query value, returning def when it is
// absent. Range checks are left to the services.
func ParseIntParam(query url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// ParseGoalFilter reads status, category, orderBy and order from the query.
func ParseGoalFilter(query url.Values) (storage.GoalFilter, error) {
	f := storage.GoalFilter{
		Status:   strings.ToLower(strings.TrimSpace(query.Get("status"))),
		Category: core.GoalCategory(strings.ToUpper(strings.TrimSpace(query.Get("category")))),
		OrderBy:  strings.TrimSpace(query.Get("orderBy")),
	}

	switch f.Status {
	case "":
		f.Status = "active"
	case "active", "completed", "all":
	default:
		return f, fmt.Errorf("status must be active, completed or all")
	}

	switch f.OrderBy {
	case "", "createdAt", "deadline", "targetAmount", "progress":
	default:
		return f, fmt.Errorf("orderBy must be progress, deadline, targetAmount or createdAt")
	}

	switch strings.ToLower(strings.TrimSpace(query.Get("order"))) {
	case "", "desc":
	case "asc":
		f.Asc = true
	default:
		return f, fmt.Errorf("order must be asc or desc")
	}

	return f, nil
}

// DecodeJSON decodes a size-limited JSON body into v, rejecting unknown
// fields and trailing data.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseOptionalDate parses a YYYY-MM-DD string; empty means absent.
func parseOptionalDate(field, s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Message: "date must be YYYY-MM-DD", Err: core.ErrInvalidDate}
	}
	return d, nil
}
