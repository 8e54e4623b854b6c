// Package http exposes the finance operations as a JSON API.
//
// This file holds the request side: bounded JSON decoding, input
// sanitization and query parameter parsing shared by the handlers.
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

	"ezfin/internal/core"
)

// maxBodyBytes bounds every request body; the largest payload is a
// transaction with a description.
const maxBodyBytes = 64 << 10

var (
	// errBadRequest marks malformed bodies and query strings; they map to 400.
	errBadRequest = errors.New("bad request")
	// errTooLarge marks bodies over maxBodyBytes; they map to 413.
	errTooLarge = errors.New("request body too large")
)

// decodeJSON reads a single JSON object from the body into dst. Fields dst
// does not declare are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: content type must be application/json", errBadRequest)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("%w: limit is %d bytes", errTooLarge, tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("%w: %s", errBadRequest, strings.TrimPrefix(err.Error(), "json: "))
		}
		return fmt.Errorf("%w: invalid JSON", errBadRequest)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

func sanitizeTransaction(in core.TransactionInput) core.TransactionInput {
	in.Type = sanitizeInput(in.Type)
	in.Amount = sanitizeInput(in.Amount)
	in.OccurredAt = sanitizeInput(in.OccurredAt)
	in.CategoryID = sanitizeInput(in.CategoryID)
	in.Description = sanitizeInput(in.Description)
	return in
}

func sanitizeSubscription(in core.SubscriptionInput) core.SubscriptionInput {
	in.Name = sanitizeInput(in.Name)
	in.Amount = sanitizeInput(in.Amount)
	in.BillingCycle = sanitizeInput(in.BillingCycle)
	in.NextDueAt = sanitizeInput(in.NextDueAt)
	return in
}

func sanitizeGoal(in core.GoalInput) core.GoalInput {
	in.Name = sanitizeInput(in.Name)
	in.TargetAmount = sanitizeInput(in.TargetAmount)
	in.DueAt = sanitizeInput(in.DueAt)
	return in
}

func sanitizeCategory(in core.CategoryInput) core.CategoryInput {
	in.Name = sanitizeInput(in.Name)
	in.Type = sanitizeInput(in.Type)
	in.Color = sanitizeInput(in.Color)
	in.Icon = sanitizeInput(in.Icon)
	return in
}

func sanitizePreferences(in core.PreferencesInput) core.PreferencesInput {
	return core.PreferencesInput{
		Currency: sanitizePtr(in.Currency),
		Locale:   sanitizePtr(in.Locale),
		Theme:    sanitizePtr(in.Theme),
	}
}

// ParseRecentFilter reads from, to (YYYY-MM-DD) and limit from the query
// string. Absent values leave the filter open; a zero limit means the
// default.
func ParseRecentFilter(query url.Values) (core.RecentFilter, error) {
	var f core.RecentFilter
	for _, p := range []struct {
		name string
		dst  **core.Date
	}{{"from", &f.From}, {"to", &f.To}} {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.RecentFilter{}, &core.ValidationError{Field: p.name, Reason: "must be a valid YYYY-MM-DD date", Err: err}
		}
		*p.dst = &d
	}
	if f.From != nil && f.To != nil && f.To.Before(f.From.Time) {
		return core.RecentFilter{}, core.NewValidationError("to", "must not be before from")
	}

	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return core.RecentFilter{}, core.NewValidationError("limit", "must be a positive integer")
		}
		f.Limit = min(n, core.MaxListLimit)
	}
	return f, nil
}
