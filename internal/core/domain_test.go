package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-02-29", true},
		{"2025-12-31", true},
		{"2024-02-30", false},
		{"2024-13-01", false},
		{"2024-1-01", false},
		{"24-01-01", false},
		{"2024-01-01T00:00:00Z", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: expected ok, got %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", tc.in, err)
		}
		if tc.ok && d.String() != tc.in {
			t.Fatalf("%q: round trip gave %q", tc.in, d.String())
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 3, 9))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-03-09"` {
		t.Fatalf("unexpected json %s", b)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-30"`), &d); err == nil {
		t.Fatal("expected error for impossible date")
	}
}

func TestMonthRange(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

	m := MonthOrCurrent("2024-02", now)
	if m.First().String() != "2024-02-01" || m.Last().String() != "2024-02-29" {
		t.Fatalf("unexpected range %s..%s", m.First(), m.Last())
	}
	if m.Prev().Key() != "2024-01" || m.Next().Key() != "2024-03" {
		t.Fatalf("unexpected neighbours %s %s", m.Prev().Key(), m.Next().Key())
	}

	jan := MonthOrCurrent("2025-01", now)
	if jan.Prev().Key() != "2024-12" {
		t.Fatalf("expected 2024-12, got %s", jan.Prev().Key())
	}
	if dec := MonthOrCurrent("2024-12", now); dec.Next().Key() != "2025-01" {
		t.Fatalf("expected 2025-01, got %s", dec.Next().Key())
	}

	for _, bad := range []string{"2024-13", "2024-00", "abc", "", "2024-1"} {
		if got := MonthOrCurrent(bad, now); got.Key() != "2025-07" {
			t.Fatalf("%q: expected fallback to 2025-07, got %s", bad, got.Key())
		}
	}
}

func TestTransactionInputNormalize(t *testing.T) {
	good := TransactionInput{
		Type:        "expense",
		Amount:      "12.345",
		OccurredAt:  "2024-05-10",
		CategoryID:  "  ",
		Description: "   ",
	}
	tx, err := good.Normalize()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Amount.Cents != 1235 {
		t.Fatalf("expected 1235 cents, got %d", tx.Amount.Cents)
	}
	if tx.Description != nil || tx.CategoryID != nil {
		t.Fatal("blank optional fields must become nil")
	}

	bads := []TransactionInput{
		{Type: "transfer", Amount: "1", OccurredAt: "2024-01-01"},
		{Type: "income", Amount: "0", OccurredAt: "2024-01-01"},
		{Type: "income", Amount: "-3", OccurredAt: "2024-01-01"},
		{Type: "income", Amount: "abc", OccurredAt: "2024-01-01"},
		{Type: "income", Amount: "1", OccurredAt: "2024-13-01"},
		{Type: "income", Amount: "1", OccurredAt: "01/02/2024"},
	}
	for i, in := range bads {
		_, err := in.Normalize()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestGoalAndSubscriptionInputs(t *testing.T) {
	g, err := GoalInput{Name: " Trip ", TargetAmount: "1000", DueAt: " "}.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "Trip" || g.DueAt != nil {
		t.Fatalf("unexpected goal %+v", g)
	}

	_, err = GoalInput{Name: "", TargetAmount: "1"}.Normalize()
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}

	_, err = SubscriptionInput{Name: "Netflix", Amount: "9.99", BillingCycle: "weekly", NextDueAt: "2024-01-01"}.Normalize()
	if !errors.As(err, &verr) || verr.Field != "billingCycle" {
		t.Fatalf("expected billingCycle validation error, got %v", err)
	}
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories()
	var income, expense int
	for _, c := range cats {
		switch c.Type {
		case Income:
			income++
		case Expense:
			expense++
		}
		if c.Icon == nil || *c.Icon == "" {
			t.Fatalf("%s has no icon", c.Name)
		}
	}
	if income != 4 || expense != 8 {
		t.Fatalf("expected 4 income and 8 expense, got %d and %d", income, expense)
	}
}
