package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12.345", 1235, true}, // half-up
		{"12.344", 1234, true},
		{"0.005", 1, true},
		{"100", 10000, true},
		{" 7.5 ", 750, true},
		{"9999999999.99", 999999999999, true},
		{"", 0, false},
		{"abc", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"-5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"10000000000", 0, false},
		{"1e-999999999", 0, false},
		{"1e9999999", 0, false},
		{"1E2", 0, false},
		{"+5", 0, false},
		{".5", 0, false},
		{"5.", 0, false},
		{"1.2.3", 0, false},
		{"1,234.56", 0, false},
		{"0.0000000000000001", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error: %v", tc.in, err)
			}
			if got.Cents != tc.cents {
				t.Fatalf("%q: want %d, got %d", tc.in, tc.cents, got.Cents)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q: expected ErrInvalidAmount, got %v (%d)", tc.in, err, got.Cents)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		1230:  "12.30",
		5:     "0.05",
		-1999: "-19.99",
		0:     "0.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d: want %q, got %q", cents, want, got)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Money{Cents: 4200}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":"42.00"}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestMoneyFromString(t *testing.T) {
	m, err := MoneyFromString("-12.3")
	if err != nil {
		t.Fatal(err)
	}
	if m.Cents != -1230 {
		t.Fatalf("want -1230, got %d", m.Cents)
	}
	for _, bad := range []string{"x", "", "1e-999999999", "12.3e5"} {
		if _, err := MoneyFromString(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q: expected ErrInvalidAmount, got %v", bad, err)
		}
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, total int64
		want        int
	}{
		{50, 200, 25},
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // 0.5 rounds up
		{10, 0, 0},
	}
	for _, tc := range cases {
		if got := Percent(Money{Cents: tc.part}, Money{Cents: tc.total}); got != tc.want {
			t.Fatalf("%d/%d: want %d, got %d", tc.part, tc.total, tc.want, got)
		}
	}
}
