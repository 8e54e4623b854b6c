// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents. Parsing goes through
// shopspring/decimal so that user input is never routed through float64.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents is the largest value a NUMERIC(12,2) column can hold.
const maxCents int64 = 999_999_999_999

// Plain decimal notation only. Exponents such as 1e-999999999 make the
// decimal library rescale by 10^|exp|.
var (
	amountRe = regexp.MustCompile(`^\d{1,15}([.,]\d{1,15})?$`)
	storedRe = regexp.MustCompile(`^-?\d{1,30}(\.\d{1,15})?$`)
)

type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money with half-up rounding to
// two decimals.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for non-numeric or exponent input, zero or
// negative values, and values that do not fit NUMERIC(12,2).
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("12.344") -> 12.34
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !amountRe.MatchString(s) {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Cents: cents.IntPart()}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// MoneyFromString parses a stored NUMERIC value such as "-12.30".
// Unlike ParseAmount it accepts zero and negative values.
func MoneyFromString(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !storedRe.MatchString(s) {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > maxCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// MarshalText lets Money travel as a JSON string like "12.30".
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalText(b []byte) error {
	v, err := MoneyFromString(string(b))
	if err != nil {
		return ErrInvalidAmount
	}
	*m = v
	return nil
}

// Percent returns round(part/total*100), or 0 when total is not positive.
func Percent(part, total Money) int {
	if total.Cents <= 0 {
		return 0
	}
	p := decimal.NewFromInt(part.Cents).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total.Cents)).
		Round(0)
	return int(p.IntPart())
}
