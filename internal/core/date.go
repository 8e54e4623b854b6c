package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

// Date is a calendar date without a time component, always in UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD and rejects dates that do not exist on the
// calendar, such as 2024-02-30.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if !dateRe.MatchString(s) {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON shadows the promoted time.Time method so dates encode as
// "YYYY-MM-DD" rather than RFC 3339 timestamps.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	return d.UnmarshalText([]byte(s))
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth reads a YYYY-MM key. It reports false for anything malformed
// or with a month outside 1-12.
func ParseMonth(s string) (Month, bool) {
	m := monthRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Month{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Month{}, false
	}
	return Month{Year: year, Month: time.Month(month)}, true
}

// MonthOrCurrent parses s and falls back to the month containing now.
func MonthOrCurrent(s string, now time.Time) Month {
	if m, ok := ParseMonth(s); ok {
		return m
	}
	return Month{Year: now.Year(), Month: now.Month()}
}

func (m Month) First() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

func (m Month) Last() Date {
	return NewDate(m.Year, int(m.Month)+1, 0)
}

func (m Month) Prev() Month {
	t := m.First().AddDate(0, -1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) Next() Month {
	t := m.First().AddDate(0, 1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Key formats the month as YYYY-MM.
func (m Month) Key() string {
	return m.First().Format("2006-01")
}
