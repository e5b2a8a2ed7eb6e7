// Originally copied from https://github.com/googleapis/google-cloud-go/blob/v0.116.0/civil/civil.go
// See https://github.com/googleapis/google-cloud-go/blob/v0.116.0/LICENSE.

// Package xtime provides a day-granularity civil date type, used throughout
// the ledger for holding-period and as-of comparisons where wall-clock time
// is not meaningful.
package xtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date represents a date (year, month, day) with no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// TimeToDate returns the Date in which a time occurs in that time's location.
func TimeToDate(t time.Time) Date {
	var d Date
	d.Year, d.Month, d.Day = t.Date()
	return d
}

// ParseDate parses a string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("xtime: parsing date %q: %w", s, err)
	}
	return TimeToDate(t), nil
}

// In returns the time corresponding to the start of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return TimeToDate(d.In(time.UTC).AddDate(0, 0, n))
}

// DaysSince returns the signed number of days between d and s, such that
// s.AddDays(d.DaysSince(s)) == d.
func (d Date) DaysSince(s Date) int {
	deltaUnix := d.In(time.UTC).Unix() - s.In(time.UTC).Unix()
	return int(deltaUnix / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// IsValid reports whether the date represents a real calendar date, i.e.
// that constructing a time.Time from it and reading the fields back does
// not normalize to a different year, month, or day.
func (d Date) IsValid() bool {
	t := d.In(time.UTC)
	year, month, day := t.Date()
	return year == d.Year && month == d.Month && day == d.Day
}

// Before reports whether d occurs before d2.
func (d Date) Before(d2 Date) bool {
	return d.Compare(d2) < 0
}

// After reports whether d occurs after d2.
func (d Date) After(d2 Date) bool {
	return d.Compare(d2) > 0
}

// EqualOrBefore reports whether d occurs before or on d2.
func (d Date) EqualOrBefore(d2 Date) bool {
	return d.Compare(d2) <= 0
}

// EqualOrAfter reports whether d occurs after or on d2.
func (d Date) EqualOrAfter(d2 Date) bool {
	return d.Compare(d2) >= 0
}

// Compare returns -1, 0, or +1 depending on whether d is before, equal to,
// or after d2.
func (d Date) Compare(d2 Date) int {
	if d.Year != d2.Year {
		if d.Year < d2.Year {
			return -1
		}
		return 1
	}
	if d.Month != d2.Month {
		if d.Month < d2.Month {
			return -1
		}
		return 1
	}
	if d.Day != d2.Day {
		if d.Day < d2.Day {
			return -1
		}
		return 1
	}
	return 0
}

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String returns the date in YYYY-MM-DD format.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalJSON implements json.Marshaler, writing the date as a quoted
// YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, reading a quoted YYYY-MM-DD
// string; any other shape is an error.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("xtime: Date.UnmarshalJSON: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("xtime: Date.UnmarshalJSON: %w", err)
	}
	*d = parsed
	return nil
}
