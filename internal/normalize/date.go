// Package normalize turns raw statement cells into typed ledger values.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseable is returned when a cell matches no known format.
var ErrUnparseable = errors.New("unparseable value")

// Month-first layouts come before day-first ones, so 03/04/2026 is March 4.
var dateLayouts = []string{
	"1/2/2006",
	"2006-1-2",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"2006/1/2",
	"1/2/06",
	"2-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
}

// ParseDate parses a statement date into UTC midnight of that calendar day.
func ParseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrUnparseable)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrUnparseable, v)
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute number of whole days between two dates.
func DaysBetween(a, b time.Time) int {
	d := DateOnly(a).Sub(DateOnly(b))
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
