package types

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = time.DateOnly

// Date truncates t to a calendar date at UTC midnight. The wall-clock date
// of t in its own location is kept, so 2024-03-01T23:30+05:30 stays March 1.
func Date(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" string into a UTC-midnight date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date: parse %q: %w", s, err)
	}
	return t, nil
}
