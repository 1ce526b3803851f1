package services

import (
	"errors"
	"time"
)

// Errors shared by several services.
var (
	ErrValidation = errors.New("validation error")
	ErrDateFormat = errors.New("invalid date format, please use YYYY-MM-DD")
)

const dateLayout = "2006-01-02"

// Clock returns the current time in the clinic's time zone.
type Clock func() time.Time

// ClockIn returns a Clock reading the wall clock in loc.
func ClockIn(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseDate parses a YYYY-MM-DD date in loc.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, ErrDateFormat
	}
	return t, nil
}
