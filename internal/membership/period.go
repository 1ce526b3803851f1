package membership

import (
	"errors"
	"fmt"
	"time"

	"tuina_clinic_backend/internal/models"
)

// ErrInvalidPeriod is returned for an unknown period type or a non-positive period value.
var ErrInvalidPeriod = errors.New("invalid validity period")

// ExpiryFrom returns start advanced by periodValue units of periodType.
// Months and years follow the calendar; a day-of-month that does not exist in the target
// month is clamped to that month's last day.
func ExpiryFrom(start time.Time, periodType models.PeriodType, periodValue int) (time.Time, error) {
	if periodValue <= 0 {
		return time.Time{}, fmt.Errorf("%w: period value must be positive, got %d", ErrInvalidPeriod, periodValue)
	}
	switch periodType {
	case models.PeriodDay:
		return start.AddDate(0, 0, periodValue), nil
	case models.PeriodWeek:
		return start.AddDate(0, 0, 7*periodValue), nil
	case models.PeriodMonth:
		return addMonthsClamped(start, periodValue), nil
	case models.PeriodYear:
		return addMonthsClamped(start, 12*periodValue), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, periodType)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	total := int(month) - 1 + months
	targetYear := year + total/12
	targetMonth := total % 12
	if targetMonth < 0 {
		targetMonth += 12
		targetYear--
	}
	m := time.Month(targetMonth + 1)
	if last := daysIn(targetYear, m, t.Location()); day > last {
		day = last
	}
	return time.Date(targetYear, m, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// ValidityDaysToExpiry returns the expiry for a catalog template measured in days.
func ValidityDaysToExpiry(start time.Time, validityDays int) (*time.Time, error) {
	if validityDays <= 0 {
		return nil, nil
	}
	expiry, err := ExpiryFrom(start, models.PeriodDay, validityDays)
	if err != nil {
		return nil, err
	}
	return &expiry, nil
}
