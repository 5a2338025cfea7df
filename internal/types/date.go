package types

import (
	"time"

	ierr "github.com/corebill/corebill/internal/errors"
)

// NextRunDate calculates the next occurrence of a recurring schedule after
// the given date. Monthly and longer frequencies advance by calendar units,
// not fixed day counts, so a schedule anchored on Jan 31 lands on the last
// day of February rather than spilling into March.
func NextRunDate(from time.Time, frequency RecurringFrequency) (time.Time, error) {
	switch frequency {
	case RecurringFrequencyWeekly:
		return AddClampedDate(from, 0, 0, 7), nil
	case RecurringFrequencyMonthly:
		return AddClampedDate(from, 0, 1, 0), nil
	case RecurringFrequencyQuarterly:
		return AddClampedDate(from, 0, 3, 0), nil
	case RecurringFrequencyYearly:
		return AddClampedDate(from, 1, 0, 0), nil
	default:
		return from, ierr.NewError("invalid recurring frequency").
			WithHintf("unknown frequency: %s", frequency).
			Mark(ierr.ErrValidation)
	}
}

// AddClampedDate adds years, months and days to a date, clamping the day of
// month to the last valid day of the target month instead of letting
// time.AddDate normalize it forward (Jan 31 + 1 month = Feb 28/29, not Mar 2/3).
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	// Moving past December (or before January) adjusts the year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d
	if newD > lastDay {
		newD = lastDay
	}

	result := time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
	if days != 0 {
		result = result.AddDate(0, 0, days)
	}
	return result
}
