package recur

import (
	"errors"
	"fmt"
	"time"
)

// LastDay is the recurring-day sentinel meaning "the last calendar day
// of the month", whatever the month length.
const LastDay = 99

// ErrInvalidDay is returned when a recurring day is outside 1..31 and
// is not the LastDay sentinel.
var ErrInvalidDay = errors.New("recurring day must be 1-31 or 99")

// ValidDay reports whether day is an accepted recurring-day value.
func ValidDay(day int) bool {
	return day == LastDay || (day >= 1 && day <= 31)
}

// DateForMonth returns the concrete YYYY-MM-DD date for a recurrence
// day in the given month. The sentinel LastDay resolves to the month's
// last day; other days clamp to the month length (day 31 in February
// becomes the 28th or 29th).
//
// Precondition: ValidDay(day). Out-of-range days are the caller's
// validation responsibility.
func DateForMonth(year, month, day int) string {
	last := daysIn(year, month)
	d := day
	if day == LastDay || day > last {
		d = last
	}
	return formatDate(year, month, d)
}

// NextOccurrence returns the first occurrence of a recurrence day
// strictly ahead of now: this month's clamped date, unless now has
// already reached or passed it, in which case next month's clamped
// date. The check is same-day-or-later so that completing an instance
// on its own date (including a LastDay instance on the month's last
// day) rolls forward instead of yielding today again.
func NextOccurrence(now time.Time, day int) string {
	year, month := now.Year(), int(now.Month())
	current := DateForMonth(year, month, day)
	today := formatDate(year, month, now.Day())
	if today >= current {
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return DateForMonth(year, month, day)
}

func daysIn(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func formatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
