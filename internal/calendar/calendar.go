// Package calendar lays out months on the Saturday-first dispatch week.
package calendar

import (
	"iter"
	"time"

	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/utils"
)

var dayNames = [constants.DaysPerWeek]string{
	"Saturday", "Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday",
}

// Day is one date of a month grid.
type Day struct {
	Date time.Time
	// Index is the position in the locale week, Saturday = 0
	Index   int
	Weekend bool
}

// String returns the date as YYYY-MM-DD
func (d Day) String() string {
	return utils.FormatDate(d.Date)
}

// IsZero reports whether d is a padding cell of a week grid
func (d Day) IsZero() bool {
	return d.Date.IsZero()
}

// LocaleIndex maps a Go weekday (Sunday = 0) onto the locale week (Saturday = 0).
func LocaleIndex(wd time.Weekday) int {
	if wd == time.Saturday {
		return 0
	}
	return int(wd) + 1
}

// IsWeekend reports whether a locale index falls on the weekend
func IsWeekend(index int) bool {
	return index == constants.WeekendStartIndex || index == constants.WeekendStartIndex+1
}

// DayName returns the English name for a locale index, or "" when out of range
func DayName(index int) string {
	if index < 0 || index >= len(dayNames) {
		return ""
	}
	return dayNames[index]
}

// DayNames returns the locale week day names, Saturday first
func DayNames() []string {
	return dayNames[:]
}

// DaysIn returns the number of days in the month
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func newDay(t time.Time) Day {
	idx := LocaleIndex(t.Weekday())
	return Day{Date: t, Index: idx, Weekend: IsWeekend(idx)}
}

// Month yields every date of the month in order. The sequence computes days
// on demand, ends after the last day and can be ranged over any number of times.
func Month(year int, month time.Month) iter.Seq[Day] {
	return func(yield func(Day) bool) {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		n := DaysIn(year, month)
		for i := 0; i < n; i++ {
			if !yield(newDay(first.AddDate(0, 0, i))) {
				return
			}
		}
	}
}

// Weeks arranges the month into Saturday-first rows. Cells outside the month are zero Days.
func Weeks(year int, month time.Month) [][constants.DaysPerWeek]Day {
	var (
		weeks [][constants.DaysPerWeek]Day
		row   [constants.DaysPerWeek]Day
		used  bool
	)
	for d := range Month(year, month) {
		if d.Index == 0 && used {
			weeks = append(weeks, row)
			row = [constants.DaysPerWeek]Day{}
		}
		row[d.Index] = d
		used = true
	}
	if used {
		weeks = append(weeks, row)
	}
	return weeks
}

// WeekStart returns the Saturday that opens t's locale week.
func WeekStart(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return t.AddDate(0, 0, -LocaleIndex(t.Weekday()))
}

// NormalizeWeek maps a YYYY-MM-DD date onto its week's Saturday.
func NormalizeWeek(date string) (string, error) {
	t, err := utils.ParseDate(date)
	if err != nil {
		return "", err
	}
	return utils.FormatDate(WeekStart(t)), nil
}

// WeekDates returns the seven dates of the locale week starting at weekStart
func WeekDates(weekStart string) ([]string, error) {
	t, err := utils.ParseDate(weekStart)
	if err != nil {
		return nil, err
	}
	out := make([]string, constants.DaysPerWeek)
	for i := range out {
		out[i] = utils.FormatDate(t.AddDate(0, 0, i))
	}
	return out, nil
}

// IndexOf returns the locale index of a YYYY-MM-DD date
func IndexOf(date string) (int, error) {
	t, err := utils.ParseDate(date)
	if err != nil {
		return 0, err
	}
	return LocaleIndex(t.Weekday()), nil
}
