package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/fleetboard/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// TodayInTimezone returns today's date string (YYYY-MM-DD) in the specified timezone.
func TodayInTimezone(timezone string) (string, error) {
	now, err := NowInTimezone(timezone)
	if err != nil {
		return "", err
	}
	return now.Format(constants.DateFormat), nil
}

// ParseTimeOfDay parses a wall-clock time in either HH:MM or HH:MM:SS form.
func ParseTimeOfDay(timeStr string) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)
	if strings.Count(timeStr, ":") == 2 {
		return time.Parse(constants.WireTimeFormat, timeStr)
	}
	return time.Parse(constants.TimeFormat, timeStr)
}

// ParseTimeToMinutes returns the number of minutes from midnight for HH:MM or HH:MM:SS.
// Seconds are truncated.
func ParseTimeToMinutes(timeStr string) (int, error) {
	t, err := ParseTimeOfDay(timeStr)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ShortTime renders a wire time (HH:MM:SS) as HH:MM. Unparseable input is returned as is.
func ShortTime(timeStr string) string {
	t, err := ParseTimeOfDay(timeStr)
	if err != nil {
		return timeStr
	}
	return t.Format(constants.TimeFormat)
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", dateStr)
	}
	return t, nil
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := ParseDate(dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// FormatDate formats a time as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(dateStr string, n int) (string, error) {
	t, err := ParseDate(dateStr)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// ValidateTimeFormat checks if the string is a valid HH:MM or HH:MM:SS time.
func ValidateTimeFormat(timeStr string) bool {
	_, err := ParseTimeOfDay(timeStr)
	return err == nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}
