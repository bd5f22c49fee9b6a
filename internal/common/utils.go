package common

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by the upstream APIs and in CSV tables.
const DateLayout = "2006-01-02"

// HasAny returns true if s contains any of the substrings, ignoring case.
func HasAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// TruncateDay returns midnight UTC of t's UTC calendar date.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TrailingWindow returns the inclusive [start, end] date range covering the
// given number of days ending at end.
func TrailingWindow(end time.Time, days int) (time.Time, time.Time) {
	end = TruncateDay(end)
	return end.AddDate(0, 0, -days), end
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// NormalizeCity trims and lowercases a city name for use as a map key.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}
