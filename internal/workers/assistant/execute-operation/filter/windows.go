// Package filter evaluates operation filters against documents in memory.
package filter

import (
	"time"
)

const (
	WindowToday      = "today"
	WindowYesterday  = "yesterday"
	WindowThisWeek   = "this_week"
	WindowLastWeek   = "last_week"
	WindowLast7Days  = "last_7_days"
	WindowThisMonth  = "this_month"
	WindowLastMonth  = "last_month"
	WindowLast30Days = "last_30_days"
	WindowThisYear   = "this_year"
)

var windowOrder = []string{
	WindowToday, WindowYesterday, WindowThisWeek, WindowLastWeek, WindowLast7Days,
	WindowThisMonth, WindowLastMonth, WindowLast30Days, WindowThisYear,
}

func WindowNames() []string {
	out := make([]string, len(windowOrder))
	copy(out, windowOrder)
	return out
}

func IsWindow(name string) bool {
	for _, w := range windowOrder {
		if w == name {
			return true
		}
	}
	return false
}

// Window returns the half-open interval [start, end) for a relative window,
// evaluated at day granularity in loc. Weeks start on Monday.
func Window(name string, now time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	weekday := int(today.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := today.AddDate(0, 0, -(weekday - 1))
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	switch name {
	case WindowToday:
		return today, tomorrow, true
	case WindowYesterday:
		return today.AddDate(0, 0, -1), today, true
	case WindowThisWeek:
		return monday, monday.AddDate(0, 0, 7), true
	case WindowLastWeek:
		return monday.AddDate(0, 0, -7), monday, true
	case WindowLast7Days:
		return today.AddDate(0, 0, -6), tomorrow, true
	case WindowThisMonth:
		return firstOfMonth, firstOfMonth.AddDate(0, 1, 0), true
	case WindowLastMonth:
		return firstOfMonth.AddDate(0, -1, 0), firstOfMonth, true
	case WindowLast30Days:
		return today.AddDate(0, 0, -29), tomorrow, true
	case WindowThisYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), true
	}

	// A calendar date selects that single day.
	if day, err := time.ParseInLocation("2006-01-02", name, loc); err == nil {
		return day, day.AddDate(0, 0, 1), true
	}
	return time.Time{}, time.Time{}, false
}

// Label renders a window for reply text, e.g. "this_week" -> "this week".
func Label(name string) string {
	switch name {
	case "":
		return ""
	case WindowLast7Days:
		return "in the last 7 days"
	case WindowLast30Days:
		return "in the last 30 days"
	}
	out := []byte(name)
	for i, c := range out {
		if c == '_' {
			out[i] = ' '
		}
	}
	if IsWindow(name) {
		return string(out)
	}
	return "on " + string(out)
}
