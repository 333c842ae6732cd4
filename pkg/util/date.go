package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthEndRule selects where the first generated month-end lands relative to a cutoff date.
type MonthEndRule string

const (
	// RollForward puts the first date on the first month-end on or after cutoff+1 day.
	RollForward MonthEndRule = "rollforward"
	// NextMonth puts the first date on the end of the month after the cutoff's month.
	NextMonth MonthEndRule = "next_month"
)

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
}

// ParseDate parses a calendar date in one of the common CSV layouts, or unix seconds.
// The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.Trim(s, "\""))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	if t, ok := ParseTime(s); ok {
		return Day(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last calendar day of t's month.
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	// day 0 of the next month is the last day of this one
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// IsMonthEnd reports whether t falls on the last day of its month.
func IsMonthEnd(t time.Time) bool {
	return Day(t).Equal(MonthEnd(t))
}

// AddMonthEnds steps n month-ends forward from a month-end date.
func AddMonthEnds(monthEnd time.Time, n int) time.Time {
	y, m, _ := monthEnd.Date()
	return time.Date(y, m+time.Month(n)+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthEnds generates n successive month-end dates following cutoff.
// Every generated date is strictly after cutoff regardless of rule.
func MonthEnds(cutoff time.Time, n int, rule MonthEndRule) []time.Time {
	if n <= 0 {
		return nil
	}
	cutoff = Day(cutoff)

	var first time.Time
	switch rule {
	case NextMonth:
		first = AddMonthEnds(MonthEnd(cutoff), 1)
	default:
		first = MonthEnd(cutoff.AddDate(0, 0, 1))
	}

	out := make([]time.Time, n)
	for i := range out {
		out[i] = AddMonthEnds(first, i)
	}
	return out
}

// ParseMonthEndRule normalizes a configured rule name; empty means RollForward.
func ParseMonthEndRule(s string) (MonthEndRule, error) {
	switch MonthEndRule(strings.ToLower(strings.TrimSpace(s))) {
	case "", RollForward:
		return RollForward, nil
	case NextMonth:
		return NextMonth, nil
	default:
		return "", fmt.Errorf("unknown month-end rule %q", s)
	}
}
