package payroll

import (
	"strings"
	"time"
)

// Accepted layouts, tried in order. Date-bearing layouts come first so a full
// timestamp is never read as a bare clock time.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
}

// ParseClock parses a check-in/check-out value. Clock-only values are anchored
// to date and, like timestamps without an offset, read as wall time in loc
// (UTC when nil). Timestamps with an offset keep their instant. The result is
// always UTC.
func ParseClock(date Date, raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &TimeParseError{Raw: raw}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	// Meridiem markers are matched case-insensitively.
	upper := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).UTC(), nil
		}
	}
	return time.Time{}, &TimeParseError{Raw: raw}
}

// ParseDate parses a calendar date in one of the accepted layouts.
func ParseDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, &TimeParseError{Raw: raw}
}
