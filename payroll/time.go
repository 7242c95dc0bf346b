package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (UTC midnight)
// =============================================================================

// Date is a calendar day. The zero value is not a valid date.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Comparison
func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) IsZero() bool              { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Date) ISOWeekday() int {
	wd := int(d.Time.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func (d Date) IsSunday() bool { return d.Time.Weekday() == time.Sunday }

// At anchors a wall-clock time to this date.
func (d Date) At(hour, min, sec int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, sec, 0, time.UTC)
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// ISOWeek returns the ISO week key containing d.
func (d Date) ISOWeek() WeekKey {
	y, w := d.Time.ISOWeek()
	return WeekKey{Year: y, Week: w}
}

func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return StartOfMonth(year, month).AddMonths(1).AddDays(-1)
}

// =============================================================================
// WEEK KEY
// =============================================================================

// WeekKey identifies an ISO week.
type WeekKey struct {
	Year int
	Week int
}

func (k WeekKey) Less(o WeekKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Week < o.Week
}

func (k WeekKey) String() string { return fmt.Sprintf("%d-W%02d", k.Year, k.Week) }
