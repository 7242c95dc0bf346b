package payroll

import "fmt"

// =============================================================================
// PERIOD - Inclusive date range a statement covers
// =============================================================================

// MaxPeriodDays bounds the length of a computation period.
const MaxPeriodDays = 366

// Period is the inclusive range [Start, End] of one computation.
type Period struct {
	Start Date
	End   Date
}

func NewPeriod(start, end Date) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidPeriod)
	}
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	if n := DaysBetween(p.Start, p.End) + 1; n > MaxPeriodDays {
		return fmt.Errorf("%w: %d days exceeds the maximum of %d", ErrInvalidPeriod, n, MaxPeriodDays)
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Intersects reports whether [start, end] overlaps the period. A nil end is
// open-ended.
func (p Period) Intersects(start Date, end *Date) bool {
	if start.After(p.End) {
		return false
	}
	if end != nil && end.Before(p.Start) {
		return false
	}
	return true
}

// Days returns every date in the period in order.
func (p Period) Days() []Date {
	var days []Date
	for d := p.Start; d.BeforeOrEqual(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Next returns the period of equal length following this one.
func (p Period) Next() Period {
	n := DaysBetween(p.Start, p.End)
	start := p.End.AddDays(1)
	return Period{Start: start, End: start.AddDays(n)}
}

// Previous returns the period of equal length before this one.
func (p Period) Previous() Period {
	n := DaysBetween(p.Start, p.End)
	end := p.Start.AddDays(-1)
	return Period{Start: end.AddDays(-n), End: end}
}

// =============================================================================
// PAY PERIOD CONFIG - Determines which pay period a date falls into
// =============================================================================

type PayPeriodType string

const (
	PayPeriodWeekly      PayPeriodType = "weekly"
	PayPeriodBiweekly    PayPeriodType = "biweekly"
	PayPeriodSemiMonthly PayPeriodType = "semimonthly"
	PayPeriodMonthly     PayPeriodType = "monthly"
)

// PayPeriodConfig defines how pay periods are laid out on the calendar.
type PayPeriodConfig struct {
	Type PayPeriodType

	// Anchor is the first day of any weekly/biweekly period.
	Anchor Date
}

// PeriodFor returns the pay period that contains date.
func (pc PayPeriodConfig) PeriodFor(date Date) Period {
	switch pc.Type {
	case PayPeriodWeekly:
		return pc.cyclePeriod(date, 7)

	case PayPeriodBiweekly:
		return pc.cyclePeriod(date, 14)

	case PayPeriodSemiMonthly:
		if date.Day() <= 15 {
			return Period{Start: StartOfMonth(date.Year(), date.Month()), End: NewDate(date.Year(), date.Month(), 15)}
		}
		return Period{Start: NewDate(date.Year(), date.Month(), 16), End: EndOfMonth(date.Year(), date.Month())}

	default:
		return Period{Start: StartOfMonth(date.Year(), date.Month()), End: EndOfMonth(date.Year(), date.Month())}
	}
}

// PreviousPeriod returns the pay period immediately before the one that
// contains date.
func (pc PayPeriodConfig) PreviousPeriod(date Date) Period {
	current := pc.PeriodFor(date)
	return pc.PeriodFor(current.Start.AddDays(-1))
}

func (pc PayPeriodConfig) cyclePeriod(date Date, length int) Period {
	anchor := pc.Anchor
	if anchor.IsZero() {
		// 2024-01-01 is a Monday.
		anchor = NewDate(2024, 1, 1)
	}
	offset := DaysBetween(anchor, date) % length
	if offset < 0 {
		offset += length
	}
	start := date.AddDays(-offset)
	return Period{Start: start, End: start.AddDays(length - 1)}
}
