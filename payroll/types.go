/*
Package payroll provides the payroll computation engine.

PURPOSE:
  Turns raw attendance timestamps into classified, monetized pay buckets,
  reconciles them against the weekly 48-hour threshold, allocates capped
  wage garnishments, and converts the result between CRC and USD.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An amount with a currency (CRC or USD)
  - AttendanceRow / AttendanceInterval / MergedBlock: clock data at each stage
  - DayClassification: one day's regular/premium/double split
  - PayBucketTotals: period-wide hour buckets after weekly reallocation
  - CompensationSource / GarnishmentOrder / DeductionResult

DESIGN PRINCIPLES:
  1. Stateless: every value here is built fresh per computation
  2. Precision: hours and money use decimal.Decimal, rounded to 2 places
     only where a figure is reported
  3. Inputs are never mutated; each stage derives new values

SEE ALSO:
  - engine.go: The pipeline wiring all stages together
  - policy.go: PayrollPolicy, the explicit settings value object
  - source.go: Read contract for the external data the engine needs
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Amount with currency
// =============================================================================

type Currency string

const (
	CRC Currency = "CRC"
	USD Currency = "USD"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool { return c == CRC || c == USD }

type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

func CRCAmount(amount decimal.Decimal) Money { return Money{Amount: amount, Currency: CRC} }


// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type GarnishmentID string

// =============================================================================
// ATTENDANCE - Raw rows, parsed intervals, merged blocks
// =============================================================================

// AttendanceRow is one clock record as delivered by a Source. Times are kept
// as raw strings because upstream systems disagree on formats; ParseClock
// normalizes them. An empty CheckOut means the shift is still in progress.
type AttendanceRow struct {
	EmployeeID EmployeeID
	Date       Date
	CheckIn    string
	CheckOut   string
}

// AttendanceInterval is a parsed clock-in/clock-out pair.
type AttendanceInterval struct {
	EmployeeID EmployeeID
	Date       Date
	Start      time.Time
	End        time.Time
}

// MergedBlock is a non-overlapping worked span within one date.
type MergedBlock struct {
	Date  Date
	Start time.Time
	End   time.Time
}

func (b MergedBlock) Duration() time.Duration { return b.End.Sub(b.Start) }

// =============================================================================
// SICK LEAVE
// =============================================================================

type SickAdjustment string

const (
	SickNone SickAdjustment = "none"
	SickHalf SickAdjustment = "half"
	SickZero SickAdjustment = "zero"
)

// SickLeave is an approved sick-leave range for one employee.
type SickLeave struct {
	ID         string
	EmployeeID EmployeeID
	Start      Date
	End        Date
	Adjustment SickAdjustment
}

// =============================================================================
// DAY CLASSIFICATION
// =============================================================================

// DayClassification is the per-day output of the classifier. The buckets sum
// to the hours paid for the day, which exceeds EffectiveWorkedHours only for
// a paid holiday that was not worked.
type DayClassification struct {
	Date                 Date
	Weekday              int // ISO 1..7
	IsHoliday            bool
	IsSunday             bool
	SickAdjustment       SickAdjustment
	ExpectedShiftHours   decimal.Decimal
	RawWorkedHours       decimal.Decimal
	EffectiveWorkedHours decimal.Decimal
	RegularHours         decimal.Decimal
	PremiumHours         decimal.Decimal
	DoubleHours          decimal.Decimal
	HolidayPaidNotWorked bool
	Blocks               []MergedBlock
}

// PaidHours is regular+premium+double for the day.
func (d DayClassification) PaidHours() decimal.Decimal {
	return d.RegularHours.Add(d.PremiumHours).Add(d.DoubleHours)
}

// WeeklyEligible reports whether the day counts toward the weekly cap.
func (d DayClassification) WeeklyEligible() bool {
	return d.EffectiveWorkedHours.IsPositive() && !d.IsSunday && !d.IsHoliday
}

// =============================================================================
// BUCKETS
// =============================================================================

// PayBucketTotals holds period-wide hours per pay multiplier.
type PayBucketTotals struct {
	Regular decimal.Decimal
	Premium decimal.Decimal
	Double  decimal.Decimal
}

func (b PayBucketTotals) Total() decimal.Decimal {
	return b.Regular.Add(b.Premium).Add(b.Double)
}

// SickCounts tallies sick days that affect pay outside the hour buckets.
type SickCounts struct {
	HalfPayDays int
	ZeroPayDays int
}

// =============================================================================
// COMPENSATION
// =============================================================================

type CompensationType string

const (
	CompensationPosition CompensationType = "position"
	CompensationOverride CompensationType = "employee_override"
)

type SalaryType string

const (
	SalaryMonthly SalaryType = "monthly"
	SalaryHourly  SalaryType = "hourly"
)

// CompensationSource is a salary definition attached to a position or to the
// employee directly.
type CompensationSource struct {
	Type       CompensationType
	SalaryType SalaryType
	Amount     decimal.Decimal
	Currency   Currency
}

// EmployeeCompensation bundles everything the engine needs about an employee's
// pay. Override takes precedence over Position.
type EmployeeCompensation struct {
	EmployeeID      EmployeeID
	Position        *CompensationSource
	Override        *CompensationSource
	GarnishCapRate  *decimal.Decimal
	DisplayCurrency Currency
}

// =============================================================================
// GARNISHMENTS
// =============================================================================

type GarnishmentMode string

const (
	GarnishPercent GarnishmentMode = "percent"
	GarnishAmount  GarnishmentMode = "amount"
)

type GarnishmentOrder struct {
	ID         GarnishmentID
	EmployeeID EmployeeID
	Mode       GarnishmentMode
	Value      decimal.Decimal
	Priority   int
	Active     bool
	Start      Date
	End        *Date // nil = open-ended
}

// DeductionResult is the outcome for one garnishment order.
type DeductionResult struct {
	GarnishmentID GarnishmentID
	Requested     decimal.Decimal
	Applied       decimal.Decimal
	Capped        bool
}

// =============================================================================
// EXCHANGE RATE
// =============================================================================

// ExchangeRate is CRC per USD effective from a date.
type ExchangeRate struct {
	EffectiveDate Date
	CRCPerUSD     decimal.Decimal
}
