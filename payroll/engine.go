/*
engine.go - The payroll computation pipeline

PURPOSE:
  Wires the stages together for one employee and one period:

    parse -> merge -> classify -> reallocate -> rate -> compose
          -> allocate -> normalize

  Stages run in order; each consumes the previous one's output.

ERROR POLICY:
  Record anomalies (unparseable timestamps, end not after start) are
  dropped and reported in Statement.Anomalies. Employee anomalies (no
  compensation, missing exchange rate, unknown garnishment mode) abort
  and return an error wrapping the matching sentinel.

SEE ALSO:
  - service.go: Fetches Input from a Source
  - errors.go:  Sentinel and structured errors
*/
package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Engine computes statements under a fixed policy. Safe for concurrent use.
type Engine struct {
	Policy PayrollPolicy
}

func NewEngine(policy PayrollPolicy) *Engine {
	return &Engine{Policy: policy}
}

// Input is everything fetched for one computation.
type Input struct {
	EmployeeID   EmployeeID
	Period       Period
	Attendance   []AttendanceRow
	Holidays     []Date
	SickLeaves   []SickLeave
	Compensation EmployeeCompensation
	Garnishments []GarnishmentOrder
	ExchangeRate *ExchangeRate
}

// Statement is the full computation result. All amounts are CRC except the
// Display view.
type Statement struct {
	EmployeeID EmployeeID
	Period     Period

	Days          []DayClassification
	Weeks         []WeekAggregate
	BucketsBefore PayBucketTotals
	Buckets       PayBucketTotals
	Sick          SickCounts

	Rate     Rate
	Earnings []EarningLine
	Gross    decimal.Decimal

	CapRate       decimal.Decimal
	CapAmount     decimal.Decimal
	Deductions    []DeductionResult
	TotalDeducted decimal.Decimal
	Net           decimal.Decimal

	ExchangeRate         *ExchangeRate
	ExchangeRateFallback bool
	Display              DisplayView

	Anomalies     []Anomaly
	OpenIntervals int
}

// DisplayView repeats the money totals in the employee's display currency.
type DisplayView struct {
	Currency      Currency
	HourlyRate    decimal.Decimal
	Gross         decimal.Decimal
	TotalDeducted decimal.Decimal
	Net           decimal.Decimal
}

// Compute runs the pipeline.
func (e *Engine) Compute(in Input) (*Statement, error) {
	if err := in.Period.Validate(); err != nil {
		return nil, err
	}

	st := &Statement{EmployeeID: in.EmployeeID, Period: in.Period}

	// 1. Parse and merge
	intervals := e.parseAttendance(in, st)
	blocksByDate := make(map[string][]MergedBlock)
	for date, ivs := range intervals {
		blocksByDate[date] = MergeIntervals(ivs)
	}

	// 2. Classify every date of the period
	index := NewHolidaySickIndex(in.Holidays, in.SickLeaves, in.Period)
	for _, d := range in.Period.Days() {
		st.Days = append(st.Days, ClassifyDay(DayInput{
			Date:           d,
			Blocks:         blocksByDate[d.String()],
			IsHoliday:      index.IsHoliday(d),
			SickAdjustment: index.SickAdjustment(d),
		}, e.Policy))
	}
	st.Sick = CountSickDays(st.Days)

	// 3. Weekly 48h rule
	weekly := ReallocateWeekly(st.Days, e.Policy)
	st.Weeks = weekly.Weeks
	st.BucketsBefore = weekly.Before
	st.Buckets = weekly.After

	// 4. Rate
	fx := NewNormalizer(in.ExchangeRate, e.Policy.ExchangeRateFallback)
	st.ExchangeRate = fx.Rate()
	rate, err := ResolveRate(in.Compensation, fx, e.Policy)
	if err != nil {
		return nil, err
	}
	st.Rate = rate

	// 5. Gross
	earnings := ComposePay(st.Buckets, rate, st.Sick, e.Policy)
	st.Earnings = earnings.Lines
	st.Gross = earnings.Gross

	// 6. Garnishments
	capRate := e.Policy.DefaultGarnishRate
	if in.Compensation.GarnishCapRate != nil {
		capRate = *in.Compensation.GarnishCapRate
	}
	alloc, err := AllocateGarnishments(st.Gross, capRate, in.Garnishments, in.Period)
	if err != nil {
		return nil, fmt.Errorf("allocate garnishments for %s: %w", in.EmployeeID, err)
	}
	st.CapRate = alloc.CapRate
	st.CapAmount = alloc.CapAmount
	st.Deductions = alloc.Results
	st.TotalDeducted = alloc.TotalDeducted
	st.Net = alloc.Net

	// 7. Display currency
	display, err := e.display(in.Compensation.DisplayCurrency, st, fx)
	if err != nil {
		return nil, fmt.Errorf("normalize statement for %s: %w", in.EmployeeID, err)
	}
	st.Display = display
	st.ExchangeRateFallback = fx.UsedFallback()

	return st, nil
}

// parseAttendance turns raw rows into intervals grouped by date. Rows outside
// the period are ignored.
func (e *Engine) parseAttendance(in Input, st *Statement) map[string][]AttendanceInterval {
	out := make(map[string][]AttendanceInterval)
	for _, row := range in.Attendance {
		if !in.Period.Contains(row.Date) {
			continue
		}
		if row.CheckOut == "" {
			st.OpenIntervals++
			continue
		}

		start, err := ParseClock(row.Date, row.CheckIn, e.Policy.Location)
		if err != nil {
			st.Anomalies = append(st.Anomalies, Anomaly{Date: row.Date, Reason: "check-in", Err: err})
			continue
		}
		end, err := ParseClock(row.Date, row.CheckOut, e.Policy.Location)
		if err != nil {
			st.Anomalies = append(st.Anomalies, Anomaly{Date: row.Date, Reason: "check-out", Err: err})
			continue
		}
		if !end.After(start) {
			st.Anomalies = append(st.Anomalies, Anomaly{
				Date:   row.Date,
				Reason: "interval",
				Err:    &IntervalError{EmployeeID: row.EmployeeID, Date: row.Date, Start: start, End: end},
			})
			continue
		}

		key := row.Date.String()
		out[key] = append(out[key], AttendanceInterval{
			EmployeeID: row.EmployeeID,
			Date:       row.Date,
			Start:      start,
			End:        end,
		})
	}
	return out
}

func (e *Engine) display(target Currency, st *Statement, fx *Normalizer) (DisplayView, error) {
	if target == "" {
		target = CRC
	}
	view := DisplayView{Currency: target}
	fields := []struct {
		dst *decimal.Decimal
		crc decimal.Decimal
	}{
		{&view.HourlyRate, st.Rate.Hourly},
		{&view.Gross, st.Gross},
		{&view.TotalDeducted, st.TotalDeducted},
		{&view.Net, st.Net},
	}
	for _, f := range fields {
		m, err := fx.FromCRC(f.crc, target)
		if err != nil {
			return DisplayView{}, err
		}
		*f.dst = m.Amount
	}
	return view, nil
}

// AnomalyErrors returns the anomalies as a joined error, or nil.
func (s *Statement) AnomalyErrors() error {
	errs := make([]error, 0, len(s.Anomalies))
	for _, a := range s.Anomalies {
		errs = append(errs, fmt.Errorf("%s %s: %w", a.Date, a.Reason, a.Err))
	}
	return errors.Join(errs...)
}
