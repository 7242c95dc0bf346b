/*
classify.go - Daily hour classification

PURPOSE:
  Splits one day's worked hours into regular (1x), premium (1.5x) and
  double (2x) buckets.

RULES (in precedence order):
  1. Zero-pay sick day:  worked hours are forced to 0, day is unpaid
  2. Half-pay sick day:  hours pass through; the day is counted for the
                         separate half-day-rate line (compose.go)
  3. Worked > 0:
       Sunday or holiday -> everything to double
       otherwise         -> regular up to the daily threshold, rest premium
  4. Worked == 0:
       holiday with no sick leave -> expected shift hours paid as regular
       otherwise                  -> nothing

SEE ALSO:
  - weekly.go: Consumes the per-day records for the 48h rule
*/
package payroll

import "github.com/shopspring/decimal"

// DayInput is everything the classifier needs for one date.
type DayInput struct {
	Date           Date
	Blocks         []MergedBlock
	IsHoliday      bool
	SickAdjustment SickAdjustment
}

// ClassifyDay applies the daily rules to one date.
func ClassifyDay(in DayInput, policy PayrollPolicy) DayClassification {
	raw := BlockHours(in.Blocks)
	adj := in.SickAdjustment
	if adj == "" {
		adj = SickNone
	}

	day := DayClassification{
		Date:               in.Date,
		Weekday:            in.Date.ISOWeekday(),
		IsHoliday:          in.IsHoliday,
		IsSunday:           in.Date.IsSunday(),
		SickAdjustment:     adj,
		ExpectedShiftHours: policy.ExpectedShiftHours(in.Date),
		RawWorkedHours:     raw,
		Blocks:             in.Blocks,
		RegularHours:       decimal.Zero,
		PremiumHours:       decimal.Zero,
		DoubleHours:        decimal.Zero,
	}

	worked := raw
	if adj == SickZero {
		worked = decimal.Zero
	}
	day.EffectiveWorkedHours = worked

	switch {
	case worked.IsPositive() && (day.IsSunday || day.IsHoliday):
		day.DoubleHours = worked

	case worked.IsPositive():
		day.RegularHours = minDecimal(worked, policy.DailyRegularThreshold)
		day.PremiumHours = maxDecimal(decimal.Zero, worked.Sub(policy.DailyRegularThreshold))

	case day.IsHoliday && adj == SickNone:
		day.RegularHours = day.ExpectedShiftHours
		day.HolidayPaidNotWorked = day.ExpectedShiftHours.IsPositive()
	}

	return day
}

// CountSickDays tallies half- and zero-pay sick days across classified days.
func CountSickDays(days []DayClassification) SickCounts {
	var c SickCounts
	for _, d := range days {
		switch d.SickAdjustment {
		case SickHalf:
			c.HalfPayDays++
		case SickZero:
			c.ZeroPayDays++
		}
	}
	return c
}
