/*
policy.go - PayrollPolicy, the explicit settings value object

PURPOSE:
  Every tunable number the engine uses lives here and is passed into each
  computation. Nothing reads settings from ambient or global state.

DEFAULTS:
  Shift hours:          Mon-Thu 10h, Fri 8h, Sat/Sun 0h
  Daily threshold:      8h regular, beyond that premium (1.5x)
  Weekly cap:           48h of regular+premium on ordinary days
  Monthly conversion:   26 working days x 8h
  Sick half fraction:   0.5 of the day rate
  Garnishment cap:      0.5 of gross when the employee has no override
  Exchange rate:        reject when missing (no silent 1.0 fallback)
  Location:             UTC for clock-only attendance values

SEE ALSO:
  - factory/policy.go: JSON representation stored in the settings row
*/
package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FallbackMode decides what happens when a conversion has no exchange rate.
type FallbackMode string

const (
	// FallbackReject fails the computation with ErrMissingExchangeRate.
	FallbackReject FallbackMode = "reject"

	// FallbackNeutral converts at 1.0 and flags the statement. Known to
	// produce wrong figures; only for integrations that require it.
	FallbackNeutral FallbackMode = "neutral"
)

type PayrollPolicy struct {
	// ShiftHours is indexed by ISO weekday (1=Mon .. 7=Sun); index 0 unused.
	ShiftHours [8]decimal.Decimal

	DailyRegularThreshold decimal.Decimal
	WeeklyRegularCap      decimal.Decimal

	WorkingDaysPerMonth decimal.Decimal
	WorkdayHours        decimal.Decimal

	PremiumMultiplier  decimal.Decimal
	DoubleMultiplier   decimal.Decimal
	SickHalfFraction   decimal.Decimal
	DefaultGarnishRate decimal.Decimal

	ExchangeRateFallback FallbackMode
	PayPeriod            PayPeriodConfig

	// Location is where attendance clocks run. Clock-only values and
	// timestamps without an offset are read in it. Nil means UTC.
	Location *time.Location
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() PayrollPolicy {
	ten := decimal.NewFromInt(10)
	eight := decimal.NewFromInt(8)
	return PayrollPolicy{
		ShiftHours: [8]decimal.Decimal{
			decimal.Zero,
			ten, ten, ten, ten, // Mon-Thu
			eight,        // Fri
			decimal.Zero, // Sat
			decimal.Zero, // Sun
		},
		DailyRegularThreshold: eight,
		WeeklyRegularCap:      decimal.NewFromInt(48),
		WorkingDaysPerMonth:   decimal.NewFromInt(26),
		WorkdayHours:          eight,
		PremiumMultiplier:     decimal.RequireFromString("1.5"),
		DoubleMultiplier:      decimal.NewFromInt(2),
		SickHalfFraction:      decimal.RequireFromString("0.5"),
		DefaultGarnishRate:    decimal.RequireFromString("0.5"),
		ExchangeRateFallback:  FallbackReject,
		PayPeriod:             PayPeriodConfig{Type: PayPeriodMonthly},
	}
}

// ExpectedShiftHours returns the scheduled hours for d's weekday.
func (p PayrollPolicy) ExpectedShiftHours(d Date) decimal.Decimal {
	return p.ShiftHours[d.ISOWeekday()]
}

func (p PayrollPolicy) Validate() error {
	for wd := 1; wd <= 7; wd++ {
		if p.ShiftHours[wd].IsNegative() || p.ShiftHours[wd].GreaterThan(decimal.NewFromInt(24)) {
			return fmt.Errorf("%w: shift hours for weekday %d out of range", ErrInvalidPolicy, wd)
		}
	}
	if !p.DailyRegularThreshold.IsPositive() {
		return fmt.Errorf("%w: daily regular threshold must be positive", ErrInvalidPolicy)
	}
	if !p.WeeklyRegularCap.IsPositive() {
		return fmt.Errorf("%w: weekly cap must be positive", ErrInvalidPolicy)
	}
	if !p.WorkingDaysPerMonth.IsPositive() || !p.WorkdayHours.IsPositive() {
		return fmt.Errorf("%w: working days and workday hours must be positive", ErrInvalidPolicy)
	}
	if p.PremiumMultiplier.LessThan(decimal.NewFromInt(1)) || p.DoubleMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: multipliers must be at least 1", ErrInvalidPolicy)
	}
	if p.SickHalfFraction.IsNegative() || p.SickHalfFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: sick fraction must be within [0,1]", ErrInvalidPolicy)
	}
	if p.DefaultGarnishRate.IsNegative() || p.DefaultGarnishRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: garnishment cap rate must be within [0,1]", ErrInvalidPolicy)
	}
	switch p.ExchangeRateFallback {
	case FallbackReject, FallbackNeutral:
	default:
		return fmt.Errorf("%w: unknown exchange rate fallback %q", ErrInvalidPolicy, p.ExchangeRateFallback)
	}
	switch p.PayPeriod.Type {
	case PayPeriodWeekly, PayPeriodBiweekly, PayPeriodSemiMonthly, PayPeriodMonthly:
	default:
		return fmt.Errorf("%w: unknown pay period type %q", ErrInvalidPolicy, p.PayPeriod.Type)
	}
	return nil
}
