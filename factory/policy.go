/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts the JSON settings document into a payroll.PayrollPolicy. The
  settings row in storage holds this JSON; the API reads and writes it.
  Payroll admins can change thresholds and multipliers without a deploy.

JSON SCHEMA (every field optional, missing fields take the defaults):
  {
    "shift_hours": {"mon": 10, "tue": 10, "wed": 10, "thu": 10,
                    "fri": 8, "sat": 0, "sun": 0},
    "daily_regular_threshold": 8,
    "weekly_regular_cap": 48,
    "working_days_per_month": 26,
    "workday_hours": 8,
    "premium_multiplier": 1.5,
    "double_multiplier": 2,
    "sick_half_fraction": 0.5,
    "default_garnish_rate": 0.5,
    "exchange_rate_fallback": "reject",
    "pay_period": {"type": "monthly", "anchor": "2024-01-01"},
    "time_zone": "America/Costa_Rica"
  }

USAGE:
  f := NewPolicyFactory()
  policy, err := f.ParsePolicy(jsonString)

SEE ALSO:
  - payroll/policy.go: PayrollPolicy and its defaults
  - store/sqlite/sqlite.go: settings table
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"
	_ "time/tzdata" // zone names resolve without system zoneinfo

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a payroll policy.
type PolicyJSON struct {
	ShiftHours            *ShiftHoursJSON  `json:"shift_hours,omitempty"`
	DailyRegularThreshold *decimal.Decimal `json:"daily_regular_threshold,omitempty"`
	WeeklyRegularCap      *decimal.Decimal `json:"weekly_regular_cap,omitempty"`
	WorkingDaysPerMonth   *decimal.Decimal `json:"working_days_per_month,omitempty"`
	WorkdayHours          *decimal.Decimal `json:"workday_hours,omitempty"`
	PremiumMultiplier     *decimal.Decimal `json:"premium_multiplier,omitempty"`
	DoubleMultiplier      *decimal.Decimal `json:"double_multiplier,omitempty"`
	SickHalfFraction      *decimal.Decimal `json:"sick_half_fraction,omitempty"`
	DefaultGarnishRate    *decimal.Decimal `json:"default_garnish_rate,omitempty"`
	ExchangeRateFallback  string           `json:"exchange_rate_fallback,omitempty"` // reject, neutral
	PayPeriod             *PayPeriodJSON   `json:"pay_period,omitempty"`
	TimeZone              string           `json:"time_zone,omitempty"` // IANA name, UTC when empty
}

// ShiftHoursJSON holds expected shift hours per weekday.
type ShiftHoursJSON struct {
	Mon *decimal.Decimal `json:"mon,omitempty"`
	Tue *decimal.Decimal `json:"tue,omitempty"`
	Wed *decimal.Decimal `json:"wed,omitempty"`
	Thu *decimal.Decimal `json:"thu,omitempty"`
	Fri *decimal.Decimal `json:"fri,omitempty"`
	Sat *decimal.Decimal `json:"sat,omitempty"`
	Sun *decimal.Decimal `json:"sun,omitempty"`
}

// PayPeriodJSON represents the pay period layout.
type PayPeriodJSON struct {
	Type   string `json:"type"`             // weekly, biweekly, semimonthly, monthly
	Anchor string `json:"anchor,omitempty"` // YYYY-MM-DD, weekly/biweekly only
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON string into a validated PayrollPolicy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (payroll.PayrollPolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return payroll.PayrollPolicy{}, fmt.Errorf("%w: failed to parse policy JSON: %v", payroll.ErrInvalidPolicy, err)
	}
	return f.FromJSON(pj)
}

// FromJSON overlays pj on the default policy and validates the result.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (payroll.PayrollPolicy, error) {
	p := payroll.DefaultPolicy()

	if sh := pj.ShiftHours; sh != nil {
		for wd, v := range []*decimal.Decimal{sh.Mon, sh.Tue, sh.Wed, sh.Thu, sh.Fri, sh.Sat, sh.Sun} {
			if v != nil {
				p.ShiftHours[wd+1] = *v
			}
		}
	}

	overlay(&p.DailyRegularThreshold, pj.DailyRegularThreshold)
	overlay(&p.WeeklyRegularCap, pj.WeeklyRegularCap)
	overlay(&p.WorkingDaysPerMonth, pj.WorkingDaysPerMonth)
	overlay(&p.WorkdayHours, pj.WorkdayHours)
	overlay(&p.PremiumMultiplier, pj.PremiumMultiplier)
	overlay(&p.DoubleMultiplier, pj.DoubleMultiplier)
	overlay(&p.SickHalfFraction, pj.SickHalfFraction)
	overlay(&p.DefaultGarnishRate, pj.DefaultGarnishRate)

	if pj.ExchangeRateFallback != "" {
		p.ExchangeRateFallback = payroll.FallbackMode(pj.ExchangeRateFallback)
	}

	if pj.PayPeriod != nil {
		pc, err := parsePayPeriod(*pj.PayPeriod)
		if err != nil {
			return payroll.PayrollPolicy{}, err
		}
		p.PayPeriod = pc
	}

	if pj.TimeZone != "" {
		loc, err := time.LoadLocation(pj.TimeZone)
		if err != nil {
			return payroll.PayrollPolicy{}, fmt.Errorf("%w: time zone %q: %v", payroll.ErrInvalidPolicy, pj.TimeZone, err)
		}
		p.Location = loc
	}

	if err := p.Validate(); err != nil {
		return payroll.PayrollPolicy{}, err
	}
	return p, nil
}

// ToJSON converts a PayrollPolicy to its full JSON form.
func (f *PolicyFactory) ToJSON(p payroll.PayrollPolicy) PolicyJSON {
	ptr := func(d decimal.Decimal) *decimal.Decimal { return &d }

	pj := PolicyJSON{
		ShiftHours: &ShiftHoursJSON{
			Mon: ptr(p.ShiftHours[1]),
			Tue: ptr(p.ShiftHours[2]),
			Wed: ptr(p.ShiftHours[3]),
			Thu: ptr(p.ShiftHours[4]),
			Fri: ptr(p.ShiftHours[5]),
			Sat: ptr(p.ShiftHours[6]),
			Sun: ptr(p.ShiftHours[7]),
		},
		DailyRegularThreshold: ptr(p.DailyRegularThreshold),
		WeeklyRegularCap:      ptr(p.WeeklyRegularCap),
		WorkingDaysPerMonth:   ptr(p.WorkingDaysPerMonth),
		WorkdayHours:          ptr(p.WorkdayHours),
		PremiumMultiplier:     ptr(p.PremiumMultiplier),
		DoubleMultiplier:      ptr(p.DoubleMultiplier),
		SickHalfFraction:      ptr(p.SickHalfFraction),
		DefaultGarnishRate:    ptr(p.DefaultGarnishRate),
		ExchangeRateFallback:  string(p.ExchangeRateFallback),
		PayPeriod:             &PayPeriodJSON{Type: string(p.PayPeriod.Type)},
	}
	if !p.PayPeriod.Anchor.IsZero() {
		pj.PayPeriod.Anchor = p.PayPeriod.Anchor.String()
	}
	if p.Location != nil {
		pj.TimeZone = p.Location.String()
	}
	return pj
}

// Marshal renders a policy as the JSON stored in the settings row.
func (f *PolicyFactory) Marshal(p payroll.PayrollPolicy) (string, error) {
	b, err := json.Marshal(f.ToJSON(p))
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy: %w", err)
	}
	return string(b), nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func overlay(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

func parsePayPeriod(pj PayPeriodJSON) (payroll.PayPeriodConfig, error) {
	pc := payroll.PayPeriodConfig{}
	switch pj.Type {
	case "weekly":
		pc.Type = payroll.PayPeriodWeekly
	case "biweekly":
		pc.Type = payroll.PayPeriodBiweekly
	case "semimonthly":
		pc.Type = payroll.PayPeriodSemiMonthly
	case "monthly", "":
		pc.Type = payroll.PayPeriodMonthly
	default:
		return pc, fmt.Errorf("%w: unknown pay period type %q", payroll.ErrInvalidPolicy, pj.Type)
	}
	if pj.Anchor != "" {
		anchor, err := payroll.ParseDate(pj.Anchor)
		if err != nil {
			return pc, fmt.Errorf("%w: invalid pay period anchor: %v", payroll.ErrInvalidPolicy, err)
		}
		pc.Anchor = anchor
	}
	return pc, nil
}
