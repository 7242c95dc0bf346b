/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND HOURS:
  Money is rendered with exactly two decimals ("1234.50"). Hours and rates
  are rendered unrounded as decimal strings so clients can re-derive the
  amounts.

TYPES:
  Statement:
    StatementDTO, DayDTO, WeekDTO, BucketsDTO, EarningLineDTO,
    DeductionDTO, DisplayDTO, AnomalyDTO

  Runs:
    PeriodRequest, RunDTO, RunResultDTO

  Inputs:
    CreatePositionRequest, CreateEmployeeRequest, AttendanceRequest,
    SickLeaveRequest, GarnishmentRequest, HolidayDTO, ExchangeRateDTO

  Policy:
    PolicyDTO (wraps factory.PolicyJSON)

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// STATEMENT
// =============================================================================

// StatementDTO is a computed statement. Amounts are CRC unless inside Display.
type StatementDTO struct {
	EmployeeID  string `json:"employee_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	Days                []DayDTO   `json:"days"`
	Weeks               []WeekDTO  `json:"weeks"`
	BucketsBeforeWeekly BucketsDTO `json:"buckets_before_weekly"`
	Buckets             BucketsDTO `json:"buckets"`
	SickHalfPayDays     int        `json:"sick_half_pay_days"`
	SickZeroPayDays     int        `json:"sick_zero_pay_days"`

	RateSource string           `json:"rate_source"`
	HourlyRate string           `json:"hourly_rate"`
	DayRate    string           `json:"day_rate"`
	Earnings   []EarningLineDTO `json:"earnings"`
	Gross      string           `json:"gross"`

	CapRate       string         `json:"cap_rate"`
	CapAmount     string         `json:"cap_amount"`
	Deductions    []DeductionDTO `json:"deductions"`
	TotalDeducted string         `json:"total_deducted"`
	Net           string         `json:"net"`
	Currency      string         `json:"currency"`

	ExchangeRate         *ExchangeRateDTO `json:"exchange_rate,omitempty"`
	ExchangeRateFallback bool             `json:"exchange_rate_fallback"`
	Display              DisplayDTO       `json:"display"`

	Anomalies     []AnomalyDTO `json:"anomalies"`
	OpenIntervals int          `json:"open_intervals"`
}

// DayDTO is one classified date.
type DayDTO struct {
	Date           string `json:"date"`
	Weekday        int    `json:"weekday"`
	Holiday        bool   `json:"holiday"`
	Sunday         bool   `json:"sunday"`
	SickAdjustment string `json:"sick_adjustment"`
	ExpectedHours  string `json:"expected_hours"`
	WorkedHours    string `json:"worked_hours"`
	EffectiveHours string `json:"effective_hours"`
	Regular        string `json:"regular"`
	Premium        string `json:"premium"`
	Double         string `json:"double"`
	PaidNotWorked  bool   `json:"paid_not_worked,omitempty"`
}

// WeekDTO shows how the weekly cap moved hours within one ISO week.
type WeekDTO struct {
	Week             string `json:"week"`
	EligibleHours    string `json:"eligible_hours"`
	Excess           string `json:"excess"`
	MovedFromPremium string `json:"moved_from_premium"`
	MovedFromRegular string `json:"moved_from_regular"`
}

// BucketsDTO holds hours per pay multiplier.
type BucketsDTO struct {
	Regular string `json:"regular"`
	Premium string `json:"premium"`
	Double  string `json:"double"`
}

// EarningLineDTO is one priced line of gross pay.
type EarningLineDTO struct {
	Kind       string `json:"kind"`
	Quantity   string `json:"quantity"`
	Rate       string `json:"rate"`
	Multiplier string `json:"multiplier"`
	Amount     string `json:"amount"`
}

// DeductionDTO is the outcome of one garnishment order.
type DeductionDTO struct {
	GarnishmentID string `json:"garnishment_id"`
	Requested     string `json:"requested"`
	Applied       string `json:"applied"`
	Capped        bool   `json:"capped"`
}

// DisplayDTO repeats the totals in the employee's display currency.
type DisplayDTO struct {
	Currency      string `json:"currency"`
	HourlyRate    string `json:"hourly_rate"`
	Gross         string `json:"gross"`
	TotalDeducted string `json:"total_deducted"`
	Net           string `json:"net"`
}

// AnomalyDTO is an attendance row skipped during the computation.
type AnomalyDTO struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toStatementDTO(st *payroll.Statement) StatementDTO {
	dto := StatementDTO{
		EmployeeID:          string(st.EmployeeID),
		PeriodStart:         st.Period.Start.String(),
		PeriodEnd:           st.Period.End.String(),
		BucketsBeforeWeekly: toBucketsDTO(st.BucketsBefore),
		Buckets:             toBucketsDTO(st.Buckets),
		SickHalfPayDays:     st.Sick.HalfPayDays,
		SickZeroPayDays:     st.Sick.ZeroPayDays,
		RateSource:          string(st.Rate.Source.Type),
		HourlyRate:          st.Rate.Hourly.String(),
		DayRate:             st.Rate.DayRate.String(),
		Gross:               money(st.Gross),
		CapRate:             st.CapRate.String(),
		CapAmount:           money(st.CapAmount),
		TotalDeducted:       money(st.TotalDeducted),
		Net:                 money(st.Net),
		Currency:            string(payroll.CRC),
		Display: DisplayDTO{
			Currency:      string(st.Display.Currency),
			HourlyRate:    money(st.Display.HourlyRate),
			Gross:         money(st.Display.Gross),
			TotalDeducted: money(st.Display.TotalDeducted),
			Net:           money(st.Display.Net),
		},
		OpenIntervals: st.OpenIntervals,
		Days:          make([]DayDTO, len(st.Days)),
		Weeks:         make([]WeekDTO, len(st.Weeks)),
		Earnings:      make([]EarningLineDTO, len(st.Earnings)),
		Deductions:    make([]DeductionDTO, len(st.Deductions)),
		Anomalies:     make([]AnomalyDTO, len(st.Anomalies)),
	}

	for i, d := range st.Days {
		dto.Days[i] = DayDTO{
			Date:           d.Date.String(),
			Weekday:        d.Weekday,
			Holiday:        d.IsHoliday,
			Sunday:         d.IsSunday,
			SickAdjustment: string(d.SickAdjustment),
			ExpectedHours:  d.ExpectedShiftHours.String(),
			WorkedHours:    d.RawWorkedHours.String(),
			EffectiveHours: d.EffectiveWorkedHours.String(),
			Regular:        d.RegularHours.String(),
			Premium:        d.PremiumHours.String(),
			Double:         d.DoubleHours.String(),
			PaidNotWorked:  d.HolidayPaidNotWorked,
		}
	}
	for i, w := range st.Weeks {
		dto.Weeks[i] = WeekDTO{
			Week:             w.Key.String(),
			EligibleHours:    w.EligibleHours.String(),
			Excess:           w.Excess.String(),
			MovedFromPremium: w.MovedFromPremium.String(),
			MovedFromRegular: w.MovedFromRegular.String(),
		}
	}
	for i, l := range st.Earnings {
		dto.Earnings[i] = EarningLineDTO{
			Kind:       string(l.Kind),
			Quantity:   l.Quantity.String(),
			Rate:       l.Rate.String(),
			Multiplier: l.Multiplier.String(),
			Amount:     money(l.Amount),
		}
	}
	for i, d := range st.Deductions {
		dto.Deductions[i] = DeductionDTO{
			GarnishmentID: string(d.GarnishmentID),
			Requested:     money(d.Requested),
			Applied:       money(d.Applied),
			Capped:        d.Capped,
		}
	}
	for i, a := range st.Anomalies {
		dto.Anomalies[i] = AnomalyDTO{Date: a.Date.String(), Reason: a.Reason}
		if a.Err != nil {
			dto.Anomalies[i].Error = a.Err.Error()
		}
	}
	dto.ExchangeRateFallback = st.ExchangeRateFallback
	if st.ExchangeRate != nil {
		dto.ExchangeRate = &ExchangeRateDTO{
			EffectiveDate: st.ExchangeRate.EffectiveDate.String(),
			CRCPerUSD:     st.ExchangeRate.CRCPerUSD.String(),
		}
	}
	return dto
}

func toBucketsDTO(b payroll.PayBucketTotals) BucketsDTO {
	return BucketsDTO{Regular: b.Regular.String(), Premium: b.Premium.String(), Double: b.Double.String()}
}

// StoredStatementDTO is a persisted statement snapshot.
type StoredStatementDTO struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Statement json.RawMessage `json:"statement"`
}

// =============================================================================
// RUNS
// =============================================================================

// PeriodRequest selects a pay period. Both dates are inclusive.
type PeriodRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RunDTO is a batch run record.
type RunDTO struct {
	ID          string     `json:"id"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	Status      string     `json:"status"`
	Employees   int        `json:"employees"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RunResultDTO is the response to a batch run.
type RunResultDTO struct {
	Run      RunDTO            `json:"run"`
	Failures map[string]string `json:"failures"`
}

func toRunDTO(r sqlite.StatementRun) RunDTO {
	return RunDTO{
		ID:          r.ID,
		PeriodStart: r.Period.Start.String(),
		PeriodEnd:   r.Period.End.String(),
		Status:      string(r.Status),
		Employees:   r.Employees,
		Failed:      r.Failed,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
	}
}

// =============================================================================
// INPUTS
// =============================================================================

// CreatePositionRequest is the body for creating a position.
type CreatePositionRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SalaryType string          `json:"salary_type"` // monthly, hourly
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"` // CRC, USD
}

// CreateEmployeeRequest is the body for creating an employee.
type CreateEmployeeRequest struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	PositionID         string           `json:"position_id"`
	OverrideSalaryType string           `json:"override_salary_type,omitempty"`
	OverrideAmount     *decimal.Decimal `json:"override_amount,omitempty"`
	OverrideCurrency   string           `json:"override_currency,omitempty"`
	GarnishCapRate     *decimal.Decimal `json:"garnish_cap_rate,omitempty"`
	DisplayCurrency    string           `json:"display_currency,omitempty"`
	Active             *bool            `json:"active,omitempty"`
}

// AttendanceRequest is one clock row. CheckOut may be empty for an open
// interval.
type AttendanceRequest struct {
	Date     string `json:"date"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// SickLeaveRequest is the body for recording sick leave.
type SickLeaveRequest struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Adjustment string `json:"adjustment"` // none, half, zero
}

// GarnishmentRequest is the body for creating a garnishment order.
type GarnishmentRequest struct {
	ID       string          `json:"id,omitempty"`
	Mode     string          `json:"mode"` // percent, amount
	Value    decimal.Decimal `json:"value"`
	Priority int             `json:"priority"`
	Active   *bool           `json:"active,omitempty"`
	Start    string          `json:"start"`
	End      string          `json:"end,omitempty"`
}

// HolidayDTO is a holiday in requests and responses.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// ExchangeRateDTO is an exchange rate in requests and responses.
type ExchangeRateDTO struct {
	EffectiveDate string `json:"effective_date"`
	CRCPerUSD     string `json:"crc_per_usd"`
}

// =============================================================================
// POLICY
// =============================================================================

// PolicyDTO is the active payroll policy.
type PolicyDTO struct {
	Version int                `json:"version"`
	Policy  factory.PolicyJSON `json:"policy"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
