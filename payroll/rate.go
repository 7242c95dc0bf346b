package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rate is the resolved CRC pay rate for one employee and period.
type Rate struct {
	Source  CompensationSource
	Hourly  decimal.Decimal // CRC per hour, unrounded
	DayRate decimal.Decimal // CRC per standard workday, unrounded
}

// ResolveRate turns the employee's compensation source into a CRC hourly rate.
// The personal override wins over the position. Monthly salaries are spread
// over WorkingDaysPerMonth x WorkdayHours.
func ResolveRate(comp EmployeeCompensation, fx *Normalizer, policy PayrollPolicy) (Rate, error) {
	src := comp.Override
	if src == nil {
		src = comp.Position
	}
	if src == nil {
		return Rate{}, &CompensationError{EmployeeID: comp.EmployeeID, Reason: "no position or override salary"}
	}

	amount, err := fx.ToCRCExact(Money{Amount: src.Amount, Currency: src.Currency})
	if err != nil {
		if errors.Is(err, ErrMissingExchangeRate) {
			return Rate{}, fmt.Errorf("resolve rate for %s: %w", comp.EmployeeID, err)
		}
		return Rate{}, &CompensationError{EmployeeID: comp.EmployeeID, Reason: err.Error()}
	}

	var hourly decimal.Decimal
	switch src.SalaryType {
	case SalaryHourly:
		hourly = amount
	case SalaryMonthly:
		hourly = amount.Div(policy.WorkingDaysPerMonth.Mul(policy.WorkdayHours))
	default:
		return Rate{}, &CompensationError{EmployeeID: comp.EmployeeID, Reason: fmt.Sprintf("unknown salary type %q", src.SalaryType)}
	}

	if !hourly.IsPositive() {
		return Rate{}, &CompensationError{EmployeeID: comp.EmployeeID, Reason: "resolved hourly rate is not positive"}
	}

	return Rate{
		Source:  *src,
		Hourly:  hourly,
		DayRate: hourly.Mul(policy.WorkdayHours),
	}, nil
}
