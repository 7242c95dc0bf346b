package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func jan(day int) payroll.Date {
	return payroll.NewDate(2025, time.January, day)
}

func span(d payroll.Date, fromH, fromM, toH, toM int) payroll.AttendanceInterval {
	return payroll.AttendanceInterval{
		EmployeeID: "emp-1",
		Date:       d,
		Start:      d.At(fromH, fromM, 0),
		End:        d.At(toH, toM, 0),
	}
}

// workedDay classifies a plain working day of the given length in hours,
// starting at 07:00.
func workedDay(d payroll.Date, hours float64, policy payroll.PayrollPolicy) payroll.DayClassification {
	start := d.At(7, 0, 0)
	block := payroll.MergedBlock{Date: d, Start: start, End: start.Add(time.Duration(hours * float64(time.Hour)))}
	return payroll.ClassifyDay(payroll.DayInput{Date: d, Blocks: []payroll.MergedBlock{block}}, policy)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, what string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s, got %s", what, want, got.String())
}
