package payroll_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

func seededSource(t *testing.T) *store.Memory {
	t.Helper()
	in := weekInput()

	src := store.NewMemory()
	src.SetCompensation(in.Compensation)
	src.AddAttendance(in.Attendance...)
	src.AddSickLeave(in.SickLeaves...)
	src.AddGarnishment(in.Garnishments...)
	src.AddExchangeRate(*in.ExchangeRate)
	return src
}

// =============================================================================
// SERVICE TESTS
// =============================================================================

func TestService_Preview_MatchesDirectCompute(t *testing.T) {
	// GIVEN: The same data in a Source and as a literal Input
	// WHEN: Previewing through the service
	// THEN: The statement matches computing the Input directly

	ctx := context.Background()
	engine := payroll.NewEngine(payroll.DefaultPolicy())
	svc := payroll.NewService(seededSource(t), engine)
	period := payroll.Period{Start: jan(6), End: jan(12)}

	got, err := svc.Preview(ctx, "emp-1", period)
	require.NoError(t, err)

	want, err := engine.Compute(weekInput())
	require.NoError(t, err)

	assert.True(t, want.Gross.Equal(got.Gross))
	assert.True(t, want.Net.Equal(got.Net))
	assert.Len(t, got.Anomalies, 2)
}

func TestService_Preview_UnknownEmployee(t *testing.T) {
	svc := payroll.NewService(store.NewMemory(), payroll.NewEngine(payroll.DefaultPolicy()))

	_, err := svc.Preview(context.Background(), "ghost", payroll.Period{Start: jan(1), End: jan(31)})

	assert.True(t, payroll.IsNotFound(err))
}

func TestService_Preview_InvalidPeriod(t *testing.T) {
	svc := payroll.NewService(seededSource(t), payroll.NewEngine(payroll.DefaultPolicy()))

	_, err := svc.Preview(context.Background(), "emp-1", payroll.Period{Start: jan(31), End: jan(1)})

	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
}

type failingSource struct {
	*store.Memory
}

func (f failingSource) Holidays(context.Context, payroll.Period) ([]payroll.Date, error) {
	return nil, errors.New("connection reset")
}

func TestService_Preview_SourceErrorPropagates(t *testing.T) {
	svc := payroll.NewService(failingSource{seededSource(t)}, payroll.NewEngine(payroll.DefaultPolicy()))

	_, err := svc.Preview(context.Background(), "emp-1", payroll.Period{Start: jan(6), End: jan(12)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load holidays")
}

func TestService_RunBatch_CollectsFailures(t *testing.T) {
	// GIVEN: 20 computable employees and one with no salary
	// WHEN: Running a batch with a concurrency limit of 4
	// THEN: 20 statements, one failure, batch itself succeeds

	src := seededSource(t)
	ids := []payroll.EmployeeID{"broken"}
	src.SetCompensation(payroll.EmployeeCompensation{EmployeeID: "broken"})
	for i := 0; i < 20; i++ {
		id := payroll.EmployeeID(fmt.Sprintf("emp-%02d", i))
		src.SetCompensation(payroll.EmployeeCompensation{EmployeeID: id, Position: monthlyCRC("520000")})
		ids = append(ids, id)
	}
	svc := payroll.NewService(src, payroll.NewEngine(payroll.DefaultPolicy()))

	res, err := svc.RunBatch(context.Background(), ids, payroll.Period{Start: jan(1), End: jan(31)}, 4)

	require.NoError(t, err)
	assert.Len(t, res.Statements, 20)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures["broken"], payroll.ErrInvalidCompensation)
	assert.Equal(t, payroll.EmployeeID("emp-00"), res.Statements[0].EmployeeID)
}

func TestService_RunAll_ListsEmployees(t *testing.T) {
	src := seededSource(t)
	svc := payroll.NewService(src, payroll.NewEngine(payroll.DefaultPolicy()))

	res, err := svc.RunAll(context.Background(), src, payroll.Period{Start: jan(6), End: jan(12)}, 2)

	require.NoError(t, err)
	require.Len(t, res.Statements, 1)
	assert.Empty(t, res.Failures)
}

func TestService_RunBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := payroll.NewService(seededSource(t), payroll.NewEngine(payroll.DefaultPolicy()))

	_, err := svc.RunBatch(ctx, []payroll.EmployeeID{"emp-1"}, payroll.Period{Start: jan(6), End: jan(12)}, 1)

	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// MEMORY SOURCE
// =============================================================================

func TestMemory_ExchangeRate_AsOfThenLatest(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemory()

	none, err := src.ExchangeRate(ctx, jan(1))
	require.NoError(t, err)
	assert.Nil(t, none)

	src.AddExchangeRate(payroll.ExchangeRate{EffectiveDate: jan(10), CRCPerUSD: dec("510")})
	src.AddExchangeRate(payroll.ExchangeRate{EffectiveDate: jan(1), CRCPerUSD: dec("500")})
	src.AddExchangeRate(payroll.ExchangeRate{EffectiveDate: jan(20), CRCPerUSD: dec("520")})

	r, err := src.ExchangeRate(ctx, jan(15))
	require.NoError(t, err)
	assertDec(t, "510", r.CRCPerUSD, "as of jan 15")

	r, err = src.ExchangeRate(ctx, jan(10))
	require.NoError(t, err)
	assertDec(t, "510", r.CRCPerUSD, "as of jan 10")

	r, err = src.ExchangeRate(ctx, payroll.NewDate(2024, 12, 1))
	require.NoError(t, err)
	assertDec(t, "520", r.CRCPerUSD, "nothing that old, latest wins")
}
