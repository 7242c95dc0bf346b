package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// FIXTURES
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func jan(day int) payroll.Date {
	return payroll.NewDate(2025, time.January, day)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

var firstWeek = payroll.Period{Start: jan(6), End: jan(12)}

// seedWeek stores one employee with a week of attendance, a half-pay sick
// day, a fixed garnishment and a USD rate.
func seedWeek(t *testing.T, s *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SavePosition(ctx, sqlite.Position{
		ID: "pos-dev", Name: "Developer", SalaryType: payroll.SalaryMonthly, Amount: dec("520000"),
	}))
	require.NoError(t, s.SaveEmployee(ctx, sqlite.Employee{
		ID: "emp-1", Name: "Ana", PositionID: "pos-dev", DisplayCurrency: payroll.USD, Active: true,
	}))

	row := func(d payroll.Date, in, out string) payroll.AttendanceRow {
		return payroll.AttendanceRow{EmployeeID: "emp-1", Date: d, CheckIn: in, CheckOut: out}
	}
	require.NoError(t, s.AddAttendance(ctx,
		row(jan(6), "08:00", "12:00"),
		row(jan(6), "11:50", "16:00"),
		row(jan(7), "08:00", "17:30"),
		row(jan(8), "8:00 AM", "5:00 PM"),
		row(jan(9), "xx", "17:00"),
		row(jan(10), "12:00", "10:00"),
		row(jan(11), "08:00", ""),
		row(jan(12), "08:00", "12:00"),
		row(jan(20), "08:00", "12:00"),
	))

	_, err := s.SaveSickLeave(ctx, payroll.SickLeave{
		EmployeeID: "emp-1", Start: jan(9), End: jan(9), Adjustment: payroll.SickHalf,
	})
	require.NoError(t, err)

	_, err = s.SaveGarnishment(ctx, payroll.GarnishmentOrder{
		ID: "g-1", EmployeeID: "emp-1", Mode: payroll.GarnishAmount, Value: dec("10000"),
		Priority: 1, Active: true, Start: payroll.NewDate(2024, time.June, 1),
	})
	require.NoError(t, err)

	require.NoError(t, s.SaveExchangeRate(ctx, payroll.ExchangeRate{EffectiveDate: jan(1), CRCPerUSD: dec("500")}))
}

// =============================================================================
// SOURCE READS
// =============================================================================

func TestStore_Attendance_FiltersByPeriod(t *testing.T) {
	s := newStore(t)
	seedWeek(t, s)

	rows, err := s.Attendance(context.Background(), "emp-1", firstWeek)

	require.NoError(t, err)
	assert.Len(t, rows, 8, "the jan 20 row is outside the week")
	assert.Equal(t, "2025-01-06", rows[0].Date.String())
	assert.Equal(t, "", rows[6].CheckOut, "open interval reads back as empty")
}

func TestStore_Compensation_PositionSalary(t *testing.T) {
	s := newStore(t)
	seedWeek(t, s)

	comp, err := s.Compensation(context.Background(), "emp-1")

	require.NoError(t, err)
	require.NotNil(t, comp.Position)
	assert.Nil(t, comp.Override)
	assert.Nil(t, comp.GarnishCapRate)
	assert.Equal(t, payroll.SalaryMonthly, comp.Position.SalaryType)
	assert.True(t, comp.Position.Amount.Equal(dec("520000")))
	assert.Equal(t, payroll.CRC, comp.Position.Currency)
	assert.Equal(t, payroll.USD, comp.DisplayCurrency)
}

func TestStore_Compensation_Override(t *testing.T) {
	// GIVEN: An employee with a personal hourly USD salary and a 20% cap
	// WHEN: Reading compensation
	// THEN: Both sources and the cap come back

	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SavePosition(ctx, sqlite.Position{
		ID: "pos-ops", Name: "Ops", SalaryType: payroll.SalaryMonthly, Amount: dec("400000"),
	}))
	require.NoError(t, s.SaveEmployee(ctx, sqlite.Employee{
		ID: "emp-2", Name: "Luis", PositionID: "pos-ops", Active: true,
		OverrideSalaryType: payroll.SalaryHourly, OverrideAmount: decPtr("12.5"),
		OverrideCurrency: payroll.USD, GarnishCapRate: decPtr("0.2"),
	}))

	comp, err := s.Compensation(ctx, "emp-2")

	require.NoError(t, err)
	require.NotNil(t, comp.Override)
	assert.Equal(t, payroll.CompensationOverride, comp.Override.Type)
	assert.Equal(t, payroll.SalaryHourly, comp.Override.SalaryType)
	assert.True(t, comp.Override.Amount.Equal(dec("12.5")))
	assert.Equal(t, payroll.USD, comp.Override.Currency)
	require.NotNil(t, comp.GarnishCapRate)
	assert.True(t, comp.GarnishCapRate.Equal(dec("0.2")))
}

func TestStore_Compensation_UnknownEmployee(t *testing.T) {
	s := newStore(t)

	_, err := s.Compensation(context.Background(), "ghost")

	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
}

func TestStore_SickLeaves_Overlapping(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.SaveSickLeave(ctx, payroll.SickLeave{EmployeeID: "emp-1", Start: jan(1), End: jan(7), Adjustment: payroll.SickZero})
	require.NoError(t, err)
	_, err = s.SaveSickLeave(ctx, payroll.SickLeave{EmployeeID: "emp-1", Start: jan(20), End: jan(22), Adjustment: payroll.SickHalf})
	require.NoError(t, err)

	leaves, err := s.SickLeaves(ctx, "emp-1", firstWeek)

	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.NotEmpty(t, leaves[0].ID)
	assert.Equal(t, payroll.SickZero, leaves[0].Adjustment)
}

func TestStore_SaveSickLeave_Invalid(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.SaveSickLeave(ctx, payroll.SickLeave{EmployeeID: "emp-1", Start: jan(7), End: jan(6), Adjustment: payroll.SickHalf})
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	_, err = s.SaveSickLeave(ctx, payroll.SickLeave{EmployeeID: "emp-1", Start: jan(6), End: jan(6), Adjustment: "quarter"})
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestStore_Garnishments_RoundTripEndDate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	end := jan(31)

	id, err := s.SaveGarnishment(ctx, payroll.GarnishmentOrder{
		EmployeeID: "emp-1", Mode: payroll.GarnishPercent, Value: dec("15"),
		Priority: 2, Active: true, Start: jan(1), End: &end,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "an ID is generated")

	orders, err := s.Garnishments(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].ID)
	assert.True(t, orders[0].Active)
	require.NotNil(t, orders[0].End)
	assert.Equal(t, "2025-01-31", orders[0].End.String())
}

func TestStore_ExchangeRate_AsOfThenLatest(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r, err := s.ExchangeRate(ctx, jan(15))
	require.NoError(t, err)
	assert.Nil(t, r, "no rates stored")

	require.NoError(t, s.SaveExchangeRate(ctx, payroll.ExchangeRate{EffectiveDate: jan(1), CRCPerUSD: dec("505")}))
	require.NoError(t, s.SaveExchangeRate(ctx, payroll.ExchangeRate{EffectiveDate: jan(20), CRCPerUSD: dec("510")}))

	r, err = s.ExchangeRate(ctx, jan(15))
	require.NoError(t, err)
	assert.True(t, r.CRCPerUSD.Equal(dec("505")))

	r, err = s.ExchangeRate(ctx, payroll.NewDate(2024, time.December, 1))
	require.NoError(t, err)
	assert.True(t, r.CRCPerUSD.Equal(dec("510")), "nothing before the date, latest wins")

	assert.ErrorIs(t, s.SaveExchangeRate(ctx, payroll.ExchangeRate{EffectiveDate: jan(2), CRCPerUSD: dec("0")}), payroll.ErrInvalidInput)
}

func TestStore_ListEmployeeIDs_ActiveOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveEmployee(ctx, sqlite.Employee{ID: "b", Name: "B", Active: true}))
	require.NoError(t, s.SaveEmployee(ctx, sqlite.Employee{ID: "a", Name: "A", Active: true}))
	require.NoError(t, s.SaveEmployee(ctx, sqlite.Employee{ID: "c", Name: "C", Active: false}))

	ids, err := s.ListEmployeeIDs(ctx)

	require.NoError(t, err)
	assert.Equal(t, []payroll.EmployeeID{"a", "b"}, ids)
}

// =============================================================================
// ENGINE OVER SQLITE
// =============================================================================

func TestStore_ServicePreview(t *testing.T) {
	// GIVEN: A seeded week in SQLite
	// WHEN: Previewing through the service
	// THEN: The statement matches the same data computed in memory

	s := newStore(t)
	seedWeek(t, s)
	svc := payroll.NewService(s, payroll.NewEngine(payroll.DefaultPolicy()))

	st, err := svc.Preview(context.Background(), "emp-1", firstWeek)

	require.NoError(t, err)
	assert.True(t, st.Gross.Equal(dec("99375")), "gross %s", st.Gross)
	assert.True(t, st.Net.Equal(dec("89375")), "net %s", st.Net)
	assert.Len(t, st.Anomalies, 2)
	assert.Equal(t, 1, st.OpenIntervals)
	assert.Equal(t, payroll.USD, st.Display.Currency)
}

// =============================================================================
// SCHEMA FEATURES
// =============================================================================

func TestStore_Features_CurrentSchema(t *testing.T) {
	s := newStore(t)

	f := s.Features()

	assert.True(t, f.EmployeeCapRate)
	assert.True(t, f.EmployeeDisplayCurrency)
	assert.True(t, f.EmployeeOverride)
}

func TestStore_Features_LegacySchema(t *testing.T) {
	// GIVEN: A database created before the optional employee columns existed
	// WHEN: Opening it
	// THEN: The features are off, reads still work, and writing a missing
	//       column is rejected

	path := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`
		CREATE TABLE employees (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			position_id TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TEXT NOT NULL
		)
	`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	s, err := sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, sqlite.Features{}, s.Features())

	ctx := context.Background()
	require.NoError(t, s.SavePosition(ctx, sqlite.Position{
		ID: "pos-1", Name: "Clerk", SalaryType: payroll.SalaryHourly, Amount: dec("2500"),
	}))
	require.NoError(t, s.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "Old", PositionID: "pos-1", Active: true}))

	comp, err := s.Compensation(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, comp.Position)
	assert.Nil(t, comp.Override)
	assert.Nil(t, comp.GarnishCapRate)
	assert.Equal(t, payroll.Currency(""), comp.DisplayCurrency)

	err = s.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "Old", GarnishCapRate: decPtr("0.1")})
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	emp, err := s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "pos-1", emp.PositionID)
}

// =============================================================================
// HOLIDAYS AND POLICY
// =============================================================================

func TestStore_Holidays(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveHoliday(ctx, sqlite.Holiday{Date: jan(1), Name: "New Year"}))
	require.NoError(t, s.SaveHoliday(ctx, sqlite.Holiday{Date: jan(8), Name: "Company day"}))
	require.NoError(t, s.SaveHoliday(ctx, sqlite.Holiday{Date: jan(8), Name: "Founders day"}))

	inWeek, err := s.Holidays(ctx, firstWeek)
	require.NoError(t, err)
	require.Len(t, inWeek, 1)
	assert.Equal(t, "2025-01-08", inWeek[0].String())

	all, err := s.ListHolidays(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Founders day", all[1].Name)

	require.NoError(t, s.DeleteHoliday(ctx, jan(8)))
	all, err = s.ListHolidays(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_Policy_Versioned(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rec, err := s.LoadPolicy(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, s.SavePolicy(ctx, `{"weekly_regular_cap": "48"}`))
	require.NoError(t, s.SavePolicy(ctx, `{"weekly_regular_cap": "45"}`))

	rec, err = s.LoadPolicy(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Version)
	assert.JSONEq(t, `{"weekly_regular_cap": "45"}`, rec.ConfigJSON)
}

// =============================================================================
// STATEMENTS AND RUNS
// =============================================================================

func TestStore_Statement_ReplacedOnRecompute(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.SaveStatement(ctx, sqlite.StatementRecord{
		EmployeeID: "emp-1", Period: firstWeek, Gross: dec("100"), Net: dec("90"), SnapshotJSON: `{"v":1}`,
	})
	require.NoError(t, err)

	second, err := s.SaveStatement(ctx, sqlite.StatementRecord{
		EmployeeID: "emp-1", Period: firstWeek, Gross: dec("120"), Net: dec("100"), SnapshotJSON: `{"v":2}`,
	})
	require.NoError(t, err)
	assert.Equal(t, first, second, "same employee and period keeps its ID")

	rec, err := s.GetStatement(ctx, "emp-1", firstWeek)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Gross.Equal(dec("120")))
	assert.Equal(t, `{"v":2}`, rec.SnapshotJSON)

	missing, err := s.GetStatement(ctx, "emp-2", firstWeek)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_Runs_Lifecycle(t *testing.T) {
	// GIVEN: A run started for January
	// WHEN: Starting it again, failing it, restarting and completing it
	// THEN: Duplicate starts are refused until the run fails, and
	//       completion is visible to IsRunComplete

	s := newStore(t)
	ctx := context.Background()
	january := payroll.Period{Start: jan(1), End: jan(31)}

	run, err := s.StartRun(ctx, january)
	require.NoError(t, err)
	assert.Equal(t, sqlite.RunRunning, run.Status)

	_, err = s.StartRun(ctx, january)
	assert.ErrorIs(t, err, sqlite.ErrRunExists)

	run.Status = sqlite.RunFailed
	run.Error = "database locked"
	require.NoError(t, s.SaveRun(ctx, *run))

	again, err := s.StartRun(ctx, january)
	require.NoError(t, err)
	assert.Equal(t, run.ID, again.ID, "failed run is reused")

	done, err := s.IsRunComplete(ctx, january)
	require.NoError(t, err)
	assert.False(t, done)

	completed := time.Now().UTC()
	again.Status = sqlite.RunCompleted
	again.Employees = 12
	again.Failed = 1
	again.CompletedAt = &completed
	require.NoError(t, s.SaveRun(ctx, *again))

	done, err = s.IsRunComplete(ctx, january)
	require.NoError(t, err)
	assert.True(t, done)

	runs, err := s.ListRuns(ctx, sqlite.RunCompleted)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 12, runs[0].Employees)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Empty(t, runs[0].Error)
	assert.NotNil(t, runs[0].CompletedAt)
	assert.Equal(t, "2025-01-31", runs[0].Period.End.String())
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	seedWeek(t, s)
	ctx := context.Background()

	require.NoError(t, s.Reset(ctx))

	ids, err := s.ListEmployeeIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
