/*
handlers_test.go - HTTP tests for the payroll API

Tests for:
- Seeding inputs through the write endpoints
- Preview, stored statements and batch runs
- Policy updates
- Error status mapping and read-only sources
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// FIXTURES
// =============================================================================

type testServer struct {
	handler *Handler
	router  *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := NewHandler(s, s, zerolog.Nop())
	h.Now = func() time.Time { return time.Date(2025, time.February, 10, 9, 0, 0, 0, time.UTC) }
	return &testServer{handler: h, router: NewRouter(h, []string{"*"})}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) mustDo(t *testing.T, method, path string, body any, want int) *httptest.ResponseRecorder {
	t.Helper()
	rec := ts.do(t, method, path, body)
	require.Equal(t, want, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// seedWeek stores a monthly-salaried employee with a week of attendance
// (one overlap, one unparseable row, one inverted row, one open interval),
// a half-pay sick day, a fixed garnishment and a USD rate.
func (ts *testServer) seedWeek(t *testing.T) {
	t.Helper()
	ts.mustDo(t, "POST", "/api/positions", map[string]any{
		"id": "pos-dev", "name": "Developer", "salary_type": "monthly", "amount": "520000",
	}, http.StatusCreated)
	ts.mustDo(t, "POST", "/api/employees", map[string]any{
		"id": "emp-1", "name": "Ana", "position_id": "pos-dev", "display_currency": "USD",
	}, http.StatusCreated)
	ts.mustDo(t, "POST", "/api/employees/emp-1/attendance", []AttendanceRequest{
		{Date: "2025-01-06", CheckIn: "08:00", CheckOut: "12:00"},
		{Date: "2025-01-06", CheckIn: "11:50", CheckOut: "16:00"},
		{Date: "2025-01-07", CheckIn: "08:00", CheckOut: "17:30"},
		{Date: "2025-01-08", CheckIn: "8:00 AM", CheckOut: "5:00 PM"},
		{Date: "2025-01-09", CheckIn: "xx", CheckOut: "17:00"},
		{Date: "2025-01-10", CheckIn: "12:00", CheckOut: "10:00"},
		{Date: "2025-01-11", CheckIn: "08:00", CheckOut: ""},
		{Date: "2025-01-12", CheckIn: "08:00", CheckOut: "12:00"},
	}, http.StatusCreated)
	ts.mustDo(t, "POST", "/api/employees/emp-1/sick-leaves", SickLeaveRequest{
		Start: "2025-01-09", End: "2025-01-09", Adjustment: "half",
	}, http.StatusCreated)
	ts.mustDo(t, "POST", "/api/employees/emp-1/garnishments", map[string]any{
		"id": "g-1", "mode": "amount", "value": "10000", "priority": 1, "start": "2024-06-01",
	}, http.StatusCreated)
	ts.mustDo(t, "POST", "/api/exchange-rates", ExchangeRateDTO{
		EffectiveDate: "2025-01-01", CRCPerUSD: "500",
	}, http.StatusCreated)
}

const firstWeekQuery = "?from=2025-01-06&to=2025-01-12"

// =============================================================================
// STATEMENTS
// =============================================================================

func TestPreviewStatement_SeededWeek(t *testing.T) {
	// GIVEN: A week of inputs written through the API
	// WHEN: Previewing the week
	// THEN: Totals are in CRC with a USD display view, skipped rows reported

	ts := newTestServer(t)
	ts.seedWeek(t)

	rec := ts.mustDo(t, "GET", "/api/employees/emp-1/preview"+firstWeekQuery, nil, http.StatusOK)
	st := decode[StatementDTO](t, rec)

	assert.Equal(t, "emp-1", st.EmployeeID)
	assert.Equal(t, "2025-01-06", st.PeriodStart)
	assert.Equal(t, "99375.00", st.Gross)
	assert.Equal(t, "10000.00", st.TotalDeducted)
	assert.Equal(t, "89375.00", st.Net)
	assert.Equal(t, "CRC", st.Currency)
	assert.Equal(t, "USD", st.Display.Currency)
	assert.Equal(t, "198.75", st.Display.Gross)
	assert.Equal(t, "178.75", st.Display.Net)
	assert.Len(t, st.Days, 7)
	assert.Len(t, st.Anomalies, 2)
	assert.Equal(t, 1, st.OpenIntervals)
	assert.Equal(t, 1, st.SickHalfPayDays)
	require.NotNil(t, st.ExchangeRate)
	assert.Equal(t, "500", st.ExchangeRate.CRCPerUSD)
}

func TestPreviewStatement_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.seedWeek(t)

	tests := map[string]struct {
		path string
		want int
	}{
		"unknown employee": {"/api/employees/ghost/preview" + firstWeekQuery, http.StatusNotFound},
		"from without to":  {"/api/employees/emp-1/preview?from=2025-01-06", http.StatusBadRequest},
		"inverted period":  {"/api/employees/emp-1/preview?from=2025-01-12&to=2025-01-06", http.StatusBadRequest},
		"bad date":         {"/api/employees/emp-1/preview?from=yesterday&to=2025-01-06", http.StatusBadRequest},
		"period too long":  {"/api/employees/emp-1/preview?from=1900-01-01&to=2100-12-31", http.StatusBadRequest},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, "GET", tt.path, nil)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestPreviewStatement_UncomputableEmployee(t *testing.T) {
	// GIVEN: An employee with neither a position nor an override salary
	// WHEN: Previewing
	// THEN: 422, the employee exists but cannot be paid

	ts := newTestServer(t)
	ts.mustDo(t, "POST", "/api/employees", map[string]any{"id": "emp-x", "name": "Nobody"}, http.StatusCreated)

	rec := ts.do(t, "GET", "/api/employees/emp-x/preview"+firstWeekQuery, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestPreviewStatement_DefaultsToCurrentPayPeriod(t *testing.T) {
	ts := newTestServer(t)
	ts.seedWeek(t)

	rec := ts.mustDo(t, "GET", "/api/employees/emp-1/preview", nil, http.StatusOK)
	st := decode[StatementDTO](t, rec)

	assert.Equal(t, "2025-02-01", st.PeriodStart)
	assert.Equal(t, "2025-02-28", st.PeriodEnd)
}

func TestCreateAndGetStatement(t *testing.T) {
	// GIVEN: A seeded week
	// WHEN: Creating the statement twice and reading it back
	// THEN: The snapshot keeps its id and matches the preview

	ts := newTestServer(t)
	ts.seedWeek(t)
	body := PeriodRequest{From: "2025-01-06", To: "2025-01-12"}

	first := decode[map[string]any](t, ts.mustDo(t, "POST", "/api/employees/emp-1/statements", body, http.StatusCreated))
	second := decode[map[string]any](t, ts.mustDo(t, "POST", "/api/employees/emp-1/statements", body, http.StatusCreated))
	assert.Equal(t, first["id"], second["id"])

	rec := ts.mustDo(t, "GET", "/api/employees/emp-1/statements"+firstWeekQuery, nil, http.StatusOK)
	stored := decode[StoredStatementDTO](t, rec)
	assert.Equal(t, first["id"], stored.ID)

	var st StatementDTO
	require.NoError(t, json.Unmarshal(stored.Statement, &st))
	assert.Equal(t, "99375.00", st.Gross)
	assert.Equal(t, "89375.00", st.Net)

	ts.mustDo(t, "GET", "/api/employees/emp-1/statements?from=2025-01-13&to=2025-01-19", nil, http.StatusNotFound)
}

func TestRunStatements(t *testing.T) {
	// GIVEN: One payable employee and one without a salary
	// WHEN: Running the batch for the week, then again
	// THEN: The run completes with one failure; the repeat conflicts

	ts := newTestServer(t)
	ts.seedWeek(t)
	ts.mustDo(t, "POST", "/api/employees", map[string]any{"id": "emp-x", "name": "Nobody"}, http.StatusCreated)
	ts.mustDo(t, "POST", "/api/employees", map[string]any{
		"id": "emp-old", "name": "Gone", "position_id": "pos-dev", "active": false,
	}, http.StatusCreated)
	body := PeriodRequest{From: "2025-01-06", To: "2025-01-12"}

	rec := ts.mustDo(t, "POST", "/api/statements/run", body, http.StatusOK)
	result := decode[RunResultDTO](t, rec)

	assert.Equal(t, string(sqlite.RunCompleted), result.Run.Status)
	assert.Equal(t, 1, result.Run.Employees)
	assert.Equal(t, 1, result.Run.Failed)
	assert.Contains(t, result.Failures, "emp-x")
	assert.NotContains(t, result.Failures, "emp-old", "inactive employees are not listed")
	assert.NotNil(t, result.Run.CompletedAt)

	ts.mustDo(t, "GET", "/api/employees/emp-1/statements"+firstWeekQuery, nil, http.StatusOK)
	ts.mustDo(t, "POST", "/api/statements/run", body, http.StatusConflict)

	runs := decode[[]RunDTO](t, ts.mustDo(t, "GET", "/api/statements/runs?status=completed", nil, http.StatusOK))
	require.Len(t, runs, 1)
	assert.Equal(t, "2025-01-06", runs[0].PeriodStart)
}

// =============================================================================
// INPUTS
// =============================================================================

func TestCreateInputs_Validation(t *testing.T) {
	ts := newTestServer(t)
	ts.seedWeek(t)

	tests := map[string]struct {
		method, path string
		body         any
	}{
		"position salary type":  {"POST", "/api/positions", map[string]any{"id": "p", "name": "P", "salary_type": "daily", "amount": "1"}},
		"position currency":     {"POST", "/api/positions", map[string]any{"id": "p", "name": "P", "salary_type": "hourly", "amount": "1", "currency": "EUR"}},
		"employee without name": {"POST", "/api/employees", map[string]any{"id": "e"}},
		"attendance date":       {"POST", "/api/employees/emp-1/attendance", []AttendanceRequest{{Date: "soon", CheckIn: "08:00"}}},
		"attendance body":       {"POST", "/api/employees/emp-1/attendance", "{not json"},
		"sick leave inverted":   {"POST", "/api/employees/emp-1/sick-leaves", SickLeaveRequest{Start: "2025-01-09", End: "2025-01-08", Adjustment: "half"}},
		"sick leave adjustment": {"POST", "/api/employees/emp-1/sick-leaves", SickLeaveRequest{Start: "2025-01-09", End: "2025-01-09", Adjustment: "most"}},
		"garnishment start":     {"POST", "/api/employees/emp-1/garnishments", map[string]any{"mode": "amount", "value": "1", "start": ""}},
		"rate not a number":     {"POST", "/api/exchange-rates", ExchangeRateDTO{EffectiveDate: "2025-01-02", CRCPerUSD: "lots"}},
		"rate not positive":     {"POST", "/api/exchange-rates", ExchangeRateDTO{EffectiveDate: "2025-01-02", CRCPerUSD: "-1"}},
		"holiday without name":  {"POST", "/api/holidays", HolidayDTO{Date: "2025-01-01"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestHolidays_Lifecycle(t *testing.T) {
	ts := newTestServer(t)

	ts.mustDo(t, "POST", "/api/holidays", HolidayDTO{Date: "2025-04-11", Name: "Juan Santamaria"}, http.StatusCreated)
	ts.mustDo(t, "POST", "/api/holidays", HolidayDTO{Date: "2024-12-25", Name: "Christmas"}, http.StatusCreated)

	holidays := decode[[]HolidayDTO](t, ts.mustDo(t, "GET", "/api/holidays?year=2025", nil, http.StatusOK))
	require.Len(t, holidays, 1)
	assert.Equal(t, HolidayDTO{Date: "2025-04-11", Name: "Juan Santamaria"}, holidays[0])

	ts.mustDo(t, "DELETE", "/api/holidays/2025-04-11", nil, http.StatusNoContent)

	holidays = decode[[]HolidayDTO](t, ts.mustDo(t, "GET", "/api/holidays?year=2025", nil, http.StatusOK))
	assert.Empty(t, holidays)
	ts.mustDo(t, "GET", "/api/holidays?year=twenty", nil, http.StatusBadRequest)
}

func TestHolidays_ShiftPreview(t *testing.T) {
	// GIVEN: A holiday on the Tuesday of the seeded week
	// WHEN: Previewing
	// THEN: The day is flagged and gross grows

	ts := newTestServer(t)
	ts.seedWeek(t)
	ts.mustDo(t, "POST", "/api/holidays", HolidayDTO{Date: "2025-01-07", Name: "Company day"}, http.StatusCreated)

	st := decode[StatementDTO](t, ts.mustDo(t, "GET", "/api/employees/emp-1/preview"+firstWeekQuery, nil, http.StatusOK))

	assert.True(t, st.Days[1].Holiday)
	assert.NotEqual(t, "99375.00", st.Gross)
}

func TestExchangeRates_List(t *testing.T) {
	ts := newTestServer(t)
	ts.seedWeek(t)
	ts.mustDo(t, "POST", "/api/exchange-rates", ExchangeRateDTO{EffectiveDate: "2025-02-01", CRCPerUSD: "510.5"}, http.StatusCreated)

	rates := decode[[]ExchangeRateDTO](t, ts.mustDo(t, "GET", "/api/exchange-rates", nil, http.StatusOK))

	require.Len(t, rates, 2)
	assert.Equal(t, ExchangeRateDTO{EffectiveDate: "2025-02-01", CRCPerUSD: "510.5"}, rates[0])
}

// =============================================================================
// POLICY
// =============================================================================

func TestPolicy_UpdateAndReload(t *testing.T) {
	// GIVEN: The default policy
	// WHEN: Lowering the weekly cap through the API
	// THEN: The version bumps, the handler uses it and a new handler loads it

	ts := newTestServer(t)

	initial := decode[PolicyDTO](t, ts.mustDo(t, "GET", "/api/policy", nil, http.StatusOK))
	assert.Equal(t, 0, initial.Version)
	require.NotNil(t, initial.Policy.WeeklyRegularCap)
	assert.Equal(t, "48", initial.Policy.WeeklyRegularCap.String())

	updated := decode[PolicyDTO](t, ts.mustDo(t, "PUT", "/api/policy", `{"weekly_regular_cap": "40"}`, http.StatusOK))
	assert.Equal(t, 1, updated.Version)
	assert.Equal(t, "40", updated.Policy.WeeklyRegularCap.String())
	assert.Equal(t, "8", updated.Policy.DailyRegularThreshold.String(), "missing fields keep defaults")
	assert.Equal(t, "40", ts.handler.Policy().WeeklyRegularCap.String())

	reloaded := NewHandler(ts.handler.Source, ts.handler.Store, zerolog.Nop())
	require.NoError(t, reloaded.LoadPolicy(context.Background()))
	assert.Equal(t, "40", reloaded.Policy().WeeklyRegularCap.String())
}

func TestPolicy_Invalid(t *testing.T) {
	ts := newTestServer(t)

	ts.mustDo(t, "PUT", "/api/policy", `{"pay_period": {"type": "yearly"}}`, http.StatusBadRequest)
	ts.mustDo(t, "PUT", "/api/policy", `[]`, http.StatusBadRequest)
	ts.mustDo(t, "PUT", "/api/policy", `{"time_zone": "Mars/Olympus_Mons"}`, http.StatusBadRequest)

	current := decode[PolicyDTO](t, ts.mustDo(t, "GET", "/api/policy", nil, http.StatusOK))
	assert.Equal(t, 0, current.Version)
}

// =============================================================================
// READ-ONLY SOURCE
// =============================================================================

func TestReadOnlySource(t *testing.T) {
	// GIVEN: A handler over an in-memory source with no store
	// WHEN: Previewing and writing
	// THEN: Preview works; writes answer 501

	src := store.NewMemory()
	start := payroll.NewDate(2025, time.January, 6)
	src.SetCompensation(payroll.EmployeeCompensation{
		EmployeeID: "emp-1",
		Position: &payroll.CompensationSource{
			Type: payroll.CompensationPosition, SalaryType: payroll.SalaryHourly,
			Amount: decimal.NewFromInt(1000), Currency: payroll.CRC,
		},
	})
	src.AddAttendance(payroll.AttendanceRow{EmployeeID: "emp-1", Date: start, CheckIn: "08:00", CheckOut: "16:00"})

	h := NewHandler(src, nil, zerolog.Nop())
	ts := &testServer{handler: h, router: NewRouter(h, []string{"*"})}

	st := decode[StatementDTO](t, ts.mustDo(t, "GET", "/api/employees/emp-1/preview"+firstWeekQuery, nil, http.StatusOK))
	assert.Equal(t, "8000.00", st.Gross, "8 regular hours at 1000 CRC")

	ts.mustDo(t, "POST", "/api/positions", map[string]any{"id": "p", "name": "P", "salary_type": "hourly"}, http.StatusNotImplemented)
	ts.mustDo(t, "POST", "/api/statements/run", nil, http.StatusNotImplemented)
	ts.mustDo(t, "PUT", "/api/policy", `{}`, http.StatusNotImplemented)
	ts.mustDo(t, "GET", "/api/policy", nil, http.StatusOK)

	health := decode[map[string]any](t, ts.mustDo(t, "GET", "/healthz", nil, http.StatusOK))
	assert.Equal(t, true, health["read_only"])
}
