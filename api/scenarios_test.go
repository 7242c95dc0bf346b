package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevServer(t *testing.T) *testServer {
	t.Helper()
	ts := newTestServer(t)
	ts.handler.DevMode = true
	ts.router = NewRouter(ts.handler, []string{"*"})
	return ts
}

func (ts *testServer) loadScenario(t *testing.T, id string) StatementDTO {
	t.Helper()
	ts.mustDo(t, "POST", "/api/scenarios/load", map[string]string{"scenario_id": id}, http.StatusOK)

	for _, s := range scenarios {
		if s.ID == id {
			path := "/api/employees/" + s.EmployeeID + "/preview?from=" + s.From + "&to=" + s.To
			return decode[StatementDTO](t, ts.mustDo(t, "GET", path, nil, http.StatusOK))
		}
	}
	t.Fatalf("scenario %s not listed", id)
	return StatementDTO{}
}

func TestScenario_OvertimeWeek(t *testing.T) {
	// GIVEN: Six 10h days at 3000 CRC/h
	// WHEN: Previewing the week
	// THEN: 12 premium hours become double under the 48h cap

	ts := newDevServer(t)

	st := ts.loadScenario(t, "overtime-week")

	require.Len(t, st.Weeks, 1)
	assert.Equal(t, "12", st.Weeks[0].Excess)
	assert.Equal(t, "12", st.Weeks[0].MovedFromPremium)
	assert.Equal(t, "12", st.BucketsBeforeWeekly.Premium)
	assert.Equal(t, "48", st.Buckets.Regular)
	assert.Equal(t, "12", st.Buckets.Double)
	assert.Equal(t, "216000.00", st.Gross)
}

func TestScenario_GarnishedUSD(t *testing.T) {
	// GIVEN: 40h at 10 USD/h (500 CRC/USD) and two orders under a 20% cap
	// WHEN: Previewing the week
	// THEN: The second order is cut to what is left of the cap

	ts := newDevServer(t)

	st := ts.loadScenario(t, "garnished-usd")

	assert.Equal(t, "200000.00", st.Gross)
	assert.Equal(t, "40000.00", st.CapAmount)
	require.Len(t, st.Deductions, 2)
	assert.Equal(t, "30000.00", st.Deductions[0].Applied)
	assert.False(t, st.Deductions[0].Capped)
	assert.Equal(t, "10000.00", st.Deductions[1].Applied)
	assert.True(t, st.Deductions[1].Capped)
	assert.Equal(t, "160000.00", st.Net)
	assert.Equal(t, "320.00", st.Display.Net)
}

func TestScenario_HolidaySick(t *testing.T) {
	ts := newDevServer(t)

	st := ts.loadScenario(t, "holiday-sick")

	require.Len(t, st.Days, 7)
	assert.True(t, st.Days[2].Holiday)
	assert.True(t, st.Days[2].PaidNotWorked)
	assert.Equal(t, 1, st.SickHalfPayDays)
	assert.Equal(t, 1, st.SickZeroPayDays)
	assert.Equal(t, "0", st.Days[4].EffectiveHours, "zero-pay leave voids the worked shift")
}

func TestScenario_LoadResetsPreviousData(t *testing.T) {
	// GIVEN: A custom policy and one loaded scenario
	// WHEN: Loading another scenario
	// THEN: The old employee is gone and the policy is back to defaults

	ts := newDevServer(t)
	ts.mustDo(t, "PUT", "/api/policy", `{"weekly_regular_cap": "40"}`, http.StatusOK)
	ts.loadScenario(t, "overtime-week")

	ts.loadScenario(t, "garnished-usd")

	ts.mustDo(t, "GET", "/api/employees/emp-101/preview?from=2025-01-06&to=2025-01-12", nil, http.StatusNotFound)
	policy := decode[PolicyDTO](t, ts.mustDo(t, "GET", "/api/policy", nil, http.StatusOK))
	assert.Equal(t, 0, policy.Version)
	assert.Equal(t, "48", policy.Policy.WeeklyRegularCap.String())

	current := decode[ScenarioDTO](t, ts.mustDo(t, "GET", "/api/scenarios/current", nil, http.StatusOK))
	assert.Equal(t, "garnished-usd", current.ID)
}

func TestScenario_Routes(t *testing.T) {
	ts := newDevServer(t)

	list := decode[[]ScenarioDTO](t, ts.mustDo(t, "GET", "/api/scenarios", nil, http.StatusOK))
	assert.Len(t, list, len(scenarios))
	ts.mustDo(t, "POST", "/api/scenarios/load", map[string]string{"scenario_id": "nope"}, http.StatusBadRequest)
	ts.mustDo(t, "POST", "/api/scenarios/reset", nil, http.StatusOK)

	prod := newTestServer(t)
	prod.mustDo(t, "GET", "/api/scenarios", nil, http.StatusNotFound)
}
