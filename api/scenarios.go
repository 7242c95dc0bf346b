/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	payroll inputs. Each scenario creates positions, employees, attendance,
	leave, garnishments and rates for one week of January 2025.

AVAILABLE SCENARIOS:

	overtime-week:   Six 10h days, the weekly cap moves 12h to double
	garnished-usd:   Hourly USD salary with two orders against a 20% cap
	holiday-sick:    Unworked holiday plus half- and zero-pay sick days

HOW SCENARIOS WORK:
 1. Reset database (clear all data, policy back to defaults)
 2. Create position and employee
 3. Add attendance, holidays, sick leave, garnishments
 4. Add the exchange rate
 5. Preview the scenario period to see the result

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "overtime-week"}

NOTE:

	Scenarios reset the database. Routes are only mounted in development.

SEE ALSO:
  - handlers.go: Preview endpoint
  - store/sqlite/records.go: Writes used by the loaders
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// ScenarioDTO describes a loadable scenario and the period to preview.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	EmployeeID  string `json:"employee_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "overtime-week",
		Name:        "Overtime Week",
		Description: "Monday to Saturday at 10h a day; 12h above the weekly cap become double",
		EmployeeID:  "emp-101",
		From:        "2025-01-06",
		To:          "2025-01-12",
	},
	{
		ID:          "garnished-usd",
		Name:        "Garnished USD Contractor",
		Description: "Hourly USD override, percent and fixed orders limited by a 20% cap",
		EmployeeID:  "emp-201",
		From:        "2025-01-06",
		To:          "2025-01-12",
	},
	{
		ID:          "holiday-sick",
		Name:        "Holiday and Sick Leave",
		Description: "Unworked holiday paid at the expected shift, half- and zero-pay sick days",
		EmployeeID:  "emp-301",
		From:        "2025-01-06",
		To:          "2025-01-12",
	},
}

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "overtime-week":
		load = h.loadOvertimeWeekScenario
	case "garnished-usd":
		load = h.loadGarnishedUSDScenario
	case "holiday-sick":
		load = h.loadHolidaySickScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data and restores the default policy.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.policy = payroll.DefaultPolicy()
	h.policyVersion = 0
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func scenarioDay(day int) payroll.Date {
	return payroll.NewDate(2025, time.January, day)
}

func shifts(employeeID string, in, out string, days ...int) []payroll.AttendanceRow {
	rows := make([]payroll.AttendanceRow, len(days))
	for i, d := range days {
		rows[i] = payroll.AttendanceRow{
			EmployeeID: payroll.EmployeeID(employeeID),
			Date:       scenarioDay(d),
			CheckIn:    in,
			CheckOut:   out,
		}
	}
	return rows
}

func (h *Handler) loadOvertimeWeekScenario(ctx context.Context) error {
	if err := h.Store.SavePosition(ctx, sqlite.Position{
		ID:         "pos-warehouse",
		Name:       "Warehouse Operator",
		SalaryType: payroll.SalaryHourly,
		Amount:     decimal.NewFromInt(3000),
		Currency:   payroll.CRC,
	}); err != nil {
		return err
	}
	if err := h.Store.SaveEmployee(ctx, sqlite.Employee{
		ID:         "emp-101",
		Name:       "Marco Solano",
		Email:      "marco@example.com",
		PositionID: "pos-warehouse",
		Active:     true,
	}); err != nil {
		return err
	}
	return h.Store.AddAttendance(ctx, shifts("emp-101", "08:00", "18:00", 6, 7, 8, 9, 10, 11)...)
}

func (h *Handler) loadGarnishedUSDScenario(ctx context.Context) error {
	if err := h.Store.SavePosition(ctx, sqlite.Position{
		ID:         "pos-support",
		Name:       "Support Analyst",
		SalaryType: payroll.SalaryMonthly,
		Amount:     decimal.NewFromInt(650000),
		Currency:   payroll.CRC,
	}); err != nil {
		return err
	}

	hourly := decimal.NewFromInt(10)
	capRate := decimal.RequireFromString("0.2")
	if err := h.Store.SaveEmployee(ctx, sqlite.Employee{
		ID:                 "emp-201",
		Name:               "Daniela Vargas",
		Email:              "daniela@example.com",
		PositionID:         "pos-support",
		OverrideSalaryType: payroll.SalaryHourly,
		OverrideAmount:     &hourly,
		OverrideCurrency:   payroll.USD,
		GarnishCapRate:     &capRate,
		DisplayCurrency:    payroll.USD,
		Active:             true,
	}); err != nil {
		return err
	}
	if err := h.Store.AddAttendance(ctx, shifts("emp-201", "08:00", "16:00", 6, 7, 8, 9, 10)...); err != nil {
		return err
	}

	orders := []payroll.GarnishmentOrder{
		{ID: "garn-child-support", Mode: payroll.GarnishPercent, Value: decimal.NewFromInt(15), Priority: 1},
		{ID: "garn-bank-loan", Mode: payroll.GarnishAmount, Value: decimal.NewFromInt(25000), Priority: 2},
	}
	for _, o := range orders {
		o.EmployeeID = "emp-201"
		o.Active = true
		o.Start = payroll.NewDate(2024, time.September, 1)
		if _, err := h.Store.SaveGarnishment(ctx, o); err != nil {
			return err
		}
	}

	return h.Store.SaveExchangeRate(ctx, payroll.ExchangeRate{
		EffectiveDate: scenarioDay(1),
		CRCPerUSD:     decimal.NewFromInt(500),
	})
}

func (h *Handler) loadHolidaySickScenario(ctx context.Context) error {
	if err := h.Store.SavePosition(ctx, sqlite.Position{
		ID:         "pos-nurse",
		Name:       "Nurse",
		SalaryType: payroll.SalaryMonthly,
		Amount:     decimal.NewFromInt(520000),
		Currency:   payroll.CRC,
	}); err != nil {
		return err
	}
	if err := h.Store.SaveEmployee(ctx, sqlite.Employee{
		ID:         "emp-301",
		Name:       "Lucia Mora",
		Email:      "lucia@example.com",
		PositionID: "pos-nurse",
		Active:     true,
	}); err != nil {
		return err
	}
	if err := h.Store.SaveHoliday(ctx, sqlite.Holiday{Date: scenarioDay(8), Name: "Hospital Foundation Day"}); err != nil {
		return err
	}

	// Worked Monday, Tuesday and Sunday; Friday's row is voided by zero-pay leave.
	rows := shifts("emp-301", "07:00", "15:00", 6, 7, 10, 12)
	if err := h.Store.AddAttendance(ctx, rows...); err != nil {
		return err
	}

	leaves := []payroll.SickLeave{
		{Start: scenarioDay(9), End: scenarioDay(9), Adjustment: payroll.SickHalf},
		{Start: scenarioDay(10), End: scenarioDay(10), Adjustment: payroll.SickZero},
	}
	for _, l := range leaves {
		l.EmployeeID = "emp-301"
		if _, err := h.Store.SaveSickLeave(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
