/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the payroll service and the store.

ENDPOINTS:
  Statements:
    GET    /api/employees/{id}/preview      Compute without persisting
    POST   /api/employees/{id}/statements   Compute and store a snapshot
    GET    /api/employees/{id}/statements   Fetch the stored snapshot
    POST   /api/statements/run              Batch for every active employee
    GET    /api/statements/runs             Batch run history

  Engine inputs:
    POST   /api/positions                   Create/update a position
    POST   /api/employees                   Create/update an employee
    POST   /api/employees/{id}/attendance   Append clock rows
    POST   /api/employees/{id}/sick-leaves  Record sick leave
    POST   /api/employees/{id}/garnishments Create a garnishment order
    GET    /api/holidays                    List holidays (?year=)
    POST   /api/holidays                    Create/rename a holiday
    DELETE /api/holidays/{date}             Remove a holiday
    GET    /api/exchange-rates              List rates
    POST   /api/exchange-rates              Set the rate for a date

  Policy:
    GET    /api/policy                      Active payroll policy
    PUT    /api/policy                      Replace the policy (partial JSON)

  Scenarios (development only, see scenarios.go):
    GET    /api/scenarios                   List demo scenarios
    GET    /api/scenarios/current           Loaded scenario
    POST   /api/scenarios/load              Reset and load a scenario
    POST   /api/scenarios/reset             Reset the database

PERIODS:
  Statement endpoints take ?from=YYYY-MM-DD&to=YYYY-MM-DD (or a JSON body
  with the same names). Without them the current pay period from the
  policy is used.

READ-ONLY SOURCES:
  When the server reads from PostgreSQL there is no SQLite store. Endpoints
  that write or read stored snapshots answer 501.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid period, policy, attendance time or input
  - 404: Unknown employee or snapshot
  - 409: A batch for the period already ran or is running
  - 422: Employee data the engine cannot compute (salary, rate, garnishment)
  - 501: Write endpoint on a read-only source
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - payroll/service.go: Fetch + compute
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Source is what the handlers read engine inputs from.
type Source interface {
	payroll.Source
	payroll.EmployeeLister
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Source        Source
	Store         *sqlite.Store // nil when Source is read-only
	PolicyFactory *factory.PolicyFactory
	Log           zerolog.Logger
	Concurrency   int
	DevMode       bool // mounts the scenario routes
	Now           func() time.Time

	mu              sync.RWMutex
	policy          payroll.PayrollPolicy
	policyVersion   int
	currentScenario string
}

// NewHandler creates a handler reading from source. store may be nil.
func NewHandler(source Source, store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Source:        source,
		Store:         store,
		PolicyFactory: factory.NewPolicyFactory(),
		Log:           log,
		Concurrency:   8,
		Now:           time.Now,
		policy:        payroll.DefaultPolicy(),
	}
}

// LoadPolicy loads the stored policy into the handler. Without a store or a
// stored document the defaults stay active.
func (h *Handler) LoadPolicy(ctx context.Context) error {
	if h.Store == nil {
		return nil
	}
	rec, err := h.Store.LoadPolicy(ctx)
	if err != nil || rec == nil {
		return err
	}
	policy, err := h.PolicyFactory.ParsePolicy(rec.ConfigJSON)
	if err != nil {
		return fmt.Errorf("stored policy v%d: %w", rec.Version, err)
	}

	h.mu.Lock()
	h.policy = policy
	h.policyVersion = rec.Version
	h.mu.Unlock()
	return nil
}

// Policy returns the active payroll policy.
func (h *Handler) Policy() payroll.PayrollPolicy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.policy
}

func (h *Handler) service() *payroll.Service {
	return payroll.NewService(h.Source, payroll.NewEngine(h.Policy()))
}

func (h *Handler) today() payroll.Date {
	return payroll.DateOf(h.Now())
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"read_only": h.Store == nil,
	})
}

// =============================================================================
// STATEMENT HANDLERS
// =============================================================================

// PreviewStatement computes a statement without persisting it.
func (h *Handler) PreviewStatement(w http.ResponseWriter, r *http.Request) {
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))
	period, err := h.parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	st, err := h.service().Preview(r.Context(), employeeID, period)
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute statement", err)
		return
	}
	h.logAnomalies(r, st)
	writeJSON(w, http.StatusOK, toStatementDTO(st))
}

// CreateStatement computes a statement and stores its snapshot.
func (h *Handler) CreateStatement(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req PeriodRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	period, err := h.parsePeriod(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	st, err := h.service().Preview(r.Context(), employeeID, period)
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute statement", err)
		return
	}
	h.logAnomalies(r, st)

	dto := toStatementDTO(st)
	id, err := h.saveSnapshot(r.Context(), st, dto)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save statement", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/employees/%s/statements?from=%s&to=%s", employeeID, period.Start, period.End))
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "statement": dto})
}

// GetStatement returns the stored snapshot for an employee and period.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))
	period, err := h.parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	rec, err := h.Store.GetStatement(r.Context(), employeeID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get statement", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Statement not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, StoredStatementDTO{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Statement: json.RawMessage(rec.SnapshotJSON),
	})
}

// RunStatements computes and stores statements for every active employee.
func (h *Handler) RunStatements(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req PeriodRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	period, err := h.parsePeriod(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	run, failures, err := h.RunPeriod(r.Context(), period)
	if errors.Is(err, sqlite.ErrRunExists) {
		writeError(w, http.StatusConflict, "Statement run already exists", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Statement run failed", err)
		return
	}

	resp := RunResultDTO{Run: toRunDTO(*run), Failures: make(map[string]string, len(failures))}
	for id, ferr := range failures {
		resp.Failures[string(id)] = ferr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns batch run history, optionally filtered by ?status=.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	runs, err := h.Store.ListRuns(r.Context(), sqlite.RunStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunPeriod claims the period, computes every active employee and stores
// the snapshots. Per-employee failures are returned, not fatal; the run
// record is marked failed only when the batch itself could not complete.
// The final status is written even when ctx was cancelled, so an
// interrupted run can be claimed again.
func (h *Handler) RunPeriod(ctx context.Context, period payroll.Period) (*sqlite.StatementRun, map[payroll.EmployeeID]error, error) {
	if err := period.Validate(); err != nil {
		return nil, nil, err
	}
	run, err := h.Store.StartRun(ctx, period)
	if err != nil {
		return nil, nil, err
	}
	log := h.Log.With().Str("run_id", run.ID).Str("period", period.String()).Logger()
	log.Info().Msg("statement run started")
	finalCtx := context.WithoutCancel(ctx)

	fail := func(err error) (*sqlite.StatementRun, map[payroll.EmployeeID]error, error) {
		run.Status = sqlite.RunFailed
		run.Error = err.Error()
		if saveErr := h.Store.SaveRun(finalCtx, *run); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to record run failure")
		}
		log.Error().Err(err).Msg("statement run failed")
		return nil, nil, err
	}

	result, err := h.service().RunAll(ctx, h.Source, period, h.Concurrency)
	if err != nil {
		return fail(err)
	}

	saved := 0
	for _, st := range result.Statements {
		if _, err := h.saveSnapshot(ctx, st, toStatementDTO(st)); err != nil {
			result.Failures[st.EmployeeID] = fmt.Errorf("save snapshot: %w", err)
			continue
		}
		saved++
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	for id, ferr := range result.Failures {
		log.Warn().Str("employee_id", string(id)).Err(ferr).Msg("employee skipped")
	}

	completed := time.Now().UTC()
	run.Status = sqlite.RunCompleted
	run.Employees = saved
	run.Failed = len(result.Failures)
	run.CompletedAt = &completed
	if err := h.Store.SaveRun(finalCtx, *run); err != nil {
		return fail(err)
	}

	log.Info().Int("employees", run.Employees).Int("failed", run.Failed).Msg("statement run completed")
	return run, result.Failures, nil
}

func (h *Handler) saveSnapshot(ctx context.Context, st *payroll.Statement, dto StatementDTO) (string, error) {
	snapshot, err := json.Marshal(dto)
	if err != nil {
		return "", err
	}
	return h.Store.SaveStatement(ctx, sqlite.StatementRecord{
		EmployeeID:   st.EmployeeID,
		Period:       st.Period,
		Gross:        st.Gross,
		Net:          st.Net,
		SnapshotJSON: string(snapshot),
	})
}

// =============================================================================
// INPUT HANDLERS
// =============================================================================

// CreatePosition creates or updates a position.
func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req CreatePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if err := validateSalary(req.SalaryType, req.Currency); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid salary", err)
		return
	}

	pos := sqlite.Position{
		ID:         req.ID,
		Name:       req.Name,
		SalaryType: payroll.SalaryType(req.SalaryType),
		Amount:     req.Amount,
		Currency:   payroll.Currency(req.Currency),
	}
	if err := h.Store.SavePosition(r.Context(), pos); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save position", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if req.OverrideSalaryType != "" || req.OverrideAmount != nil {
		if err := validateSalary(req.OverrideSalaryType, req.OverrideCurrency); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid override salary", err)
			return
		}
	}

	emp := sqlite.Employee{
		ID:                 req.ID,
		Name:               req.Name,
		Email:              req.Email,
		PositionID:         req.PositionID,
		OverrideSalaryType: payroll.SalaryType(req.OverrideSalaryType),
		OverrideAmount:     req.OverrideAmount,
		OverrideCurrency:   payroll.Currency(req.OverrideCurrency),
		GarnishCapRate:     req.GarnishCapRate,
		DisplayCurrency:    payroll.Currency(req.DisplayCurrency),
		Active:             req.Active == nil || *req.Active,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeServiceError(w, r, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// AddAttendance appends clock rows for an employee.
func (h *Handler) AddAttendance(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req []AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]payroll.AttendanceRow, len(req))
	for i, a := range req {
		d, err := payroll.ParseDate(a.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date in row %d", i), err)
			return
		}
		rows[i] = payroll.AttendanceRow{EmployeeID: employeeID, Date: d, CheckIn: a.CheckIn, CheckOut: a.CheckOut}
	}

	if err := h.Store.AddAttendance(r.Context(), rows...); err != nil {
		h.writeServiceError(w, r, "Failed to save attendance", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"added": len(rows)})
}

// CreateSickLeave records a sick leave range.
func (h *Handler) CreateSickLeave(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req SickLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err1 := payroll.ParseDate(req.Start)
	end, err2 := payroll.ParseDate(req.End)
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dates", err)
		return
	}

	id, err := h.Store.SaveSickLeave(r.Context(), payroll.SickLeave{
		EmployeeID: employeeID,
		Start:      start,
		End:        end,
		Adjustment: payroll.SickAdjustment(req.Adjustment),
	})
	if err != nil {
		h.writeServiceError(w, r, "Failed to save sick leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// CreateGarnishment creates a garnishment order. The mode is not checked
// here; an unknown mode makes the employee's computation fail with 422.
func (h *Handler) CreateGarnishment(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req GarnishmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := payroll.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	order := payroll.GarnishmentOrder{
		ID:         payroll.GarnishmentID(req.ID),
		EmployeeID: employeeID,
		Mode:       payroll.GarnishmentMode(req.Mode),
		Value:      req.Value,
		Priority:   req.Priority,
		Active:     req.Active == nil || *req.Active,
		Start:      start,
	}
	if req.End != "" {
		end, err := payroll.ParseDate(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date", err)
			return
		}
		order.End = &end
	}

	id, err := h.Store.SaveGarnishment(r.Context(), order)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save garnishment", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(id)})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns holidays, optionally for one ?year=.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	year := 0
	if y := r.URL.Query().Get("year"); y != "" {
		var err error
		if year, err = strconv.Atoi(y); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
	}

	holidays, err := h.Store.ListHolidays(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{Date: hol.Date.String(), Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday creates or renames a holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	d, err := payroll.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	if err := h.Store.SaveHoliday(r.Context(), sqlite.Holiday{Date: d, Name: req.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{Date: d.String(), Name: req.Name})
}

// DeleteHoliday removes the holiday on {date}.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	d, err := payroll.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if err := h.Store.DeleteHoliday(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXCHANGE RATE ENDPOINTS
// =============================================================================

// ListExchangeRates returns every stored rate, newest first.
func (h *Handler) ListExchangeRates(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	rates, err := h.Store.ListExchangeRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exchange rates", err)
		return
	}

	dtos := make([]ExchangeRateDTO, len(rates))
	for i, rate := range rates {
		dtos[i] = ExchangeRateDTO{EffectiveDate: rate.EffectiveDate.String(), CRCPerUSD: rate.CRCPerUSD.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExchangeRate sets the CRC per USD rate effective from a date.
func (h *Handler) CreateExchangeRate(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req ExchangeRateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	d, err := payroll.ParseDate(req.EffectiveDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective date", err)
		return
	}
	rate, err := decimal.NewFromString(req.CRCPerUSD)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}

	if err := h.Store.SaveExchangeRate(r.Context(), payroll.ExchangeRate{EffectiveDate: d, CRCPerUSD: rate}); err != nil {
		h.writeServiceError(w, r, "Failed to save exchange rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, ExchangeRateDTO{EffectiveDate: d.String(), CRCPerUSD: rate.String()})
}

// =============================================================================
// POLICY ENDPOINTS
// =============================================================================

// GetPolicy returns the active policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	dto := PolicyDTO{Version: h.policyVersion, Policy: h.PolicyFactory.ToJSON(h.policy)}
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, dto)
}

// UpdatePolicy replaces the active policy. Fields missing from the body
// take their defaults.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var pj factory.PolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	policy, err := h.PolicyFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy", err)
		return
	}
	doc, err := h.PolicyFactory.Marshal(policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode policy", err)
		return
	}
	if err := h.Store.SavePolicy(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}
	if err := h.LoadPolicy(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload policy", err)
		return
	}

	h.Log.Info().Int("version", h.policyVersionSnapshot()).Msg("payroll policy updated")
	h.GetPolicy(w, r)
}

func (h *Handler) policyVersionSnapshot() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.policyVersion
}

// =============================================================================
// HELPERS
// =============================================================================

// parsePeriod reads an inclusive from/to pair. Both empty selects the
// current pay period; one without the other is an error.
func (h *Handler) parsePeriod(from, to string) (payroll.Period, error) {
	if from == "" && to == "" {
		return h.Policy().PayPeriod.PeriodFor(h.today()), nil
	}
	if from == "" || to == "" {
		return payroll.Period{}, fmt.Errorf("%w: from and to must be given together", payroll.ErrInvalidPeriod)
	}
	start, err := payroll.ParseDate(from)
	if err != nil {
		return payroll.Period{}, err
	}
	end, err := payroll.ParseDate(to)
	if err != nil {
		return payroll.Period{}, err
	}
	return payroll.NewPeriod(start, end)
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.Store == nil {
		writeError(w, http.StatusNotImplemented, "Not available on a read-only source", nil)
		return false
	}
	return true
}

func (h *Handler) logAnomalies(r *http.Request, st *payroll.Statement) {
	if len(st.Anomalies) == 0 && st.OpenIntervals == 0 && !st.ExchangeRateFallback {
		return
	}
	ev := h.Log.Warn().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("employee_id", string(st.EmployeeID)).
		Str("period", st.Period.String()).
		Int("open_intervals", st.OpenIntervals).
		Bool("exchange_rate_fallback", st.ExchangeRateFallback)
	if err := st.AnomalyErrors(); err != nil {
		ev = ev.Err(err)
	}
	ev.Int("anomalies", len(st.Anomalies)).Msg("statement computed with skipped records")
}

// writeServiceError maps engine and store errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case payroll.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case payroll.IsUnprocessable(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		h.Log.Error().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Err(err).
			Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func validateSalary(salaryType, currency string) error {
	switch payroll.SalaryType(salaryType) {
	case payroll.SalaryMonthly, payroll.SalaryHourly:
	default:
		return fmt.Errorf("%w: salary_type must be monthly or hourly", payroll.ErrInvalidInput)
	}
	switch payroll.Currency(currency) {
	case payroll.CRC, payroll.USD, "":
	default:
		return fmt.Errorf("%w: currency must be CRC or USD", payroll.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
