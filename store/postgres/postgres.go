/*
Package postgres provides a read-only payroll.Source over PostgreSQL.

PURPOSE:
  Some deployments keep HR data in an existing PostgreSQL database managed by
  another system. This package reads the engine inputs from it without
  owning the schema: no migrations, no writes.

EXPECTED TABLES:
  Same names and columns as store/sqlite (positions, employees, attendance,
  holidays, sick_leaves, garnishments, exchange_rates). Dates may be DATE or
  TEXT and amounts NUMERIC or TEXT; every value is read through a ::text
  cast and parsed here.

SCHEMA FEATURES:
  Optional employee columns are detected once in New() from
  information_schema.columns, like the SQLite store does with PRAGMA.

SEE ALSO:
  - store/sqlite: Read/write store with the reference schema
  - payroll/source.go: Read contract
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// Features lists the optional employee columns present in the database.
type Features struct {
	EmployeeCapRate         bool
	EmployeeDisplayCurrency bool
	EmployeeOverride        bool
}

// Source implements payroll.Source and payroll.EmployeeLister.
type Source struct {
	pool     *pgxpool.Pool
	features Features

	compensationQuery string
}

// New connects to databaseURL and detects the schema features.
func New(ctx context.Context, databaseURL string) (*Source, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Source{pool: pool}
	if s.features, err = detectFeatures(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to detect schema features: %w", err)
	}
	s.compensationQuery = buildCompensationQuery(s.features)
	return s, nil
}

// Close releases the pool.
func (s *Source) Close() {
	s.pool.Close()
}

// Features reports the optional schema columns found at startup.
func (s *Source) Features() Features {
	return s.features
}

func detectFeatures(ctx context.Context, pool *pgxpool.Pool) (Features, error) {
	rows, err := pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'employees'
	`)
	if err != nil {
		return Features{}, err
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Features{}, err
	}

	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	return Features{
		EmployeeCapRate:         present["garnish_cap_rate"],
		EmployeeDisplayCurrency: present["display_currency"],
		EmployeeOverride: present["override_salary_type"] &&
			present["override_amount"] &&
			present["override_currency"],
	}, nil
}

func buildCompensationQuery(f Features) string {
	optional := func(present bool, column string) string {
		if present {
			return "e." + column + "::text"
		}
		return "NULL::text"
	}
	return fmt.Sprintf(`
		SELECT e.id::text,
			p.salary_type::text, p.salary_amount::text, p.currency::text,
			%s, %s, %s,
			%s, %s
		FROM employees e
		LEFT JOIN positions p ON p.id = e.position_id
		WHERE e.id::text = $1
	`,
		optional(f.EmployeeOverride, "override_salary_type"),
		optional(f.EmployeeOverride, "override_amount"),
		optional(f.EmployeeOverride, "override_currency"),
		optional(f.EmployeeCapRate, "garnish_cap_rate"),
		optional(f.EmployeeDisplayCurrency, "display_currency"),
	)
}

// =============================================================================
// payroll.Source
// =============================================================================

// Attendance returns raw clock rows for the employee within the period.
func (s *Source) Attendance(ctx context.Context, employeeID payroll.EmployeeID, period payroll.Period) ([]payroll.AttendanceRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date::text, check_in::text, COALESCE(check_out::text, '')
		FROM attendance
		WHERE employee_id::text = $1 AND date::date BETWEEN $2::date AND $3::date
		ORDER BY date, id
	`, string(employeeID), period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var result []payroll.AttendanceRow
	for rows.Next() {
		r := payroll.AttendanceRow{EmployeeID: employeeID}
		var date string
		if err := rows.Scan(&date, &r.CheckIn, &r.CheckOut); err != nil {
			return nil, err
		}
		if r.Date, err = parseDate("attendance date", date); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Holidays returns holiday dates within the period.
func (s *Source) Holidays(ctx context.Context, period payroll.Period) ([]payroll.Date, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT date::text FROM holidays WHERE date::date BETWEEN $1::date AND $2::date ORDER BY date",
		period.Start.String(), period.End.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	result := make([]payroll.Date, 0, len(raw))
	for _, v := range raw {
		d, err := parseDate("holiday date", v)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// SickLeaves returns the employee's sick leaves overlapping the period.
func (s *Source) SickLeaves(ctx context.Context, employeeID payroll.EmployeeID, period payroll.Period) ([]payroll.SickLeave, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, start_date::text, end_date::text, adjustment::text
		FROM sick_leaves
		WHERE employee_id::text = $1 AND start_date::date <= $2::date AND end_date::date >= $3::date
		ORDER BY start_date
	`, string(employeeID), period.End.String(), period.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query sick leaves: %w", err)
	}
	defer rows.Close()

	var result []payroll.SickLeave
	for rows.Next() {
		l := payroll.SickLeave{EmployeeID: employeeID}
		var start, end, adj string
		if err := rows.Scan(&l.ID, &start, &end, &adj); err != nil {
			return nil, err
		}
		l.Adjustment = payroll.SickAdjustment(adj)
		if l.Start, err = parseDate("sick leave start", start); err != nil {
			return nil, err
		}
		if l.End, err = parseDate("sick leave end", end); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// Compensation returns the employee's salary sources.
func (s *Source) Compensation(ctx context.Context, employeeID payroll.EmployeeID) (payroll.EmployeeCompensation, error) {
	var (
		id                                 string
		posType, posAmount, posCurrency    *string
		overType, overAmount, overCurrency *string
		capRate, displayCurrency           *string
	)
	err := s.pool.QueryRow(ctx, s.compensationQuery, string(employeeID)).Scan(
		&id,
		&posType, &posAmount, &posCurrency,
		&overType, &overAmount, &overCurrency,
		&capRate, &displayCurrency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.EmployeeCompensation{}, fmt.Errorf("%w: %s", payroll.ErrEmployeeNotFound, employeeID)
	}
	if err != nil {
		return payroll.EmployeeCompensation{}, fmt.Errorf("failed to query compensation: %w", err)
	}

	comp := payroll.EmployeeCompensation{
		EmployeeID:      payroll.EmployeeID(id),
		DisplayCurrency: payroll.Currency(deref(displayCurrency)),
	}
	if comp.Position, err = compensationSource(payroll.CompensationPosition, posType, posAmount, posCurrency); err != nil {
		return payroll.EmployeeCompensation{}, err
	}
	if comp.Override, err = compensationSource(payroll.CompensationOverride, overType, overAmount, overCurrency); err != nil {
		return payroll.EmployeeCompensation{}, err
	}
	if capRate != nil && *capRate != "" {
		d, err := parseDecimal("garnish_cap_rate", *capRate)
		if err != nil {
			return payroll.EmployeeCompensation{}, err
		}
		comp.GarnishCapRate = &d
	}
	return comp, nil
}

func compensationSource(kind payroll.CompensationType, salaryType, amount, currency *string) (*payroll.CompensationSource, error) {
	if salaryType == nil || amount == nil || *amount == "" {
		return nil, nil
	}
	v, err := parseDecimal(string(kind)+" salary amount", *amount)
	if err != nil {
		return nil, err
	}
	cur := payroll.Currency(deref(currency))
	if cur == "" {
		cur = payroll.CRC
	}
	return &payroll.CompensationSource{
		Type:       kind,
		SalaryType: payroll.SalaryType(*salaryType),
		Amount:     v,
		Currency:   cur,
	}, nil
}

// Garnishments returns every order for the employee.
func (s *Source) Garnishments(ctx context.Context, employeeID payroll.EmployeeID) ([]payroll.GarnishmentOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, mode::text, value::text, priority, active, start_date::text, end_date::text
		FROM garnishments
		WHERE employee_id::text = $1
		ORDER BY priority, id
	`, string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("failed to query garnishments: %w", err)
	}
	defer rows.Close()

	var result []payroll.GarnishmentOrder
	for rows.Next() {
		o := payroll.GarnishmentOrder{EmployeeID: employeeID}
		var id, mode, value, start string
		var end *string
		if err := rows.Scan(&id, &mode, &value, &o.Priority, &o.Active, &start, &end); err != nil {
			return nil, err
		}
		o.ID = payroll.GarnishmentID(id)
		o.Mode = payroll.GarnishmentMode(mode)
		if o.Value, err = parseDecimal("garnishment value", value); err != nil {
			return nil, err
		}
		if o.Start, err = parseDate("garnishment start", start); err != nil {
			return nil, err
		}
		if end != nil && *end != "" {
			d, err := parseDate("garnishment end", *end)
			if err != nil {
				return nil, err
			}
			o.End = &d
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// ExchangeRate returns the latest rate effective on or before asOf, falling
// back to the latest rate overall. Nil when the table is empty.
func (s *Source) ExchangeRate(ctx context.Context, asOf payroll.Date) (*payroll.ExchangeRate, error) {
	r, err := s.scanRate(ctx, `
		SELECT effective_date::text, crc_per_usd::text FROM exchange_rates
		WHERE effective_date::date <= $1::date
		ORDER BY effective_date DESC LIMIT 1
	`, asOf.String())
	if err != nil || r != nil {
		return r, err
	}
	return s.scanRate(ctx,
		"SELECT effective_date::text, crc_per_usd::text FROM exchange_rates ORDER BY effective_date DESC LIMIT 1",
	)
}

func (s *Source) scanRate(ctx context.Context, query string, args ...any) (*payroll.ExchangeRate, error) {
	var date, rate string
	err := s.pool.QueryRow(ctx, query, args...).Scan(&date, &rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rate: %w", err)
	}

	r := &payroll.ExchangeRate{}
	if r.EffectiveDate, err = parseDate("exchange rate date", date); err != nil {
		return nil, err
	}
	if r.CRCPerUSD, err = parseDecimal("crc_per_usd", rate); err != nil {
		return nil, err
	}
	return r, nil
}

// ListEmployeeIDs implements payroll.EmployeeLister.
func (s *Source) ListEmployeeIDs(ctx context.Context) ([]payroll.EmployeeID, error) {
	rows, err := s.pool.Query(ctx, "SELECT id::text FROM employees WHERE active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	ids := make([]payroll.EmployeeID, len(raw))
	for i, v := range raw {
		ids[i] = payroll.EmployeeID(v)
	}
	return ids, nil
}

// Helper functions

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", column, value, err)
	}
	return d, nil
}

func parseDate(column, value string) (payroll.Date, error) {
	d, err := payroll.ParseDate(value)
	if err != nil {
		return payroll.Date{}, fmt.Errorf("invalid %s: %w", column, err)
	}
	return d, nil
}
