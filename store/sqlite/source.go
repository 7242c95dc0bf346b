package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// payroll.Source
// =============================================================================

// Attendance returns raw clock rows for the employee within the period.
func (s *Store) Attendance(ctx context.Context, employeeID payroll.EmployeeID, period payroll.Period) ([]payroll.AttendanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, date, check_in, COALESCE(check_out, '')
		FROM attendance
		WHERE employee_id = ? AND date BETWEEN ? AND ?
		ORDER BY date, id
	`, string(employeeID), period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var result []payroll.AttendanceRow
	for rows.Next() {
		var r payroll.AttendanceRow
		var empID, date string
		if err := rows.Scan(&empID, &date, &r.CheckIn, &r.CheckOut); err != nil {
			return nil, err
		}
		r.EmployeeID = payroll.EmployeeID(empID)
		if r.Date, err = parseDate("attendance date", date); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Holidays returns holiday dates within the period.
func (s *Store) Holidays(ctx context.Context, period payroll.Period) ([]payroll.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT date FROM holidays WHERE date BETWEEN ? AND ? ORDER BY date",
		period.Start.String(), period.End.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var result []payroll.Date
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		d, err := parseDate("holiday date", date)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// SickLeaves returns the employee's sick leaves overlapping the period.
func (s *Store) SickLeaves(ctx context.Context, employeeID payroll.EmployeeID, period payroll.Period) ([]payroll.SickLeave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, start_date, end_date, adjustment
		FROM sick_leaves
		WHERE employee_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date
	`, string(employeeID), period.End.String(), period.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query sick leaves: %w", err)
	}
	defer rows.Close()

	var result []payroll.SickLeave
	for rows.Next() {
		var l payroll.SickLeave
		var empID, start, end, adj string
		if err := rows.Scan(&l.ID, &empID, &start, &end, &adj); err != nil {
			return nil, err
		}
		l.EmployeeID = payroll.EmployeeID(empID)
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

// Compensation returns the employee's salary sources. The query shape comes
// from the schema features detected at startup.
func (s *Store) Compensation(ctx context.Context, employeeID payroll.EmployeeID) (payroll.EmployeeCompensation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		id                                 string
		posType, posAmount, posCurrency    sql.NullString
		overType, overAmount, overCurrency sql.NullString
		capRate, displayCurrency           sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.compensationQuery, string(employeeID)).Scan(
		&id,
		&posType, &posAmount, &posCurrency,
		&overType, &overAmount, &overCurrency,
		&capRate, &displayCurrency,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.EmployeeCompensation{}, fmt.Errorf("%w: %s", payroll.ErrEmployeeNotFound, employeeID)
	}
	if err != nil {
		return payroll.EmployeeCompensation{}, fmt.Errorf("failed to query compensation: %w", err)
	}

	comp := payroll.EmployeeCompensation{
		EmployeeID:      payroll.EmployeeID(id),
		DisplayCurrency: payroll.Currency(displayCurrency.String),
	}
	if comp.Position, err = compensationSource(payroll.CompensationPosition, posType, posAmount, posCurrency); err != nil {
		return payroll.EmployeeCompensation{}, err
	}
	if comp.Override, err = compensationSource(payroll.CompensationOverride, overType, overAmount, overCurrency); err != nil {
		return payroll.EmployeeCompensation{}, err
	}
	if comp.GarnishCapRate, err = parseNullDecimal("garnish_cap_rate", capRate); err != nil {
		return payroll.EmployeeCompensation{}, err
	}
	return comp, nil
}

func compensationSource(kind payroll.CompensationType, salaryType, amount, currency sql.NullString) (*payroll.CompensationSource, error) {
	if !salaryType.Valid || !amount.Valid || amount.String == "" {
		return nil, nil
	}
	v, err := parseDecimal(string(kind)+" salary amount", amount.String)
	if err != nil {
		return nil, err
	}
	cur := payroll.Currency(currency.String)
	if cur == "" {
		cur = payroll.CRC
	}
	return &payroll.CompensationSource{
		Type:       kind,
		SalaryType: payroll.SalaryType(salaryType.String),
		Amount:     v,
		Currency:   cur,
	}, nil
}

// Garnishments returns every order for the employee.
func (s *Store) Garnishments(ctx context.Context, employeeID payroll.EmployeeID) ([]payroll.GarnishmentOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, mode, value, priority, active, start_date, end_date
		FROM garnishments
		WHERE employee_id = ?
		ORDER BY priority, id
	`, string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("failed to query garnishments: %w", err)
	}
	defer rows.Close()

	var result []payroll.GarnishmentOrder
	for rows.Next() {
		var (
			o                      payroll.GarnishmentOrder
			id, empID, mode, value string
			start                  string
			end                    sql.NullString
		)
		if err := rows.Scan(&id, &empID, &mode, &value, &o.Priority, &o.Active, &start, &end); err != nil {
			return nil, err
		}
		o.ID = payroll.GarnishmentID(id)
		o.EmployeeID = payroll.EmployeeID(empID)
		o.Mode = payroll.GarnishmentMode(mode)
		if o.Value, err = parseDecimal("garnishment value", value); err != nil {
			return nil, err
		}
		if o.Start, err = parseDate("garnishment start", start); err != nil {
			return nil, err
		}
		if end.Valid && end.String != "" {
			d, err := parseDate("garnishment end", end.String)
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
func (s *Store) ExchangeRate(ctx context.Context, asOf payroll.Date) (*payroll.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.scanRate(ctx,
		"SELECT effective_date, crc_per_usd FROM exchange_rates WHERE effective_date <= ? ORDER BY effective_date DESC LIMIT 1",
		asOf.String(),
	)
	if err != nil || r != nil {
		return r, err
	}
	return s.scanRate(ctx, "SELECT effective_date, crc_per_usd FROM exchange_rates ORDER BY effective_date DESC LIMIT 1")
}

func (s *Store) scanRate(ctx context.Context, query string, args ...any) (*payroll.ExchangeRate, error) {
	var date, rate string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&date, &rate)
	if errors.Is(err, sql.ErrNoRows) {
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
func (s *Store) ListEmployeeIDs(ctx context.Context) ([]payroll.EmployeeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM employees WHERE active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var ids []payroll.EmployeeID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, payroll.EmployeeID(id))
	}
	return ids, rows.Err()
}
