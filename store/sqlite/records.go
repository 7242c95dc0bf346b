package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// POSITION STORE
// =============================================================================

// Position is a job position carrying the default salary of its employees.
type Position struct {
	ID         string
	Name       string
	SalaryType payroll.SalaryType
	Amount     decimal.Decimal
	Currency   payroll.Currency
	CreatedAt  time.Time
}

// SavePosition inserts or updates a position.
func (s *Store) SavePosition(ctx context.Context, p Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Currency == "" {
		p.Currency = payroll.CRC
	}

	query := `
		INSERT INTO positions (id, name, salary_type, salary_amount, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			salary_type = excluded.salary_type,
			salary_amount = excluded.salary_amount,
			currency = excluded.currency
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, string(p.SalaryType), p.Amount.String(), string(p.Currency), now(),
	)
	return err
}

// GetPosition retrieves a position by ID.
func (s *Store) GetPosition(ctx context.Context, id string) (*Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Position
	var salaryType, amount, currency, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, salary_type, salary_amount, currency, created_at FROM positions WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &salaryType, &amount, &currency, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.SalaryType = payroll.SalaryType(salaryType)
	p.Currency = payroll.Currency(currency)
	if p.Amount, err = parseDecimal("salary_amount", amount); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee is an employee row. The override and cap fields are only
// persisted when the database has the matching optional columns.
type Employee struct {
	ID                 string
	Name               string
	Email              string
	PositionID         string
	OverrideSalaryType payroll.SalaryType
	OverrideAmount     *decimal.Decimal
	OverrideCurrency   payroll.Currency
	GarnishCapRate     *decimal.Decimal
	DisplayCurrency    payroll.Currency
	Active             bool
	CreatedAt          time.Time
}

// SaveEmployee inserts or updates an employee. Setting a field whose column
// is missing from this database is an error rather than a silent drop.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols := []string{"id", "name", "email", "position_id", "active", "created_at"}
	args := []any{emp.ID, emp.Name, nullString(emp.Email), nullString(emp.PositionID), emp.Active, now()}

	optional := []struct {
		present bool
		set     bool
		column  string
		value   any
	}{
		{s.features.EmployeeOverride, emp.OverrideSalaryType != "", "override_salary_type", nullString(string(emp.OverrideSalaryType))},
		{s.features.EmployeeOverride, emp.OverrideAmount != nil, "override_amount", nullDecimal(emp.OverrideAmount)},
		{s.features.EmployeeOverride, emp.OverrideCurrency != "", "override_currency", nullString(string(emp.OverrideCurrency))},
		{s.features.EmployeeCapRate, emp.GarnishCapRate != nil, "garnish_cap_rate", nullDecimal(emp.GarnishCapRate)},
		{s.features.EmployeeDisplayCurrency, emp.DisplayCurrency != "", "display_currency", nullString(string(emp.DisplayCurrency))},
	}
	for _, o := range optional {
		if !o.present {
			if o.set {
				return fmt.Errorf("%w: employees.%s is not available in this database", payroll.ErrInvalidInput, o.column)
			}
			continue
		}
		cols = append(cols, o.column)
		args = append(args, o.value)
	}

	var updates []string
	for _, c := range cols {
		if c == "id" || c == "created_at" {
			continue
		}
		updates = append(updates, c+" = excluded."+c)
	}

	query := fmt.Sprintf(
		"INSERT INTO employees (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "),
	)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		emp                       Employee
		email, positionID         sql.NullString
		createdAt                 string
		overType, overCurrency    sql.NullString
		overAmount, capRate, disp sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, position_id, active, created_at FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &email, &positionID, &emp.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	emp.Email = email.String
	emp.PositionID = positionID.String
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	// Optional columns reuse the compensation query, which already
	// substitutes NULL for whatever this database lacks.
	var posType, posAmount, posCurrency sql.NullString
	if err := s.db.QueryRowContext(ctx, s.compensationQuery, id).Scan(
		new(string),
		&posType, &posAmount, &posCurrency,
		&overType, &overAmount, &overCurrency,
		&capRate, &disp,
	); err != nil {
		return nil, err
	}
	emp.OverrideSalaryType = payroll.SalaryType(overType.String)
	emp.OverrideCurrency = payroll.Currency(overCurrency.String)
	emp.DisplayCurrency = payroll.Currency(disp.String)
	if emp.OverrideAmount, err = parseNullDecimal("override_amount", overAmount); err != nil {
		return nil, err
	}
	if emp.GarnishCapRate, err = parseNullDecimal("garnish_cap_rate", capRate); err != nil {
		return nil, err
	}
	return &emp, nil
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

// AddAttendance appends raw clock rows in a single transaction. Times are
// stored as received; the engine parses them.
func (s *Store) AddAttendance(ctx context.Context, rows ...payroll.AttendanceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO attendance (employee_id, date, check_in, check_out, created_at) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := now()
	for _, r := range rows {
		if r.EmployeeID == "" || r.Date.IsZero() {
			return fmt.Errorf("%w: attendance row needs an employee and a date", payroll.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx,
			string(r.EmployeeID), r.Date.String(), r.CheckIn, nullString(r.CheckOut), ts,
		); err != nil {
			return fmt.Errorf("failed to insert attendance: %w", err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a paid holiday on the company calendar.
type Holiday struct {
	Date payroll.Date
	Name string
}

// SaveHoliday saves a holiday. Saving an existing date renames it.
func (s *Store) SaveHoliday(ctx context.Context, h Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (date, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query, h.Date.String(), h.Name, now())
	return err
}

// DeleteHoliday removes the holiday on the given date.
func (s *Store) DeleteHoliday(ctx context.Context, date payroll.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE date = ?", date.String())
	return err
}

// ListHolidays returns the holidays of a calendar year, or all of them when
// year is 0.
func (s *Store) ListHolidays(ctx context.Context, year int) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT date, name FROM holidays ORDER BY date"
	var args []any
	if year != 0 {
		query = "SELECT date, name FROM holidays WHERE date BETWEEN ? AND ? ORDER BY date"
		args = []any{fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		var date string
		if err := rows.Scan(&date, &h.Name); err != nil {
			return nil, err
		}
		if h.Date, err = parseDate("holiday date", date); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// SICK LEAVE AND GARNISHMENTS
// =============================================================================

// SaveSickLeave inserts or updates a sick leave range, assigning an ID when
// the leave has none. Returns the ID.
func (s *Store) SaveSickLeave(ctx context.Context, l payroll.SickLeave) (string, error) {
	if l.End.Before(l.Start) {
		return "", fmt.Errorf("%w: sick leave ends before it starts", payroll.ErrInvalidInput)
	}
	switch l.Adjustment {
	case payroll.SickNone, payroll.SickHalf, payroll.SickZero:
	default:
		return "", fmt.Errorf("%w: unknown sick adjustment %q", payroll.ErrInvalidInput, l.Adjustment)
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sick_leaves (id, employee_id, start_date, end_date, adjustment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			adjustment = excluded.adjustment
	`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, string(l.EmployeeID), l.Start.String(), l.End.String(), string(l.Adjustment), now(),
	)
	if err != nil {
		return "", err
	}
	return l.ID, nil
}

// SaveGarnishment inserts or updates a garnishment order, assigning an ID
// when the order has none. The mode is stored as given; an unknown mode
// fails the employee's next computation.
func (s *Store) SaveGarnishment(ctx context.Context, o payroll.GarnishmentOrder) (payroll.GarnishmentID, error) {
	if o.ID == "" {
		o.ID = payroll.GarnishmentID(uuid.NewString())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO garnishments (id, employee_id, mode, value, priority, active, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			value = excluded.value,
			priority = excluded.priority,
			active = excluded.active,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`
	_, err := s.db.ExecContext(ctx, query,
		string(o.ID), string(o.EmployeeID), string(o.Mode), o.Value.String(), o.Priority, o.Active,
		o.Start.String(), nullDate(o.End), now(),
	)
	if err != nil {
		return "", err
	}
	return o.ID, nil
}

// =============================================================================
// EXCHANGE RATES
// =============================================================================

// SaveExchangeRate stores the CRC per USD rate effective from a date.
func (s *Store) SaveExchangeRate(ctx context.Context, r payroll.ExchangeRate) error {
	if !r.CRCPerUSD.IsPositive() {
		return fmt.Errorf("%w: exchange rate must be positive", payroll.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO exchange_rates (effective_date, crc_per_usd, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(effective_date) DO UPDATE SET
			crc_per_usd = excluded.crc_per_usd
	`
	_, err := s.db.ExecContext(ctx, query, r.EffectiveDate.String(), r.CRCPerUSD.String(), now())
	return err
}

// ListExchangeRates returns every stored rate, newest first.
func (s *Store) ListExchangeRates(ctx context.Context) ([]payroll.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT effective_date, crc_per_usd FROM exchange_rates ORDER BY effective_date DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []payroll.ExchangeRate
	for rows.Next() {
		var r payroll.ExchangeRate
		var date, rate string
		if err := rows.Scan(&date, &rate); err != nil {
			return nil, err
		}
		if r.EffectiveDate, err = parseDate("exchange rate date", date); err != nil {
			return nil, err
		}
		if r.CRCPerUSD, err = parseDecimal("crc_per_usd", rate); err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// =============================================================================
// POLICY SETTINGS
// =============================================================================

const policyKey = "payroll_policy"

// PolicyRecord is the stored payroll policy document.
type PolicyRecord struct {
	ConfigJSON string
	Version    int
	UpdatedAt  time.Time
}

// SavePolicy stores the policy JSON, bumping its version.
func (s *Store) SavePolicy(ctx context.Context, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO settings (key, value_json, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value_json = excluded.value_json,
			version = settings.version + 1,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, policyKey, configJSON, now())
	return err
}

// LoadPolicy returns the stored policy document, or nil if none was saved.
func (s *Store) LoadPolicy(ctx context.Context) (*PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PolicyRecord
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT value_json, version, updated_at FROM settings WHERE key = ?",
		policyKey,
	).Scan(&p.ConfigJSON, &p.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}
