/*
Package sqlite provides a SQLite-backed implementation of the payroll storage.

PURPOSE:
  Persists the HR inputs the engine reads (positions, employees, attendance,
  holidays, sick leave, garnishments, exchange rates), the payroll policy
  settings row, computed statement snapshots and batch run records.

INTERFACES IMPLEMENTED:
  payroll.Source:         Engine inputs for one employee and period
  payroll.EmployeeLister: Active employees for batch runs

KEY TABLES:
  positions:       Position-level salary (monthly/hourly, CRC/USD)
  employees:       Position link, personal override, garnishment cap
  attendance:      Raw clock rows; times kept as TEXT, parsed by the engine
  holidays:        Paid holiday calendar
  sick_leaves:     Approved sick leave ranges with pay adjustment
  garnishments:    Wage garnishment orders
  exchange_rates:  CRC per USD by effective date
  settings:        Single payroll policy JSON document
  statements:      Snapshot of each computed statement
  statement_runs:  Batch run history (one row per pay period)

SCHEMA FEATURES:
  Older databases may lack optional employee columns. Which ones exist is
  detected once in New() (see features.go) and the read queries are built
  from that, never re-checked per row.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In-memory databases are pinned to a
  single connection so every query sees the same database.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewService(store, payroll.NewEngine(policy))

SEE ALSO:
  - payroll/source.go: Read contract
  - store/postgres/postgres.go: Read-only PostgreSQL source
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// Store implements the payroll storage using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	features Features

	compensationQuery string
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	features, err := detectFeatures(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to detect schema features: %w", err)
	}
	store.features = features
	store.compensationQuery = buildCompensationQuery(features)

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Features reports the optional schema columns found at startup.
func (s *Store) Features() Features {
	return s.features
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Positions
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		salary_type TEXT NOT NULL,
		salary_amount TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'CRC',
		created_at TEXT NOT NULL
	);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		position_id TEXT REFERENCES positions(id),
		override_salary_type TEXT,
		override_amount TEXT,
		override_currency TEXT,
		garnish_cap_rate TEXT,
		display_currency TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Attendance (raw clock rows)
	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		check_in TEXT NOT NULL,
		check_out TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: one employee, one period
	CREATE INDEX IF NOT EXISTS idx_attendance_employee_date
		ON attendance(employee_id, date);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Sick leave
	CREATE TABLE IF NOT EXISTS sick_leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		adjustment TEXT NOT NULL CHECK (adjustment IN ('none', 'half', 'zero')),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sick_leaves_employee
		ON sick_leaves(employee_id, start_date, end_date);

	-- Garnishment orders. Mode is free text: unknown modes are rejected by
	-- the engine at computation time.
	CREATE TABLE IF NOT EXISTS garnishments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		value TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		start_date TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_garnishments_employee
		ON garnishments(employee_id);

	-- Exchange rates (CRC per USD)
	CREATE TABLE IF NOT EXISTS exchange_rates (
		effective_date TEXT PRIMARY KEY,
		crc_per_usd TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Settings (payroll policy JSON)
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	-- Statement snapshots
	CREATE TABLE IF NOT EXISTS statements (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		gross TEXT NOT NULL,
		net TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, period_start, period_end)
	);

	-- Statement runs (batch history)
	CREATE TABLE IF NOT EXISTS statement_runs (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		employees INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_statement_runs_period
		ON statement_runs(period_start, period_end);
	CREATE INDEX IF NOT EXISTS idx_statement_runs_status
		ON statement_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"statement_runs", "statements", "settings", "exchange_rates", "garnishments",
		"sick_leaves", "holidays", "attendance", "employees", "positions",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullDate(d *payroll.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", column, value, err)
	}
	return d, nil
}

func parseNullDecimal(column string, v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := parseDecimal(column, v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDate(column, value string) (payroll.Date, error) {
	d, err := payroll.ParseDate(value)
	if err != nil {
		return payroll.Date{}, fmt.Errorf("invalid %s: %w", column, err)
	}
	return d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
