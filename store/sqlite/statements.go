package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// STATEMENT SNAPSHOTS
// =============================================================================

// StatementRecord is a persisted statement. SnapshotJSON holds the full
// statement as served by the API; Gross and Net are kept in columns for
// listing without decoding it.
type StatementRecord struct {
	ID           string
	EmployeeID   payroll.EmployeeID
	Period       payroll.Period
	Gross        decimal.Decimal
	Net          decimal.Decimal
	SnapshotJSON string
	CreatedAt    time.Time
}

// SaveStatement stores a statement snapshot. Recomputing the same employee
// and period replaces the snapshot and keeps the original ID.
func (s *Store) SaveStatement(ctx context.Context, rec StatementRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO statements (id, employee_id, period_start, period_end, gross, net, snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, period_start, period_end) DO UPDATE SET
			gross = excluded.gross,
			net = excluded.net,
			snapshot_json = excluded.snapshot_json,
			created_at = excluded.created_at
		RETURNING id
	`
	var id string
	err := s.db.QueryRowContext(ctx, query,
		rec.ID, string(rec.EmployeeID), rec.Period.Start.String(), rec.Period.End.String(),
		rec.Gross.String(), rec.Net.String(), rec.SnapshotJSON, now(),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save statement: %w", err)
	}
	return id, nil
}

// GetStatement retrieves the snapshot for an employee and period, or nil.
func (s *Store) GetStatement(ctx context.Context, employeeID payroll.EmployeeID, period payroll.Period) (*StatementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := StatementRecord{EmployeeID: employeeID, Period: period}
	var gross, net, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, gross, net, snapshot_json, created_at
		FROM statements
		WHERE employee_id = ? AND period_start = ? AND period_end = ?
	`, string(employeeID), period.Start.String(), period.End.String(),
	).Scan(&rec.ID, &gross, &net, &rec.SnapshotJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if rec.Gross, err = parseDecimal("gross", gross); err != nil {
		return nil, err
	}
	if rec.Net, err = parseDecimal("net", net); err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

// =============================================================================
// STATEMENT RUNS STORE
// =============================================================================

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ErrRunExists is returned by StartRun when the period already has a
// running or completed run.
var ErrRunExists = errors.New("statement run already exists for period")

// StatementRun records one batch computation over a pay period.
type StatementRun struct {
	ID          string
	Period      payroll.Period
	Status      RunStatus
	Employees   int
	Failed      int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// StartRun claims a pay period for a batch run. A previous failed or
// pending run for the same period is reused; a running or completed one
// returns ErrRunExists.
func (s *Store) StartRun(ctx context.Context, period payroll.Period) (*StatementRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := time.Now().UTC().Truncate(time.Second)
	run := &StatementRun{
		ID:        uuid.NewString(),
		Period:    period,
		Status:    RunRunning,
		StartedAt: &t,
		CreatedAt: t,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statement_runs (id, period_start, period_end, status, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, period.Start.String(), period.End.String(), string(RunRunning),
		t.Format(time.RFC3339), t.Format(time.RFC3339))
	if err == nil {
		return run, nil
	}
	if !isUniqueConstraintError(err) {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	var createdAt string
	err = s.db.QueryRowContext(ctx, `
		UPDATE statement_runs
		SET status = ?, error = NULL, employees = 0, failed = 0, started_at = ?, completed_at = NULL
		WHERE period_start = ? AND period_end = ? AND status IN (?, ?)
		RETURNING id, created_at
	`, string(RunRunning), t.Format(time.RFC3339), period.Start.String(), period.End.String(),
		string(RunPending), string(RunFailed),
	).Scan(&run.ID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, period)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restart run: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return run, nil
}

// SaveRun saves a statement run.
func (s *Store) SaveRun(ctx context.Context, r StatementRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO statement_runs (id, period_start, period_end, status,
			employees, failed, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period_start, period_end) DO UPDATE SET
			status = excluded.status,
			employees = excluded.employees,
			failed = excluded.failed,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Period.Start.String(), r.Period.End.String(), string(r.Status),
		r.Employees, r.Failed, nullString(r.Error),
		nullTime(r.StartedAt), nullTime(r.CompletedAt), r.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// ListRuns returns statement runs, newest period first, optionally filtered
// by status.
func (s *Store) ListRuns(ctx context.Context, status RunStatus) ([]StatementRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, period_start, period_end, status, employees, failed,
			error, started_at, completed_at, created_at
		FROM statement_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY period_start DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []StatementRun
	for rows.Next() {
		var r StatementRun
		var status, periodStart, periodEnd, createdAt string
		var errText, startedAt, completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &periodStart, &periodEnd, &status, &r.Employees, &r.Failed,
			&errText, &startedAt, &completedAt, &createdAt,
		); err != nil {
			return nil, err
		}

		r.Status = RunStatus(status)
		r.Error = errText.String
		if r.Period.Start, err = parseDate("run period start", periodStart); err != nil {
			return nil, err
		}
		if r.Period.End, err = parseDate("run period end", periodEnd); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if startedAt.Valid {
			t, _ := time.Parse(time.RFC3339, startedAt.String)
			r.StartedAt = &t
		}
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// IsRunComplete checks if a batch for the period has already completed.
func (s *Store) IsRunComplete(ctx context.Context, period payroll.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM statement_runs
		WHERE period_start = ? AND period_end = ? AND status = ?
	`

	var count int
	err := s.db.QueryRowContext(ctx, query,
		period.Start.String(), period.End.String(), string(RunCompleted),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
