/*
source.go - Read contract for engine inputs

PURPOSE:
  Defines the interface between the engine and wherever HR data lives.
  The engine never reads storage itself; the Service fetches through a
  Source and hands plain values to Engine.Compute.

KEY INTERFACES:
  Source:         Per-employee reads for one period
  EmployeeLister: Enumerates employees for batch runs

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go:  SQLite (read/write)
  - store/postgres/postgres.go: PostgreSQL (read-only)

SEE ALSO:
  - service.go: Runs the six reads in parallel
*/
package payroll

import "context"

// =============================================================================
// SOURCE - Read-only inputs for one employee and period
// =============================================================================

type Source interface {
	// Attendance returns raw clock rows whose date lies in the period.
	Attendance(ctx context.Context, employeeID EmployeeID, period Period) ([]AttendanceRow, error)

	// Holidays returns holiday dates inside the period.
	Holidays(ctx context.Context, period Period) ([]Date, error)

	// SickLeaves returns approved sick leaves that overlap the period.
	SickLeaves(ctx context.Context, employeeID EmployeeID, period Period) ([]SickLeave, error)

	// Compensation returns the employee's salary sources and garnishment cap.
	// Returns ErrEmployeeNotFound for unknown employees.
	Compensation(ctx context.Context, employeeID EmployeeID) (EmployeeCompensation, error)

	// Garnishments returns the employee's garnishment orders. Filtering by
	// activity and period is done by the allocator.
	Garnishments(ctx context.Context, employeeID EmployeeID) ([]GarnishmentOrder, error)

	// ExchangeRate returns the latest rate effective on or before asOf, or the
	// latest rate overall if none is that old. Returns nil when no rate exists.
	ExchangeRate(ctx context.Context, asOf Date) (*ExchangeRate, error)
}

// EmployeeLister enumerates employees for batch statement runs.
type EmployeeLister interface {
	ListEmployeeIDs(ctx context.Context) ([]EmployeeID, error)
}
