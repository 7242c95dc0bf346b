/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (the HTTP layer) turn these into user-facing messages; the
  engine itself never logs.

ERROR CATEGORIES:
  1. Record anomalies - a bad interval or timestamp; skipped, reported on
     the statement, never fatal
  2. Employee anomalies - no compensation, no exchange rate, bad garnishment
     mode; abort that employee's computation
  3. Request errors - malformed periods or policies

SEE ALSO:
  - engine.go: Decides which errors are skipped and which abort
*/
package payroll

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInterval is returned for a clock pair whose end is not after
	// its start. Dropped, never fatal.
	ErrInvalidInterval = errors.New("invalid interval: end not after start")

	// ErrUnparseableTime is returned when no accepted layout matches.
	ErrUnparseableTime = errors.New("unparseable time")

	// ErrInvalidCompensation is returned when no positive hourly rate can be
	// resolved for an employee.
	ErrInvalidCompensation = errors.New("invalid compensation")

	// ErrMissingExchangeRate is returned when a CRC/USD conversion is needed
	// and no rate is available.
	ErrMissingExchangeRate = errors.New("missing exchange rate")

	// ErrInvalidGarnishmentMode is returned for an order whose mode is neither
	// percent nor amount.
	ErrInvalidGarnishmentMode = errors.New("invalid garnishment mode")

	// ErrInvalidPeriod is returned when a period is malformed (end before
	// start, missing bound, longer than MaxPeriodDays).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidPolicy is returned by PayrollPolicy.Validate.
	ErrInvalidPolicy = errors.New("invalid payroll policy")

	// ErrEmployeeNotFound is returned by sources for unknown employees.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidInput is returned when a record written to a store is
	// malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IntervalError describes an attendance row that was skipped.
type IntervalError struct {
	EmployeeID EmployeeID
	Date       Date
	Start      time.Time
	End        time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval on %s: %s -> %s",
		e.Date, e.Start.Format("15:04"), e.End.Format("15:04"))
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// TimeParseError carries the raw value that failed to parse.
type TimeParseError struct {
	Raw string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("unparseable time %q", e.Raw)
}

func (e *TimeParseError) Unwrap() error { return ErrUnparseableTime }

// CompensationError explains why no rate could be resolved.
type CompensationError struct {
	EmployeeID EmployeeID
	Reason     string
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("invalid compensation for %s: %s", e.EmployeeID, e.Reason)
}

func (e *CompensationError) Unwrap() error { return ErrInvalidCompensation }

// GarnishmentModeError names the offending order.
type GarnishmentModeError struct {
	GarnishmentID GarnishmentID
	Mode          GarnishmentMode
}

func (e *GarnishmentModeError) Error() string {
	return fmt.Sprintf("garnishment %s: unknown mode %q", e.GarnishmentID, e.Mode)
}

func (e *GarnishmentModeError) Unwrap() error { return ErrInvalidGarnishmentMode }

// =============================================================================
// ANOMALY - A skipped record, reported on the statement
// =============================================================================

// Anomaly is a per-record problem that did not abort the computation.
type Anomaly struct {
	Date   Date
	Reason string
	Err    error
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrUnparseableTime) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidInput)
}

// IsUnprocessable returns true for employee-level data problems that abort a
// computation.
func IsUnprocessable(err error) bool {
	return errors.Is(err, ErrInvalidCompensation) ||
		errors.Is(err, ErrMissingExchangeRate) ||
		errors.Is(err, ErrInvalidGarnishmentMode)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}
