package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// SERVICE - Fetches inputs and runs the engine
// =============================================================================

// Service reads engine inputs from a Source and computes statements.
type Service struct {
	Source Source
	Engine *Engine
}

func NewService(source Source, engine *Engine) *Service {
	return &Service{Source: source, Engine: engine}
}

// Preview computes a statement for one employee. The six reads are
// independent and run in parallel.
func (s *Service) Preview(ctx context.Context, employeeID EmployeeID, period Period) (*Statement, error) {
	in, err := s.Fetch(ctx, employeeID, period)
	if err != nil {
		return nil, err
	}
	return s.Engine.Compute(in)
}

// Fetch gathers the Input for one computation.
func (s *Service) Fetch(ctx context.Context, employeeID EmployeeID, period Period) (Input, error) {
	if err := period.Validate(); err != nil {
		return Input{}, err
	}

	in := Input{EmployeeID: employeeID, Period: period}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		comp, err := s.Source.Compensation(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("load compensation: %w", err)
		}
		in.Compensation = comp
		return nil
	})
	g.Go(func() error {
		rows, err := s.Source.Attendance(ctx, employeeID, period)
		if err != nil {
			return fmt.Errorf("load attendance: %w", err)
		}
		in.Attendance = rows
		return nil
	})
	g.Go(func() error {
		days, err := s.Source.Holidays(ctx, period)
		if err != nil {
			return fmt.Errorf("load holidays: %w", err)
		}
		in.Holidays = days
		return nil
	})
	g.Go(func() error {
		leaves, err := s.Source.SickLeaves(ctx, employeeID, period)
		if err != nil {
			return fmt.Errorf("load sick leaves: %w", err)
		}
		in.SickLeaves = leaves
		return nil
	})
	g.Go(func() error {
		orders, err := s.Source.Garnishments(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("load garnishments: %w", err)
		}
		in.Garnishments = orders
		return nil
	})
	g.Go(func() error {
		rate, err := s.Source.ExchangeRate(ctx, period.Start)
		if err != nil {
			return fmt.Errorf("load exchange rate: %w", err)
		}
		in.ExchangeRate = rate
		return nil
	})

	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// =============================================================================
// BATCH - Statements for many employees
// =============================================================================

// BatchResult holds the outcome of RunBatch. One employee failing does not
// stop the others.
type BatchResult struct {
	Period     Period
	Statements []*Statement
	Failures   map[EmployeeID]error
}

// RunBatch computes statements for ids with at most limit computations in
// flight. Only context cancellation aborts the batch.
func (s *Service) RunBatch(ctx context.Context, ids []EmployeeID, period Period, limit int) (*BatchResult, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}

	result := &BatchResult{Period: period, Failures: make(map[EmployeeID]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st, err := s.Preview(gctx, id, period)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures[id] = err
				return nil
			}
			result.Statements = append(result.Statements, st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Statements, func(i, j int) bool {
		return result.Statements[i].EmployeeID < result.Statements[j].EmployeeID
	})
	return result, nil
}

// RunAll lists every employee and runs a batch.
func (s *Service) RunAll(ctx context.Context, lister EmployeeLister, period Period, limit int) (*BatchResult, error) {
	ids, err := lister.ListEmployeeIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return s.RunBatch(ctx, ids, period, limit)
}
