/*
scheduler.go - Automated statement scheduler

PURPOSE:
  Periodically checks whether the last closed pay period has statements
  and, if not, runs the batch for every active employee.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses the active policy's pay period to find the last closed period
  - Skips periods whose run already completed
  - Run records (statement_runs) give the audit trail

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewStatementScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunPeriod (shared with POST /api/statements/run)
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/payroll-engine/store/sqlite"
)

// StatementScheduler runs closed pay periods automatically.
type StatementScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatementScheduler creates a new scheduler.
func NewStatementScheduler(handler *Handler) *StatementScheduler {
	return &StatementScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler. It does nothing when disabled or when the
// handler has no store to write to.
func (s *StatementScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.Handler.Log
	if !s.Enabled || s.Handler.Store == nil {
		log.Info().Bool("enabled", s.Enabled).Bool("read_only", s.Handler.Store == nil).Msg("scheduler not started")
		return
	}
	if s.ticker != nil {
		return
	}

	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	log.Info().Dur("interval", s.CheckInterval).Msg("scheduler started")
}

// Stop stops the scheduler and waits for an in-flight check.
func (s *StatementScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Handler.Log.Info().Msg("scheduler stopped")
	}
}

func (s *StatementScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run immediately on start
	s.CheckAndRun(ctx)

	for {
		select {
		case <-ticker.C:
			s.CheckAndRun(ctx)
		case <-stop:
			return
		}
	}
}

// CheckAndRun runs the last closed pay period unless its run is complete.
// It reports whether a run was started.
func (s *StatementScheduler) CheckAndRun(ctx context.Context) bool {
	h := s.Handler
	period := h.Policy().PayPeriod.PreviousPeriod(h.today())
	log := h.Log.With().Str("period", period.String()).Logger()

	done, err := h.Store.IsRunComplete(ctx, period)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: failed to check run status")
		return false
	}
	if done {
		log.Debug().Msg("scheduler: period already run")
		return false
	}

	if _, _, err := h.RunPeriod(ctx, period); err != nil {
		if errors.Is(err, sqlite.ErrRunExists) {
			log.Debug().Msg("scheduler: run in progress elsewhere")
		} else {
			log.Error().Err(err).Msg("scheduler: statement run failed")
		}
		return false
	}
	return true
}
