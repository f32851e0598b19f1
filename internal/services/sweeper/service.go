// Package sweeper schedules the clearance of aged pending commissions. The
// actual transition lives in the ledger; this package adds the clearance
// window, the fixed-interval runner, and the single-flight guard that keeps
// a slow sweep from overlapping the next one.
package sweeper

import (
	"context"
	"errors"
	"log"
	"time"

	"refpay/internal/services/ledger"
)

// DefaultClearWindowDays models the return/chargeback window.
const DefaultClearWindowDays = 14

// ErrSweepInProgress is returned when a sweep is requested while another is
// still running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// Service runs clearance sweeps on demand or on a fixed interval.
type Service struct {
	ledger          ledger.Service
	clearWindowDays int

	inFlight chan struct{}

	// now is swapped out by tests.
	now func() time.Time
}

// NewService creates a sweeper. clearWindowDays <= 0 falls back to the
// default window.
func NewService(ledgerSvc ledger.Service, clearWindowDays int) *Service {
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if clearWindowDays <= 0 {
		clearWindowDays = DefaultClearWindowDays
	}
	s := &Service{
		ledger:          ledgerSvc,
		clearWindowDays: clearWindowDays,
		inFlight:        make(chan struct{}, 1),
		now:             time.Now,
	}
	s.inFlight <- struct{}{}
	return s
}

// Sweep promotes every commission that has been pending for at least the
// clearance window. Running it twice in a row is a no-op the second time.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	select {
	case <-s.inFlight:
	default:
		return 0, ErrSweepInProgress
	}
	defer func() { s.inFlight <- struct{}{} }()

	cutoff := s.now().AddDate(0, 0, -s.clearWindowDays)
	cleared, err := s.ledger.ClearPending(ctx, cutoff)
	if err != nil {
		return cleared, err
	}
	if cleared > 0 {
		log.Printf("sweeper: cleared %d commissions pending since before %s", cleared, cutoff.Format(time.RFC3339))
	}
	return cleared, nil
}

// Run sweeps on a fixed interval until the context is canceled. Intended to
// run in its own goroutine from main.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
				log.Printf("sweeper: sweep failed: %v", err)
			}
		}
	}
}
