package worker

import (
	"context"
	"log"
	"time"

	"github.com/roamcars/booking-service/internal/service"
)

// Reclaimer periodically cancels bookings that were never paid within the
// timeout window, returning their cars to availability.
type Reclaimer struct {
	svc      service.BookingService
	clock    service.Clock
	window   time.Duration
	interval time.Duration
}

func NewReclaimer(svc service.BookingService, clock service.Clock, window, interval time.Duration) *Reclaimer {
	return &Reclaimer{
		svc:      svc,
		clock:    clock,
		window:   window,
		interval: interval,
	}
}

// Start runs the reclamation loop until ctx is cancelled. Each individual
// cancellation is atomic, so stopping mid-batch just leaves the remaining
// candidates for the next run.
func (r *Reclaimer) Start(ctx context.Context) {
	log.Printf("[Reclaimer] started (window=%s interval=%s)", r.window, r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Reclaimer] stopped")
			return
		case <-ticker.C:
			if _, err := r.RunPass(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[Reclaimer] pass failed: %v", err)
			}
		}
	}
}

// RunPass executes one reclamation pass. Exposed so tests and operators can
// drive a pass without waiting on the timer.
func (r *Reclaimer) RunPass(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.window)
	reclaimed, err := r.svc.ReclaimExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		log.Printf("[Reclaimer] cancelled %d expired unpaid booking(s)", reclaimed)
	}
	return reclaimed, nil
}
