package app

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultSweepInterval is how often deadlines are checked.
	DefaultSweepInterval = time.Minute
	// DefaultCleanupGrace is how long terminal challenges are retained
	// before deletion.
	DefaultCleanupGrace = 30 * 24 * time.Hour
)

// Sweeper periodically expires overdue challenges and deletes terminal
// ones past their retention window.
type Sweeper struct {
	service  *Service
	clock    clockwork.Clock
	interval time.Duration
	grace    time.Duration
}

// NewSweeper creates a sweeper over the given service. A nil clock uses
// the real one; non-positive durations fall back to the defaults.
func NewSweeper(service *Service, clock clockwork.Clock, interval, grace time.Duration) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if grace <= 0 {
		grace = DefaultCleanupGrace
	}
	return &Sweeper{service: service, clock: clock, interval: interval, grace: grace}
}

// Run sweeps on the configured interval until the context is cancelled.
// A failed pass is logged and retried on the next tick.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			w.sweepOnce(ctx)
		}
	}
}

func (w *Sweeper) sweepOnce(ctx context.Context) {
	expired, err := w.service.SweepExpirations(ctx)
	if err != nil {
		log.Printf("sweep expirations: %v", err)
	} else if len(expired) > 0 {
		log.Printf("expired %d overdue challenges", len(expired))
	}

	deleted, err := w.service.SweepCleanup(ctx, w.grace)
	if err != nil {
		log.Printf("sweep cleanup: %v", err)
	} else if len(deleted) > 0 {
		log.Printf("deleted %d terminal challenges past retention", len(deleted))
	}
}
