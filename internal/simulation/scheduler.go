package simulation

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultTickInterval is the fixed period between ticks.
const DefaultTickInterval = 5 * time.Second

// Ticker is what the scheduler drives.
type Ticker interface {
	Tick(ctx context.Context) (TickReport, error)
}

// Scheduler runs ticks at a fixed rate until its context is cancelled.
type Scheduler struct {
	target   Ticker
	interval time.Duration
}

// NewScheduler creates a scheduler. A non-positive interval selects DefaultTickInterval.
func NewScheduler(target Ticker, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{target: target, interval: interval}
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run blocks until ctx is done. A failed tick is logged and the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	log.WithField("interval", s.interval.String()).Info("Simulation scheduler started")
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Simulation scheduler stopped")
			return nil
		case <-t.C:
			if _, err := s.target.Tick(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("Simulation tick failed")
			}
		}
	}
}
