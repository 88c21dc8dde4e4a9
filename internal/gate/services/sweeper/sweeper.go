// Package sweeper periodically garbage-collects expired timer rules so
// lapsed countdown blocks disappear even when no navigation touches them.
package sweeper

import (
	"context"
	"time"

	"github.com/haukened/sitegate/internal/gate/common/clock"
	"github.com/haukened/sitegate/internal/gate/common/log"
)

// TimerPurger is the slice of the rules repository the sweeper needs.
type TimerPurger interface {
	PurgeExpiredTimers(now time.Time) (int, error)
}

// Sweeper drives periodic purges on a fixed interval.
type Sweeper struct {
	rules    TimerPurger
	clk      clock.Clock
	logger   log.Logger
	interval time.Duration
}

// New constructs a Sweeper. A non-positive interval falls back to the
// default of one minute.
func New(rules TimerPurger, clk clock.Clock, logger log.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{rules: rules, clk: clk, logger: logger, interval: interval}
}

// Run purges once immediately (startup sweep), then on every tick until
// the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	purged, err := s.rules.PurgeExpiredTimers(s.clk.Now())
	if err != nil {
		s.logger.Error(map[string]any{"error": err.Error()}, "Timer sweep failed")
		return
	}
	if purged > 0 {
		s.logger.Info(map[string]any{"purged": purged}, "Expired timers removed")
	}
}
