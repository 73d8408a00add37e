package probe

import (
	"context"
	"time"
)

// DefaultSettlingInterval is the fixed wait between a reload and inspecting
// the log. The target exposes no readiness signal, so the probe waits long
// enough for a restart to finish printing its startup banner.
const DefaultSettlingInterval = 15 * time.Second

// Settler blocks for the settling interval after a reload.
type Settler interface {
	// Settle waits for d or until ctx is done, whichever comes first.
	Settle(ctx context.Context, d time.Duration) error
}

// SleepSettler waits on a one second ticker and reports the remaining time
// after each tick.
type SleepSettler struct {
	// OnTick receives the remaining wait. It may be nil.
	OnTick func(remaining time.Duration)
	// Tick is the reporting period; zero means one second.
	Tick time.Duration
}

// Settle implements Settler.
func (s *SleepSettler) Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	period := s.Tick
	if period <= 0 {
		period = time.Second
	}

	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	s.report(d)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			s.report(0)
			return nil
		case <-ticker.C:
			remaining := max(d-time.Since(start), 0)
			s.report(remaining.Round(period))
		}
	}
}

func (s *SleepSettler) report(remaining time.Duration) {
	if s.OnTick != nil {
		s.OnTick(remaining)
	}
}

// SettleFunc adapts a function to Settler.
type SettleFunc func(ctx context.Context, d time.Duration) error

// Settle implements Settler.
func (f SettleFunc) Settle(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}
