package core

import (
	"fmt"
	"time"
)

// DefaultInterval is the wall-clock time between generations.
const DefaultInterval = 200 * time.Millisecond

// FixedStep paces simulation ticks from a frame-driven loop (such as ebiten's
// Update) that runs faster than the simulation interval.
type FixedStep struct {
	step        time.Duration
	accumulator time.Duration
	last        time.Time
	now         func() time.Time
}

// NewFixedStep constructs a FixedStep controller firing once per interval.
// The first call to ShouldStep fires immediately.
func NewFixedStep(interval time.Duration) (*FixedStep, error) {
	fs := &FixedStep{now: time.Now}
	if err := fs.SetInterval(interval); err != nil {
		return nil, err
	}
	fs.accumulator = fs.step
	return fs, nil
}

// SetInterval changes the tick interval. It is safe to call from the main loop.
func (f *FixedStep) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	f.step = interval
	return nil
}

// Interval returns the configured step.
func (f *FixedStep) Interval() time.Duration { return f.step }

// ShouldStep reports whether the simulation should advance by one tick. At
// most one tick is reported per call so a stalled frame never triggers a
// burst of overlapping steps.
func (f *FixedStep) ShouldStep() bool {
	now := f.now()
	if f.last.IsZero() {
		f.last = now
	}
	delta := now.Sub(f.last)
	f.last = now
	f.accumulator += delta
	if f.accumulator >= f.step {
		f.accumulator -= f.step
		if f.accumulator > f.step {
			f.accumulator = f.step
		}
		return true
	}
	return false
}

// TickSource is a stoppable stream of tick events.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type tickerSource struct{ t *time.Ticker }

// NewTicker returns a TickSource backed by time.Ticker.
func NewTicker(interval time.Duration) (TickSource, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	return tickerSource{t: time.NewTicker(interval)}, nil
}

func (s tickerSource) C() <-chan time.Time { return s.t.C }
func (s tickerSource) Stop()               { s.t.Stop() }
