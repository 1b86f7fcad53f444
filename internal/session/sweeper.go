package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Sweepable interface {
	Sweep() int
	Len() int
}

// Sweeper periodically evicts expired sessions whether or not anyone ever
// asked for them.
type Sweeper struct {
	store    Sweepable
	interval time.Duration
	log      *zap.Logger
	onSweep  func(removed int)
}

func NewSweeper(store Sweepable, interval time.Duration, log *zap.Logger, onSweep func(removed int)) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: store, interval: interval, log: log, onSweep: onSweep}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(); err != nil {
				s.log.Error("[session-sweeper] sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce runs one pass. A panic inside the pass is reported as an error so
// the next tick still runs.
func (s *Sweeper) SweepOnce() (removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()

	removed = s.store.Sweep()
	if removed > 0 {
		s.log.Info("[session-sweeper] removed expired sessions",
			zap.Int("removed", removed),
			zap.Int("active", s.store.Len()),
		)
	}
	if s.onSweep != nil {
		s.onSweep(removed)
	}
	return removed, nil
}
