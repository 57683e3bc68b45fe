package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/hubfeed/internal/logger"
)

// Sweepable is anything holding per-viewer state that goes stale.
type Sweepable interface {
	Sweep(idle time.Duration, now time.Time) int
}

// Sweeper periodically closes idle comment feeds and ui sessions.
type Sweeper struct {
	targets  map[string]Sweepable
	logger   logger.Logger
	interval time.Duration
	idle     time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a sweeper over named targets, e.g. "feeds" and "ui".
func NewSweeper(
	targets map[string]Sweepable,
	log logger.Logger,
	interval time.Duration,
	idle time.Duration,
) *Sweeper {
	return &Sweeper{
		targets:  targets,
		logger:   log,
		interval: interval,
		idle:     idle,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Sweep runs one pass and returns how many entries were dropped per target.
func (s *Sweeper) Sweep() map[string]int {
	now := s.now()
	removed := make(map[string]int, len(s.targets))
	total := 0
	for name, t := range s.targets {
		n := t.Sweep(s.idle, now)
		removed[name] = n
		total += n
	}

	if total > 0 {
		fields := make([]logger.Field, 0, len(removed)+1)
		for name, n := range removed {
			fields = append(fields, logger.Int(name, n))
		}
		fields = append(fields, logger.Duration("idle", s.idle))
		s.logger.Info("idle viewer state swept", fields...)
	} else {
		s.logger.Debug("nothing to sweep")
	}
	return removed
}
