// Package autosave drives session snapshot saves on a fixed interval and on
// window-hide requests.
package autosave

import (
	"context"
	"time"

	"pkt.systems/pslog"
)

// Reason names what triggered a save.
type Reason string

const (
	ReasonInterval Reason = "interval"
	ReasonHide     Reason = "hide"
	ReasonTeardown Reason = "teardown"
)

// SaveFunc persists the session.
type SaveFunc func(ctx context.Context, reason Reason) error

// Scheduler runs SaveFunc until its context is cancelled.
type Scheduler struct {
	save     SaveFunc
	interval time.Duration
	hide     chan struct{}
	log      pslog.Logger

	// NewTicker creates a ticker channel and its stop function. Tests inject
	// a manual ticker here.
	NewTicker func(d time.Duration) (tick <-chan time.Time, stop func())
}

// New constructs a scheduler. An interval <= 0 disables periodic saves.
func New(save SaveFunc, interval time.Duration, logger pslog.Logger) *Scheduler {
	return &Scheduler{
		save:     save,
		interval: interval,
		hide:     make(chan struct{}, 1),
		log:      logger,
	}
}

// Hide requests a save without blocking. Requests made while one is pending
// coalesce.
func (s *Scheduler) Hide() {
	select {
	case s.hide <- struct{}{}:
	default:
	}
}

// Flush saves immediately on the caller's goroutine.
func (s *Scheduler) Flush(ctx context.Context, reason Reason) error {
	err := s.save(ctx, reason)
	log := s.logger(ctx)
	if err != nil {
		log.Warn("autosave failed", "reason", string(reason), "err", err)
		return err
	}
	log.Trace("autosave ok", "reason", string(reason))
	return nil
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var tick <-chan time.Time
	if s.interval > 0 {
		newTicker := s.NewTicker
		if newTicker == nil {
			newTicker = defaultNewTicker
		}
		ch, stop := newTicker(s.interval)
		defer stop()
		tick = ch
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_ = s.Flush(ctx, ReasonInterval)
		case <-s.hide:
			_ = s.Flush(ctx, ReasonHide)
		}
	}
}

func (s *Scheduler) logger(ctx context.Context) pslog.Logger {
	if s.log != nil {
		return s.log
	}
	return pslog.Ctx(ctx)
}

func defaultNewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
