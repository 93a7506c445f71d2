package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/metrics"
	"github.com/cuemby/guildsync/pkg/reconciler"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultStartupDelay = 5 * time.Second
)

// Config controls the scheduling loop
type Config struct {
	// Interval between two ticks
	Interval time.Duration
	// StartupDelay before the first tick, giving the gateway time to settle
	StartupDelay time.Duration
}

// DefaultConfig returns the default scheduling intervals
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, StartupDelay: DefaultStartupDelay}
}

// slot is a coordinator with its in-progress guard
type slot struct {
	coordinator reconciler.Coordinator
	running     atomic.Bool
}

// Scheduler drives the coordinators. On every tick it runs a pass for each
// coordinator whose synchronization was requested, roles strictly before
// channels.
type Scheduler struct {
	slots  []*slot
	cfg    Config
	logger zerolog.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a scheduler. Coordinators run in the given order on every tick,
// so the role coordinator goes first.
func New(cfg Config, coordinators ...reconciler.Coordinator) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	s := &Scheduler{
		cfg:    cfg,
		logger: log.WithComponent("scheduler"),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, c := range coordinators {
		s.slots = append(s.slots, &slot{coordinator: c})
	}
	return s
}

// Start begins the scheduling loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	metrics.UpdateComponent(metrics.ComponentScheduler, true, "")
	go s.run(ctx)
}

// Stop stops the loop and waits for the running tick to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if !s.started.Load() {
		return
	}
	<-s.done
	metrics.UpdateComponent(metrics.ComponentScheduler, false, "stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.logger.Info().
		Dur("startup_delay", s.cfg.StartupDelay).
		Dur("interval", s.cfg.Interval).
		Msg("Scheduler started")

	delay := time.NewTimer(s.cfg.StartupDelay)
	defer delay.Stop()
	select {
	case <-delay.C:
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)
		select {
		case <-ticker.C:
		case <-s.stopCh:
			s.logger.Info().Msg("Scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler context cancelled")
			return
		}
	}
}

// RunOnce runs one tick synchronously: every requested coordinator, in order
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, sl := range s.slots {
		if ctx.Err() != nil {
			return
		}
		s.runSlot(ctx, sl)
	}
}

func (s *Scheduler) runSlot(ctx context.Context, sl *slot) {
	c := sl.coordinator
	if !c.ConsumeIfRequested() {
		return
	}
	if !sl.running.CompareAndSwap(false, true) {
		// Keep the request for the next tick
		c.RequestSynchronization()
		metrics.SkippedTicksTotal.Inc()
		s.logger.Debug().Str("family", string(c.Family())).Msg("Pass still running, skipping tick")
		return
	}
	defer sl.running.Store(false)

	if _, err := c.Reconcile(ctx); err != nil {
		s.logger.Error().Err(err).Str("family", string(c.Family())).Msg("Reconciliation pass failed")
	}
}
