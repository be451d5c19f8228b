// Package scheduler runs the background loops of the platform:
//  1. statsBroadcastLoop – pushes platform stats to WS clients every StatsInterval.
//  2. snapshotLoop       – archives the store to Postgres every Snapshot.Interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// Collaborators
// ──────────────────────────────────────────────────────────────────────────────

// StatsBroadcaster is the part of the WebSocket hub the scheduler needs.
// Declared here so the scheduler does not depend on the ws package.
type StatsBroadcaster interface {
	BroadcastStats(stats any)
}

// StatsSource produces the platform summary.
type StatsSource interface {
	PlatformStats(ctx context.Context) service.PlatformStats
}

// SnapshotFlusher archives the store; satisfied by *repository.SnapshotWriter.
type SnapshotFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler owns the periodic loops. Run it once from main(); cancel the
// context to shut it down.
type Scheduler struct {
	stats    StatsSource
	hub      StatsBroadcaster // nil disables the stats loop
	snapshot SnapshotFlusher  // nil disables the snapshot loop
	cfg      *config.Config
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. hub and snapshot may be nil.
func NewScheduler(
	stats StatsSource,
	hub StatsBroadcaster,
	snapshot SnapshotFlusher,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{stats: stats, hub: hub, snapshot: snapshot, cfg: cfg, logger: logger}
}

// Run starts the enabled loops and blocks until ctx is cancelled and every
// loop has returned. It always returns nil so an errgroup keeps running.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if s.hub != nil && s.cfg.Scheduler.StatsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.every(ctx, "statsBroadcastLoop", s.cfg.Scheduler.StatsInterval, s.broadcastStats)
		}()
	}
	if s.snapshot != nil && s.cfg.Snapshot.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.every(ctx, "snapshotLoop", s.cfg.Snapshot.Interval, s.flushSnapshot)
		}()
	}

	s.logger.Info("scheduler started",
		"stats_interval", s.cfg.Scheduler.StatsInterval,
		"snapshot_enabled", s.snapshot != nil)
	<-ctx.Done()
	wg.Wait()
	return nil
}

// every calls fn on each tick of interval until ctx is done. A panic in one
// tick is logged and the loop carries on.
func (s *Scheduler) every(ctx context.Context, loop string, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(loop + ": shutting down")
			return
		case <-ticker.C:
			s.tick(ctx, loop, fn)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, loop string, fn func(context.Context)) {
	defer s.recoverAndLog(loop)
	fn(ctx)
}

// ──────────────────────────────────────────────────────────────────────────────
// Loop bodies
// ──────────────────────────────────────────────────────────────────────────────

func (s *Scheduler) broadcastStats(ctx context.Context) {
	s.hub.BroadcastStats(s.stats.PlatformStats(ctx))
}

func (s *Scheduler) flushSnapshot(ctx context.Context) {
	n, err := s.snapshot.Flush(ctx)
	if err != nil {
		s.logger.Error("snapshotLoop: flush failed", "err", err)
		return
	}
	s.logger.Debug("snapshot flushed", "rows", n)
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred around each tick to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
