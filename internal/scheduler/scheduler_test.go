package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/scheduler"
	"github.com/evetabi/predictarena/internal/service"
)

type fakeStats struct{ calls atomic.Int64 }

func (f *fakeStats) PlatformStats(context.Context) service.PlatformStats {
	f.calls.Add(1)
	return service.PlatformStats{TotalUsers: 3}
}

type fakeHub struct{ got atomic.Int64 }

func (h *fakeHub) BroadcastStats(stats any) {
	if s, ok := stats.(service.PlatformStats); ok && s.TotalUsers == 3 {
		h.got.Add(1)
	}
}

type fakeFlusher struct {
	calls atomic.Int64
	fail  bool
	panics bool
}

func (f *fakeFlusher) Flush(context.Context) (int, error) {
	n := f.calls.Add(1)
	if f.panics && n == 1 {
		panic("boom")
	}
	if f.fail {
		return 0, errors.New("db down")
	}
	return 5, nil
}

func cfg(stats, snap time.Duration) *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{StatsInterval: stats},
		Snapshot:  config.SnapshotConfig{Enabled: true, Interval: snap},
	}
}

func runFor(t *testing.T, s *scheduler.Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(d + 2*time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestScheduler_BroadcastsStats(t *testing.T) {
	stats, hub := &fakeStats{}, &fakeHub{}
	s := scheduler.NewScheduler(stats, hub, nil, cfg(10*time.Millisecond, 0), nil)

	runFor(t, s, 120*time.Millisecond)

	if hub.got.Load() < 2 {
		t.Errorf("stats broadcasts = %d, want at least 2", hub.got.Load())
	}
}

func TestScheduler_FlushesSnapshots(t *testing.T) {
	f := &fakeFlusher{fail: true}
	s := scheduler.NewScheduler(&fakeStats{}, nil, f, cfg(0, 10*time.Millisecond), nil)

	runFor(t, s, 120*time.Millisecond)

	// Failures are logged, the loop keeps going.
	if f.calls.Load() < 2 {
		t.Errorf("flushes = %d, want at least 2", f.calls.Load())
	}
}

func TestScheduler_SurvivesPanic(t *testing.T) {
	f := &fakeFlusher{panics: true}
	s := scheduler.NewScheduler(&fakeStats{}, nil, f, cfg(0, 10*time.Millisecond), nil)

	runFor(t, s, 120*time.Millisecond)

	if f.calls.Load() < 2 {
		t.Errorf("flushes = %d, want the loop to continue after a panic", f.calls.Load())
	}
}

func TestScheduler_NothingEnabled(t *testing.T) {
	s := scheduler.NewScheduler(&fakeStats{}, nil, nil, cfg(time.Millisecond, time.Millisecond), nil)
	runFor(t, s, 20*time.Millisecond)
}
