package service

import (
	"log/slog"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into the services to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Notifier is the minimal interface the services need from the event
// dispatcher. Notify must not block; it is always called after the entity
// lock has been released and after the write has been committed.
// Implemented by notify.Dispatcher.
type Notifier interface {
	Notify(evt domain.Event)
}

// base carries what every mutating service shares.
type base struct {
	cfg      *config.Config
	log      *slog.Logger
	notifier Notifier // injected after the dispatcher is built
	now      func() time.Time
}

func newBase(cfg *config.Config, log *slog.Logger) base {
	if log == nil {
		log = slog.Default()
	}
	return base{cfg: cfg, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// SetNotifier injects the event dispatcher post-construction.
func (b *base) SetNotifier(n Notifier) { b.notifier = n }

// SetClock overrides the time source. Intended for tests.
func (b *base) SetClock(now func() time.Time) { b.now = now }

func (b *base) emit(evt domain.Event) {
	if b.notifier == nil {
		return
	}
	b.notifier.Notify(evt)
}

// invariant logs computation invariant violations at error level; they are
// bugs, not caller mistakes.
func (b *base) invariant(op string, err error, attrs ...any) {
	if domain.IsInvariantViolation(err) {
		b.log.Error("computation invariant violated", append([]any{"op", op, "err", err}, attrs...)...)
	}
}

// listLimit applies the configured default and ceiling to a caller limit.
func (b *base) listLimit(limit int) int {
	def, ceiling := 100, 500
	if b.cfg != nil {
		def, ceiling = b.cfg.Market.DefaultListLimit, b.cfg.Market.MaxListLimit
	}
	if limit <= 0 {
		return def
	}
	if ceiling > 0 && limit > ceiling {
		return ceiling
	}
	return limit
}
