package notify

import (
	"context"
	"log/slog"

	"github.com/evetabi/predictarena/internal/domain"
)

// LogSink writes a one-line audit record per event.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(ctx context.Context, evt domain.Event) error {
	s.log.LogAttrs(ctx, slog.LevelInfo, "event",
		slog.String("event_id", evt.ID),
		slog.String("event_type", string(evt.Type)),
		slog.String("market_id", evt.MarketID),
		slog.String("tournament_id", evt.TournamentID),
	)
	return nil
}
