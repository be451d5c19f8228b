package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Snapshot row kinds.
const (
	KindMarket     = "market"
	KindTrade      = "trade"
	KindStake      = "stake"
	KindTournament = "tournament"
	KindUser       = "user"
)

// SnapshotRow is one archived entity. Body holds the entity's JSON form.
type SnapshotRow struct {
	Kind    string    `db:"kind"`
	ID      string    `db:"id"`
	Body    string    `db:"body"`
	TakenAt time.Time `db:"taken_at"`
}

// Rows flattens the snapshot into archive rows, markets first.
func (s Snapshot) Rows() ([]SnapshotRow, error) {
	n := len(s.Markets) + len(s.Trades) + len(s.Stakes) + len(s.Tournaments) + len(s.Users)
	rows := make([]SnapshotRow, 0, n)

	add := func(kind, id string, v any) error {
		body, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("snapshot.Rows: %s %s: %w", kind, id, err)
		}
		rows = append(rows, SnapshotRow{Kind: kind, ID: id, Body: string(body), TakenAt: s.TakenAt})
		return nil
	}

	for _, m := range s.Markets {
		if err := add(KindMarket, m.ID, m); err != nil {
			return nil, err
		}
	}
	for _, t := range s.Trades {
		if err := add(KindTrade, t.ID, t); err != nil {
			return nil, err
		}
	}
	for _, st := range s.Stakes {
		if err := add(KindStake, st.ID, st); err != nil {
			return nil, err
		}
	}
	for _, t := range s.Tournaments {
		if err := add(KindTournament, t.ID, t); err != nil {
			return nil, err
		}
	}
	for _, u := range s.Users {
		if err := add(KindUser, u.Address, u); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SnapshotWriter
// ──────────────────────────────────────────────────────────────────────────────

const snapshotSchema = `
	CREATE TABLE IF NOT EXISTS entity_snapshots (
		kind     TEXT        NOT NULL,
		id       TEXT        NOT NULL,
		body     JSONB       NOT NULL,
		taken_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (kind, id)
	)`

const snapshotUpsert = `
	INSERT INTO entity_snapshots (kind, id, body, taken_at)
	VALUES (:kind, :id, :body, :taken_at)
	ON CONFLICT (kind, id) DO UPDATE
	SET body = EXCLUDED.body, taken_at = EXCLUDED.taken_at`

// SnapshotWriter archives the in-memory store to Postgres. The store stays the
// source of truth; the archive is written outside any entity lock and is
// never read back by the engine.
type SnapshotWriter struct {
	db    *sqlx.DB
	store *Store
	log   *slog.Logger
}

// NewSnapshotWriter creates a writer. A nil logger falls back to slog.Default().
func NewSnapshotWriter(db *sqlx.DB, store *Store, log *slog.Logger) *SnapshotWriter {
	if log == nil {
		log = slog.Default()
	}
	return &SnapshotWriter{db: db, store: store, log: log}
}

// EnsureSchema creates the archive table when missing.
func (w *SnapshotWriter) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("snapshot_writer.EnsureSchema: %w", err)
	}
	return nil
}

// Flush copies the whole store and upserts every entity in one transaction.
// Returns the number of rows written.
func (w *SnapshotWriter) Flush(ctx context.Context) (int, error) {
	start := time.Now()
	snap := w.store.Snapshot()
	rows, err := snap.Rows()
	if err != nil {
		return 0, fmt.Errorf("snapshot_writer.Flush: %w", err)
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("snapshot_writer.Flush begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, row := range rows {
		if _, err = tx.NamedExecContext(ctx, snapshotUpsert, row); err != nil {
			return 0, fmt.Errorf("snapshot_writer.Flush %s %s: %w", row.Kind, row.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("snapshot_writer.Flush commit: %w", err)
	}

	w.log.Info("snapshot flushed", "rows", len(rows), "took", time.Since(start))
	return len(rows), nil
}
