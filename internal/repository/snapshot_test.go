package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// TestSnapshotWriter_Flush runs against a real Postgres when
// PREDICTARENA_TEST_DSN is set.
func TestSnapshotWriter_Flush(t *testing.T) {
	dsn := os.Getenv("PREDICTARENA_TEST_DSN")
	if dsn == "" {
		t.Skip("PREDICTARENA_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := repository.NewStore()
	m := newMarket(t)
	insertMarket(t, store, m)
	trade := newTrade(m.ID, "0xsnapshot")
	tx := store.Begin(ctx)
	tx.InsertTrade(trade)
	tx.UpdateUser("0xsnapshot", func(u *domain.User) { u.RecordTrade(decimal.NewFromInt(10)) })
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	w := repository.NewSnapshotWriter(db, store, nil)
	if err := w.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	ids := []string{m.ID, trade.ID, "0xsnapshot"}
	t.Cleanup(func() {
		q, args, _ := sqlx.In(`DELETE FROM entity_snapshots WHERE id IN (?)`, ids)
		_, _ = db.Exec(db.Rebind(q), args...)
	})

	// A second flush upserts over the first.
	for i := 0; i < 2; i++ {
		n, err := w.Flush(ctx)
		if err != nil {
			t.Fatalf("Flush() #%d error = %v", i+1, err)
		}
		if n != 3 {
			t.Errorf("Flush() #%d rows = %d, want 3", i+1, n)
		}
	}

	q, args, err := sqlx.In(`SELECT count(*) FROM entity_snapshots WHERE id IN (?)`, ids)
	if err != nil {
		t.Fatalf("In() error = %v", err)
	}
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(q), args...); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 3 {
		t.Errorf("archived rows = %d, want 3", count)
	}

	var question string
	err = db.GetContext(ctx, &question,
		`SELECT body->>'question' FROM entity_snapshots WHERE kind = $1 AND id = $2`, repository.KindMarket, m.ID)
	if err != nil {
		t.Fatalf("body query error = %v", err)
	}
	if question != m.Question {
		t.Errorf("archived question = %q, want %q", question, m.Question)
	}
}
