package repository

import (
	"context"
	"fmt"

	"github.com/evetabi/predictarena/internal/domain"
)

// TradeRepository handles all store operations for Trades. Trades are
// append-only: there is no Update.
type TradeRepository struct {
	store *Store
}

// NewTradeRepository creates a new TradeRepository.
func NewTradeRepository(store *Store) *TradeRepository {
	return &TradeRepository{store: store}
}

// Create inserts a new trade inside tx, indexed by market and trader.
func (r *TradeRepository) Create(_ context.Context, tx *Tx, t *domain.Trade) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("trade_repo.Create: %w", domain.InvalidArgument("id", "must not be empty"))
	}
	tx.InsertTrade(t)
	return nil
}

// GetByID fetches a trade by id.
func (r *TradeRepository) GetByID(_ context.Context, id string) (*domain.Trade, error) {
	t, ok := r.store.Trade(id)
	if !ok {
		return nil, domain.NotFound("trade", id)
	}
	return t, nil
}

// ListByMarket returns a market's trades, newest first. limit <= 0 returns all.
func (r *TradeRepository) ListByMarket(_ context.Context, marketID string, limit int) []*domain.Trade {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return newestFirst(r.store.tradesByMarket[marketID], limit, r.lookupLocked)
}

// ListByUser returns a trader's history, newest first.
func (r *TradeRepository) ListByUser(_ context.Context, address string, limit int) []*domain.Trade {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return newestFirst(r.store.tradesByUser[address], limit, r.lookupLocked)
}

func (r *TradeRepository) lookupLocked(id string) (*domain.Trade, bool) {
	t, ok := r.store.trades[id]
	if !ok {
		return nil, false
	}
	c := *t
	return &c, true
}
