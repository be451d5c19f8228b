package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/shopspring/decimal"
)

// MarketRepository handles all store operations for Markets.
type MarketRepository struct {
	store *Store
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(store *Store) *MarketRepository {
	return &MarketRepository{store: store}
}

// Create inserts a new market inside tx.
func (r *MarketRepository) Create(_ context.Context, tx *Tx, m *domain.Market) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("market_repo.Create: %w", domain.InvalidArgument("id", "must not be empty"))
	}
	tx.InsertMarket(m)
	return nil
}

// Update replaces the stored market inside tx.
func (r *MarketRepository) Update(_ context.Context, tx *Tx, m *domain.Market) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("market_repo.Update: %w", domain.InvalidArgument("id", "must not be empty"))
	}
	tx.UpdateMarket(m)
	return nil
}

// GetByID fetches a market by id.
func (r *MarketRepository) GetByID(_ context.Context, id string) (*domain.Market, error) {
	m, ok := r.store.Market(id)
	if !ok {
		return nil, domain.NotFound("market", id)
	}
	return m, nil
}

// GetMany fetches every market in ids, keyed by id. Missing ids are skipped.
func (r *MarketRepository) GetMany(_ context.Context, ids []string) map[string]*domain.Market {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[string]*domain.Market, len(ids))
	for _, id := range ids {
		if m, ok := r.store.markets[id]; ok {
			out[id] = m.Clone()
		}
	}
	return out
}

// MarketFilter narrows List. Zero values match everything; Category matches
// case-insensitively.
type MarketFilter struct {
	Status   domain.MarketStatus
	Category string
	Creator  string
	Limit    int
}

// List returns markets matching f, newest first.
func (r *MarketRepository) List(_ context.Context, f MarketFilter) []*domain.Market {
	r.store.mu.RLock()
	out := make([]*domain.Market, 0, len(r.store.markets))
	for _, m := range r.store.markets {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
			continue
		}
		if f.Creator != "" && m.CreatorAddress != f.Creator {
			continue
		}
		out = append(out, m.Clone())
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// MarketTotals aggregates the platform-wide market figures.
type MarketTotals struct {
	Total          int             `json:"total_markets"`
	Active         int             `json:"active_markets"`
	Resolved       int             `json:"resolved_markets"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
}

// Totals sums counts, volume and liquidity across every market.
func (r *MarketRepository) Totals(_ context.Context) MarketTotals {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t := MarketTotals{TotalVolume: decimal.Zero, TotalLiquidity: decimal.Zero}
	for _, m := range r.store.markets {
		t.Total++
		switch m.Status {
		case domain.MarketActive:
			t.Active++
		case domain.MarketResolved:
			t.Resolved++
		}
		t.TotalVolume = t.TotalVolume.Add(m.TotalVolume)
		t.TotalLiquidity = t.TotalLiquidity.Add(m.TotalLiquidity)
	}
	return t
}
