package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
)

// MarketService handles market creation and the read side of markets:
// lookup, listing and the trade tape.
type MarketService struct {
	base
	store      *repository.Store
	marketRepo *repository.MarketRepository
	tradeRepo  *repository.TradeRepository
}

// NewMarketService creates a MarketService. Call SetNotifier() after the
// dispatcher is built.
func NewMarketService(
	store *repository.Store,
	marketRepo *repository.MarketRepository,
	tradeRepo *repository.TradeRepository,
	cfg *config.Config,
	log *slog.Logger,
) *MarketService {
	return &MarketService{
		base:       newBase(cfg, log),
		store:      store,
		marketRepo: marketRepo,
		tradeRepo:  tradeRepo,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateMarket
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarket validates p, stores an ACTIVE market with uniform prices and
// registers the creator as a user.
func (s *MarketService) CreateMarket(ctx context.Context, p domain.CreateMarketParams) (*domain.Market, error) {
	market, err := domain.NewMarket(p, s.now())
	if err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: %w", err)
	}

	tx := s.store.Begin(ctx)
	defer tx.Rollback()

	if err = s.marketRepo.Create(ctx, tx, market); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: %w", err)
	}
	tx.UpdateUser(market.CreatorAddress, func(*domain.User) {})
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: commit: %w", err)
	}

	s.log.Info("market created", "market_id", market.ID, "outcomes", len(market.Outcomes))
	s.emit(domain.NewEvent(domain.EventMarketCreated, domain.MarketCreatedPayload{Market: market.Clone()}).
		ForMarket(market.ID))
	return market, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetMarket returns the market with id.
func (s *MarketService) GetMarket(ctx context.Context, id string) (*domain.Market, error) {
	m, err := s.marketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetMarket: %w", err)
	}
	return m, nil
}

// ListMarkets returns markets newest first, filtered by status and category.
func (s *MarketService) ListMarkets(ctx context.Context, f repository.MarketFilter) ([]*domain.Market, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("market_service.ListMarkets: %w",
			domain.InvalidArgument("status", fmt.Sprintf("unknown status %q", f.Status)))
	}
	f.Limit = s.listLimit(f.Limit)
	return s.marketRepo.List(ctx, f), nil
}

// ListMarketTrades returns a market's trades newest first.
func (s *MarketService) ListMarketTrades(ctx context.Context, marketID string, limit int) ([]*domain.Trade, error) {
	if _, err := s.marketRepo.GetByID(ctx, marketID); err != nil {
		return nil, fmt.Errorf("market_service.ListMarketTrades: %w", err)
	}
	return s.tradeRepo.ListByMarket(ctx, marketID, s.listLimit(limit)), nil
}
