package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
)

// TradeService executes outcome-share purchases. Each trade runs under its
// market's lock: read the market, price the trade, then commit the trade, the
// repriced market and the trader's counters together.
type TradeService struct {
	base
	store      *repository.Store
	locks      *repository.LockTable
	marketRepo *repository.MarketRepository
	tradeRepo  *repository.TradeRepository
}

// NewTradeService creates a TradeService.
func NewTradeService(
	store *repository.Store,
	locks *repository.LockTable,
	marketRepo *repository.MarketRepository,
	tradeRepo *repository.TradeRepository,
	cfg *config.Config,
	log *slog.Logger,
) *TradeService {
	return &TradeService{
		base:       newBase(cfg, log),
		store:      store,
		locks:      locks,
		marketRepo: marketRepo,
		tradeRepo:  tradeRepo,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ExecuteTrade
// ──────────────────────────────────────────────────────────────────────────────

// ExecuteTrade buys req.Amount of req.Outcome at the outcome's current price.
// The recorded trade price is the pre-trade price; the receipt carries the
// price after the market has been repriced.
func (s *TradeService) ExecuteTrade(ctx context.Context, req domain.TradeRequest) (*domain.TradeReceipt, error) {
	if strings.TrimSpace(req.TraderAddress) == "" {
		return nil, fmt.Errorf("trade_service.ExecuteTrade: %w",
			domain.InvalidArgument("trader_address", "must not be empty"))
	}

	receipt, evt, err := s.executeLocked(ctx, req)
	if err != nil {
		s.invariant("ExecuteTrade", err, "market_id", req.MarketID)
		return nil, err
	}

	s.emit(evt)
	return receipt, nil
}

func (s *TradeService) executeLocked(ctx context.Context, req domain.TradeRequest) (*domain.TradeReceipt, domain.Event, error) {
	// ── 1. Serialise on the market ───────────────────────────────────────────
	release, err := s.locks.Acquire(ctx, req.MarketID)
	if err != nil {
		return nil, domain.Event{}, fmt.Errorf("trade_service.ExecuteTrade: lock: %w", err)
	}
	defer release()

	// ── 2. Load market ───────────────────────────────────────────────────────
	market, err := s.marketRepo.GetByID(ctx, req.MarketID)
	if err != nil {
		return nil, domain.Event{}, fmt.Errorf("trade_service.ExecuteTrade: %w", err)
	}

	// ── 3. Price the trade (no writes yet) ───────────────────────────────────
	quote, err := market.ApplyTrade(req.Outcome, req.Amount)
	if err != nil {
		return nil, domain.Event{}, fmt.Errorf("trade_service.ExecuteTrade: %w", err)
	}

	trade := &domain.Trade{
		ID:            domain.NewID(domain.PrefixTrade),
		MarketID:      market.ID,
		TraderAddress: req.TraderAddress,
		Outcome:       req.Outcome,
		Amount:        req.Amount,
		Shares:        quote.Shares,
		Price:         quote.ExecutionPrice,
		TxnID:         domain.NewID(domain.PrefixTxn),
		CreatedAt:     s.now(),
	}

	// ── 4. Commit trade + market + trader counters atomically ────────────────
	tx := s.store.Begin(ctx)
	defer tx.Rollback()

	if err = s.tradeRepo.Create(ctx, tx, trade); err != nil {
		return nil, domain.Event{}, fmt.Errorf("trade_service.ExecuteTrade: create trade: %w", err)
	}
	if err = s.marketRepo.Update(ctx, tx, market); err != nil {
		return nil, domain.Event{}, fmt.Errorf("trade_service.ExecuteTrade: update market: %w", err)
	}
	tx.UpdateUser(trade.TraderAddress, func(u *domain.User) { u.RecordTrade(trade.Amount) })

	if err = tx.Commit(); err != nil {
		return nil, domain.Event{}, fmt.Errorf("trade_service.ExecuteTrade: commit: %w", err)
	}

	evt := domain.NewEvent(domain.EventTrade, domain.TradePayload{
		TradeID:  trade.ID,
		Trader:   trade.TraderAddress,
		Outcome:  trade.Outcome,
		Amount:   trade.Amount,
		Shares:   trade.Shares,
		Price:    trade.Price,
		NewPrice: quote.NewPrice,
		Prices:   market.Clone().Prices,
		Volumes:  market.Clone().Volumes,
	}).ForMarket(market.ID)

	return &domain.TradeReceipt{
		TradeID:        trade.ID,
		SharesReceived: trade.Shares,
		NewPrice:       quote.NewPrice,
		TxnID:          trade.TxnID,
	}, evt, nil
}

// GetTrade returns the trade with id.
func (s *TradeService) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	t, err := s.tradeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("trade_service.GetTrade: %w", err)
	}
	return t, nil
}

// ListUserTrades returns a trader's history newest first.
func (s *TradeService) ListUserTrades(ctx context.Context, address string, limit int) []*domain.Trade {
	return s.tradeRepo.ListByUser(ctx, address, s.listLimit(limit))
}
