package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/shopspring/decimal"
)

// topInsights is how many stakes MarketInsights reports per outcome.
const topInsights = 3

// StakeService places insight stakes and reports on them.
type StakeService struct {
	base
	store      *repository.Store
	locks      *repository.LockTable
	marketRepo *repository.MarketRepository
	stakeRepo  *repository.StakeRepository
}

// NewStakeService creates a StakeService.
func NewStakeService(
	store *repository.Store,
	locks *repository.LockTable,
	marketRepo *repository.MarketRepository,
	stakeRepo *repository.StakeRepository,
	cfg *config.Config,
	log *slog.Logger,
) *StakeService {
	return &StakeService{
		base:       newBase(cfg, log),
		store:      store,
		locks:      locks,
		marketRepo: marketRepo,
		stakeRepo:  stakeRepo,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateStake
// ──────────────────────────────────────────────────────────────────────────────

// CreateStake records a pending stake on an active market. The market lock
// keeps the stake from landing on a market that is being resolved.
func (s *StakeService) CreateStake(ctx context.Context, req domain.StakeRequest) (*domain.Stake, error) {
	stake, err := s.createLocked(ctx, req)
	if err != nil {
		return nil, err
	}

	s.emit(domain.NewEvent(domain.EventStake, domain.StakePayload{
		StakeID:    stake.ID,
		Staker:     stake.StakerAddress,
		Outcome:    stake.Outcome,
		Amount:     stake.Amount,
		Confidence: stake.Confidence,
	}).ForMarket(stake.MarketID))
	return stake, nil
}

func (s *StakeService) createLocked(ctx context.Context, req domain.StakeRequest) (*domain.Stake, error) {
	release, err := s.locks.Acquire(ctx, req.MarketID)
	if err != nil {
		return nil, fmt.Errorf("stake_service.CreateStake: lock: %w", err)
	}
	defer release()

	market, err := s.marketRepo.GetByID(ctx, req.MarketID)
	if err != nil {
		return nil, fmt.Errorf("stake_service.CreateStake: %w", err)
	}

	stake, err := domain.NewStake(req, market, s.now())
	if err != nil {
		return nil, fmt.Errorf("stake_service.CreateStake: %w", err)
	}
	market.TotalStakes++

	tx := s.store.Begin(ctx)
	defer tx.Rollback()

	if err = s.stakeRepo.Create(ctx, tx, stake); err != nil {
		return nil, fmt.Errorf("stake_service.CreateStake: create stake: %w", err)
	}
	if err = s.marketRepo.Update(ctx, tx, market); err != nil {
		return nil, fmt.Errorf("stake_service.CreateStake: update market: %w", err)
	}
	tx.UpdateUser(stake.StakerAddress, func(u *domain.User) { u.InsightsStaked++ })

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("stake_service.CreateStake: commit: %w", err)
	}
	return stake, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetStake returns the stake with id.
func (s *StakeService) GetStake(ctx context.Context, id string) (*domain.Stake, error) {
	st, err := s.stakeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("stake_service.GetStake: %w", err)
	}
	return st, nil
}

// ListMarketStakes returns a market's stakes newest first.
func (s *StakeService) ListMarketStakes(ctx context.Context, marketID string, limit int) ([]*domain.Stake, error) {
	if _, err := s.marketRepo.GetByID(ctx, marketID); err != nil {
		return nil, fmt.Errorf("stake_service.ListMarketStakes: %w", err)
	}
	return s.stakeRepo.ListByMarket(ctx, marketID, s.listLimit(limit)), nil
}

// ListUserStakes returns an address's stakes newest first.
func (s *StakeService) ListUserStakes(ctx context.Context, address string, limit int) []*domain.Stake {
	return s.stakeRepo.ListByUser(ctx, address, s.listLimit(limit))
}

// OutcomeInsights aggregates the stakes placed on one outcome.
type OutcomeInsights struct {
	Outcome       string          `json:"outcome"`
	TotalStaked   decimal.Decimal `json:"total_staked"`
	NumStakers    int             `json:"num_stakers"` // stakes on the outcome, repeats included
	AvgConfidence float64         `json:"avg_confidence"`
	TopInsights   []*domain.Stake `json:"top_insights"`
}

// MarketInsights is the per-market stake summary.
type MarketInsights struct {
	MarketID          string            `json:"market_id"`
	Outcomes          []OutcomeInsights `json:"outcomes"`
	TotalStakes       int               `json:"total_stakes"`
	TotalAmountStaked decimal.Decimal   `json:"total_amount_staked"`
}

// MarketInsights summarises stakes per outcome in the market's outcome
// order. Top insights are ranked by amount × confidence, earliest first on
// ties.
func (s *StakeService) MarketInsights(ctx context.Context, marketID string) (*MarketInsights, error) {
	market, err := s.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("stake_service.MarketInsights: %w", err)
	}
	stakes := s.stakeRepo.AllByMarket(ctx, marketID)

	byOutcome := make(map[string][]*domain.Stake, len(market.Outcomes))
	total := decimal.Zero
	for _, st := range stakes {
		byOutcome[st.Outcome] = append(byOutcome[st.Outcome], st)
		total = total.Add(st.Amount)
	}

	out := &MarketInsights{
		MarketID:          market.ID,
		Outcomes:          make([]OutcomeInsights, 0, len(market.Outcomes)),
		TotalStakes:       len(stakes),
		TotalAmountStaked: total,
	}
	for _, o := range market.Outcomes {
		group := byOutcome[o]
		oi := OutcomeInsights{Outcome: o, TotalStaked: decimal.Zero, TopInsights: []*domain.Stake{}}

		confSum := 0.0
		for _, st := range group {
			oi.TotalStaked = oi.TotalStaked.Add(st.Amount)
			confSum += st.Confidence
		}
		oi.NumStakers = len(group)
		if len(group) > 0 {
			oi.AvgConfidence = confSum / float64(len(group))
		}

		ranked := append([]*domain.Stake(nil), group...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Weight().GreaterThan(ranked[j].Weight())
		})
		if len(ranked) > topInsights {
			ranked = ranked[:topInsights]
		}
		oi.TopInsights = append(oi.TopInsights, ranked...)
		out.Outcomes = append(out.Outcomes, oi)
	}
	return out, nil
}
