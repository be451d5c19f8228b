package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
)

// SettlementService resolves markets and pays out stake rewards.
//
// Resolution, settlement of every stake on the market and the market's new
// status are written in a single commit while the market lock is held, so a
// concurrent CreateStake either lands before resolution (and is settled) or
// sees a resolved market and is refused.
type SettlementService struct {
	base
	store      *repository.Store
	locks      *repository.LockTable
	marketRepo *repository.MarketRepository
	stakeRepo  *repository.StakeRepository
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	store *repository.Store,
	locks *repository.LockTable,
	marketRepo *repository.MarketRepository,
	stakeRepo *repository.StakeRepository,
	cfg *config.Config,
	log *slog.Logger,
) *SettlementService {
	return &SettlementService{
		base:       newBase(cfg, log),
		store:      store,
		locks:      locks,
		marketRepo: marketRepo,
		stakeRepo:  stakeRepo,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ResolveMarket
// ──────────────────────────────────────────────────────────────────────────────

// ResolveMarket sets the winning outcome and settles every stake on the
// market. A market that is already resolved always yields
// ErrMarketAlreadyResolved.
func (s *SettlementService) ResolveMarket(ctx context.Context, marketID, resolver, winning string) (*domain.Market, error) {
	market, evt, err := s.resolveLocked(ctx, marketID, resolver, winning)
	if err != nil {
		return nil, err
	}

	s.log.Info("market resolved", "market_id", market.ID, "winning_outcome", winning)
	s.emit(evt)
	return market, nil
}

func (s *SettlementService) resolveLocked(ctx context.Context, marketID, resolver, winning string) (*domain.Market, domain.Event, error) {
	// ── 1. Serialise on the market ───────────────────────────────────────────
	release, err := s.locks.Acquire(ctx, marketID)
	if err != nil {
		return nil, domain.Event{}, fmt.Errorf("settlement_service.ResolveMarket: lock: %w", err)
	}
	defer release()

	market, err := s.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return nil, domain.Event{}, fmt.Errorf("settlement_service.ResolveMarket: %w", err)
	}

	// ── 2. Resolve and settle in memory ──────────────────────────────────────
	if err = market.Resolve(winning, resolver, s.now()); err != nil {
		return nil, domain.Event{}, fmt.Errorf("settlement_service.ResolveMarket: %w", err)
	}
	stakes := s.stakeRepo.AllByMarket(ctx, marketID)
	totals := domain.SettleStakes(stakes, winning)

	// ── 3. Commit market + every stake together ──────────────────────────────
	tx := s.store.Begin(ctx)
	defer tx.Rollback()

	if err = s.marketRepo.Update(ctx, tx, market); err != nil {
		return nil, domain.Event{}, fmt.Errorf("settlement_service.ResolveMarket: update market: %w", err)
	}
	outcomes := make([]domain.StakeOutcome, 0, len(stakes))
	for _, st := range stakes {
		if err = s.stakeRepo.Update(ctx, tx, st); err != nil {
			return nil, domain.Event{}, fmt.Errorf("settlement_service.ResolveMarket: update stake %s: %w", st.ID, err)
		}
		outcomes = append(outcomes, domain.StakeOutcome{
			StakeID:    st.ID,
			Staker:     st.StakerAddress,
			Settlement: st.Settlement,
		})
	}
	if err = tx.Commit(); err != nil {
		return nil, domain.Event{}, fmt.Errorf("settlement_service.ResolveMarket: commit: %w", err)
	}

	evt := domain.NewEvent(domain.EventResolution, domain.ResolutionPayload{
		WinningOutcome: winning,
		ResolvedAt:     *market.ResolvedAt,
		Totals:         totals,
		Stakes:         outcomes,
	}).ForMarket(market.ID)
	return market, evt, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ClaimStakeReward
// ──────────────────────────────────────────────────────────────────────────────

// ClaimStakeReward marks a correct stake's reward as claimed and returns it.
// Only the Claimed flag changes; moving the funds is left to the payout
// collaborator listening for reward_claimed.
func (s *SettlementService) ClaimStakeReward(ctx context.Context, stakeID, claimer string) (*domain.ClaimReceipt, error) {
	receipt, staker, marketID, err := s.claimLocked(ctx, stakeID, claimer)
	if err != nil {
		return nil, err
	}

	s.emit(domain.NewEvent(domain.EventRewardClaimed, domain.RewardClaimedPayload{
		StakeID:      receipt.StakeID,
		Staker:       staker,
		RewardAmount: receipt.RewardAmount,
		TxnID:        receipt.TxnID,
	}).ForMarket(marketID))
	return receipt, nil
}

func (s *SettlementService) claimLocked(ctx context.Context, stakeID, claimer string) (*domain.ClaimReceipt, string, string, error) {
	// The stake's market id is immutable, so it is safe to read before locking.
	peek, err := s.stakeRepo.GetByID(ctx, stakeID)
	if err != nil {
		return nil, "", "", fmt.Errorf("settlement_service.ClaimStakeReward: %w", err)
	}

	release, err := s.locks.Acquire(ctx, peek.MarketID)
	if err != nil {
		return nil, "", "", fmt.Errorf("settlement_service.ClaimStakeReward: lock: %w", err)
	}
	defer release()

	stake, err := s.stakeRepo.GetByID(ctx, stakeID)
	if err != nil {
		return nil, "", "", fmt.Errorf("settlement_service.ClaimStakeReward: %w", err)
	}
	market, err := s.marketRepo.GetByID(ctx, stake.MarketID)
	if err != nil {
		return nil, "", "", fmt.Errorf("settlement_service.ClaimStakeReward: %w", err)
	}

	reward, err := stake.Claim(claimer, market)
	if err != nil {
		return nil, "", "", fmt.Errorf("settlement_service.ClaimStakeReward: %w", err)
	}

	tx := s.store.Begin(ctx)
	defer tx.Rollback()
	if err = s.stakeRepo.Update(ctx, tx, stake); err != nil {
		return nil, "", "", fmt.Errorf("settlement_service.ClaimStakeReward: update stake: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, "", "", fmt.Errorf("settlement_service.ClaimStakeReward: commit: %w", err)
	}

	return &domain.ClaimReceipt{
		StakeID:      stake.ID,
		RewardAmount: reward,
		TxnID:        domain.NewID(domain.PrefixRewardTxn),
	}, stake.StakerAddress, stake.MarketID, nil
}
