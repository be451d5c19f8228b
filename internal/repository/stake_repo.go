package repository

import (
	"context"
	"fmt"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/shopspring/decimal"
)

// StakeRepository handles all store operations for insight Stakes.
type StakeRepository struct {
	store *Store
}

// NewStakeRepository creates a new StakeRepository.
func NewStakeRepository(store *Store) *StakeRepository {
	return &StakeRepository{store: store}
}

// Create inserts a new stake inside tx, indexed by market and staker.
func (r *StakeRepository) Create(_ context.Context, tx *Tx, s *domain.Stake) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("stake_repo.Create: %w", domain.InvalidArgument("id", "must not be empty"))
	}
	tx.InsertStake(s)
	return nil
}

// Update replaces the stored stake inside tx. Used by settlement and claim.
func (r *StakeRepository) Update(_ context.Context, tx *Tx, s *domain.Stake) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("stake_repo.Update: %w", domain.InvalidArgument("id", "must not be empty"))
	}
	tx.UpdateStake(s)
	return nil
}

// GetByID fetches a stake by id.
func (r *StakeRepository) GetByID(_ context.Context, id string) (*domain.Stake, error) {
	s, ok := r.store.Stake(id)
	if !ok {
		return nil, domain.NotFound("stake", id)
	}
	return s, nil
}

// AllByMarket returns every stake on a market in placement order. Settlement
// reads the whole set through this while holding the market's lock.
func (r *StakeRepository) AllByMarket(_ context.Context, marketID string) []*domain.Stake {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := r.store.stakesByMarket[marketID]
	out := make([]*domain.Stake, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.store.stakes[id]; ok {
			out = append(out, s.Clone())
		}
	}
	return out
}

// ListByMarket returns a market's stakes, newest first.
func (r *StakeRepository) ListByMarket(_ context.Context, marketID string, limit int) []*domain.Stake {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return newestFirst(r.store.stakesByMarket[marketID], limit, r.lookupLocked)
}

// ListByUser returns a staker's stakes, newest first.
func (r *StakeRepository) ListByUser(_ context.Context, address string, limit int) []*domain.Stake {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return newestFirst(r.store.stakesByUser[address], limit, r.lookupLocked)
}

func (r *StakeRepository) lookupLocked(id string) (*domain.Stake, bool) {
	s, ok := r.store.stakes[id]
	return s.Clone(), ok
}

// RewardTotals aggregates settled stake money across the platform.
type RewardTotals struct {
	TotalStaked    decimal.Decimal `json:"total_staked"`
	PendingStaked  decimal.Decimal `json:"pending_staked"`
	RewardsOwed    decimal.Decimal `json:"rewards_owed"`
	RewardsClaimed decimal.Decimal `json:"rewards_claimed"`
	Unclaimed      decimal.Decimal `json:"rewards_unclaimed"`
	ForfeitedStake decimal.Decimal `json:"forfeited_stake"`
	StakeCount     int             `json:"stake_count"`
	ClaimedCount   int             `json:"claimed_count"`
}

// RewardTotals walks every stake once.
func (r *StakeRepository) RewardTotals(_ context.Context) RewardTotals {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t := RewardTotals{
		TotalStaked:    decimal.Zero,
		PendingStaked:  decimal.Zero,
		RewardsOwed:    decimal.Zero,
		RewardsClaimed: decimal.Zero,
		Unclaimed:      decimal.Zero,
		ForfeitedStake: decimal.Zero,
	}
	for _, s := range r.store.stakes {
		t.StakeCount++
		t.TotalStaked = t.TotalStaked.Add(s.Amount)
		switch {
		case s.Settlement.IsPending():
			t.PendingStaked = t.PendingStaked.Add(s.Amount)
		case s.Settlement.IsIncorrect():
			t.ForfeitedStake = t.ForfeitedStake.Add(s.Amount)
		case s.Settlement.IsCorrect():
			reward, _ := s.Settlement.Reward()
			t.RewardsOwed = t.RewardsOwed.Add(reward)
			if s.Claimed {
				t.ClaimedCount++
				t.RewardsClaimed = t.RewardsClaimed.Add(reward)
			} else {
				t.Unclaimed = t.Unclaimed.Add(reward)
			}
		}
	}
	return t
}
