package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/evetabi/predictarena/internal/domain"
)

func TestResolveMarket_SettlesStakes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)
	s1 := e.stake(t, m.ID, "0xs1", "Yes", "10")
	s2 := e.stake(t, m.ID, "0xs2", "No", "20")

	resolved, err := e.settlement.ResolveMarket(ctx, m.ID, creator, "Yes")
	if err != nil {
		t.Fatalf("ResolveMarket() error = %v", err)
	}
	if resolved.Status != domain.MarketResolved || resolved.ResolvedOutcome == nil || *resolved.ResolvedOutcome != "Yes" {
		t.Errorf("resolved market = %+v", resolved)
	}
	if resolved.ResolvedAt == nil {
		t.Error("ResolvedAt = nil, want timestamp")
	}

	got1, _ := e.stakes.GetStake(ctx, s1.ID)
	reward, ok := got1.Settlement.Reward()
	if !ok || !reward.Equal(dec("30")) {
		t.Errorf("S1 reward = %s (%v), want 30", reward, ok)
	}
	got2, _ := e.stakes.GetStake(ctx, s2.ID)
	if !got2.Settlement.IsIncorrect() {
		t.Errorf("S2 settlement = %s, want incorrect", got2.Settlement.State())
	}
	if _, ok := got2.Settlement.Reward(); ok {
		t.Error("S2 should carry no reward")
	}

	evts := e.events.ofType(domain.EventResolution)
	if len(evts) != 1 {
		t.Fatalf("resolution events = %d, want 1", len(evts))
	}
	p := evts[0].Payload.(domain.ResolutionPayload)
	if p.WinningOutcome != "Yes" || len(p.Stakes) != 2 || p.Totals.Winners != 1 || p.Totals.Losers != 1 {
		t.Errorf("resolution payload = %+v", p)
	}
}

func TestResolveMarket_RewardsConserveStake(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "A", "B", "C")
	amounts := map[string][]string{"A": {"3", "7", "11"}, "B": {"13"}, "C": {"17", "19"}}
	total := dec("0")
	for outcome, list := range amounts {
		for i, a := range list {
			e.stake(t, m.ID, outcome+string(rune('0'+i)), outcome, a)
			total = total.Add(dec(a))
		}
	}

	if _, err := e.settlement.ResolveMarket(ctx, m.ID, creator, "A"); err != nil {
		t.Fatalf("ResolveMarket() error = %v", err)
	}

	sum := dec("0")
	stakes, _ := e.stakes.ListMarketStakes(ctx, m.ID, 0)
	for _, st := range stakes {
		if r, ok := st.Settlement.Reward(); ok {
			sum = sum.Add(r)
		}
	}
	if sum.Sub(total).Abs().GreaterThan(dec("0.000000001")) {
		t.Errorf("Σ rewards = %s, want %s", sum, total)
	}
}

func TestResolveMarket_AlreadyResolvedAlwaysConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)
	if _, err := e.settlement.ResolveMarket(ctx, m.ID, creator, "Yes"); err != nil {
		t.Fatalf("ResolveMarket() error = %v", err)
	}

	for _, tc := range []struct{ resolver, outcome string }{
		{creator, "Yes"},
		{creator, "No"},
		{"0xstranger", "Yes"},
		{"0xstranger", "Nonsense"},
	} {
		_, err := e.settlement.ResolveMarket(ctx, m.ID, tc.resolver, tc.outcome)
		if !errors.Is(err, domain.ErrMarketAlreadyResolved) {
			t.Errorf("ResolveMarket(%s, %s) error = %v, want ErrMarketAlreadyResolved", tc.resolver, tc.outcome, err)
		}
	}
	if n := len(e.events.ofType(domain.EventResolution)); n != 1 {
		t.Errorf("resolution events = %d, want 1", n)
	}
}

func TestResolveMarket_Preconditions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)

	if _, err := e.settlement.ResolveMarket(ctx, m.ID, "0xstranger", "Yes"); !errors.Is(err, domain.ErrNotMarketCreator) {
		t.Errorf("wrong resolver error = %v, want ErrNotMarketCreator", err)
	}
	if _, err := e.settlement.ResolveMarket(ctx, m.ID, creator, "Maybe"); !domain.IsInvalidArgument(err) {
		t.Errorf("bad outcome error = %v, want invalid argument", err)
	}
	if _, err := e.settlement.ResolveMarket(ctx, "market_nope", creator, "Yes"); !domain.IsNotFound(err) {
		t.Errorf("missing market error = %v, want not found", err)
	}

	got, _ := e.markets.GetMarket(ctx, m.ID)
	if got.Status != domain.MarketActive {
		t.Errorf("Status = %s, want active after failed resolves", got.Status)
	}
}

func TestClaimStakeReward(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)
	win := e.stake(t, m.ID, "0xwin", "Yes", "10")
	lose := e.stake(t, m.ID, "0xlose", "No", "20")

	if _, err := e.settlement.ClaimStakeReward(ctx, win.ID, "0xwin"); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("claim before resolve error = %v, want ErrMarketNotResolved", err)
	}
	if _, err := e.settlement.ResolveMarket(ctx, m.ID, creator, "Yes"); err != nil {
		t.Fatalf("ResolveMarket() error = %v", err)
	}

	if _, err := e.settlement.ClaimStakeReward(ctx, win.ID, "0xlose"); !errors.Is(err, domain.ErrNotStakeOwner) {
		t.Errorf("claim by stranger error = %v, want ErrNotStakeOwner", err)
	}
	if _, err := e.settlement.ClaimStakeReward(ctx, lose.ID, "0xlose"); !errors.Is(err, domain.ErrNotWinning) {
		t.Errorf("claim of losing stake error = %v, want ErrNotWinning", err)
	}

	r, err := e.settlement.ClaimStakeReward(ctx, win.ID, "0xwin")
	if err != nil {
		t.Fatalf("ClaimStakeReward() error = %v", err)
	}
	if !r.RewardAmount.Equal(dec("30")) || !strings.HasPrefix(r.TxnID, "reward_txn_") {
		t.Errorf("receipt = %+v, want 30 and reward_txn_ id", r)
	}

	if _, err = e.settlement.ClaimStakeReward(ctx, win.ID, "0xwin"); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("second claim error = %v, want ErrAlreadyClaimed", err)
	}

	got, _ := e.stakes.GetStake(ctx, win.ID)
	if !got.Claimed {
		t.Error("Claimed = false, want true")
	}
	if reward, _ := got.Settlement.Reward(); !reward.Equal(dec("30")) {
		t.Errorf("reward after claim = %s, want unchanged 30", reward)
	}
	if n := len(e.events.ofType(domain.EventRewardClaimed)); n != 1 {
		t.Errorf("reward_claimed events = %d, want 1", n)
	}
}

func TestClaimStakeReward_UnknownStake(t *testing.T) {
	e := newEnv(t)
	_, err := e.settlement.ClaimStakeReward(context.Background(), "stake_nope", "0xa")
	if !errors.Is(err, domain.ErrStakeNotFound) {
		t.Errorf("ClaimStakeReward() error = %v, want ErrStakeNotFound", err)
	}
}
