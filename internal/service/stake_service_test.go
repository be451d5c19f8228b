package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/evetabi/predictarena/internal/domain"
)

func TestCreateStake_UpdatesCounters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)

	st := e.stake(t, m.ID, "0xstaker", "Yes", "25")
	if !st.Settlement.IsPending() || st.Claimed {
		t.Errorf("new stake = %+v, want pending and unclaimed", st)
	}

	got, _ := e.markets.GetMarket(ctx, m.ID)
	if got.TotalStakes != 1 {
		t.Errorf("TotalStakes = %d, want 1", got.TotalStakes)
	}
	u, _ := e.stats.GetUser(ctx, "0xstaker")
	if u.InsightsStaked != 1 {
		t.Errorf("InsightsStaked = %d, want 1", u.InsightsStaked)
	}
	if n := len(e.events.ofType(domain.EventStake)); n != 1 {
		t.Errorf("stake events = %d, want 1", n)
	}
}

func TestCreateStake_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)

	base := domain.StakeRequest{
		MarketID:      m.ID,
		StakerAddress: "0xs",
		Outcome:       "Yes",
		Amount:        dec("1"),
		Reasoning:     "long enough reasoning",
		Confidence:    0.5,
	}
	cases := []struct {
		name   string
		mutate func(r *domain.StakeRequest)
	}{
		{"confidence above one", func(r *domain.StakeRequest) { r.Confidence = 1.01 }},
		{"negative confidence", func(r *domain.StakeRequest) { r.Confidence = -0.1 }},
		{"zero amount", func(r *domain.StakeRequest) { r.Amount = dec("0") }},
		{"short reasoning", func(r *domain.StakeRequest) { r.Reasoning = "meh" }},
		{"unknown outcome", func(r *domain.StakeRequest) { r.Outcome = "Maybe" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			if _, err := e.stakes.CreateStake(ctx, req); !domain.IsInvalidArgument(err) {
				t.Errorf("CreateStake() error = %v, want invalid argument", err)
			}
		})
	}

	if _, err := e.settlement.ResolveMarket(ctx, m.ID, creator, "Yes"); err != nil {
		t.Fatalf("ResolveMarket() error = %v", err)
	}
	if _, err := e.stakes.CreateStake(ctx, base); !errors.Is(err, domain.ErrMarketNotActive) {
		t.Errorf("CreateStake(resolved) error = %v, want ErrMarketNotActive", err)
	}
	if n := e.store.Counts().Stakes; n != 0 {
		t.Errorf("stakes stored = %d, want 0", n)
	}
}

func TestMarketInsights(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)
	for i, amt := range []string{"10", "40", "20", "30"} {
		e.stake(t, m.ID, "0xs"+string(rune('a'+i)), "Yes", amt)
	}
	e.stake(t, m.ID, "0xsa", "No", "5")
	e.stake(t, m.ID, "0xsa", "No", "5")

	ins, err := e.stakes.MarketInsights(ctx, m.ID)
	if err != nil {
		t.Fatalf("MarketInsights() error = %v", err)
	}
	if ins.TotalStakes != 6 || !ins.TotalAmountStaked.Equal(dec("110")) {
		t.Errorf("totals = %d / %s, want 6 / 110", ins.TotalStakes, ins.TotalAmountStaked)
	}
	if len(ins.Outcomes) != 2 || ins.Outcomes[0].Outcome != "Yes" {
		t.Fatalf("Outcomes = %+v, want Yes then No", ins.Outcomes)
	}

	yes := ins.Outcomes[0]
	if yes.NumStakers != 4 || !yes.TotalStaked.Equal(dec("100")) {
		t.Errorf("Yes = %d stakers / %s, want 4 / 100", yes.NumStakers, yes.TotalStaked)
	}
	if len(yes.TopInsights) != 3 || !yes.TopInsights[0].Amount.Equal(dec("40")) || !yes.TopInsights[2].Amount.Equal(dec("20")) {
		t.Errorf("TopInsights = %+v, want 40,30,20", yes.TopInsights)
	}
	// Repeat stakes by one address each count.
	if no := ins.Outcomes[1]; no.NumStakers != 2 || !no.TotalStaked.Equal(dec("10")) {
		t.Errorf("No = %d stakers / %s, want 2 / 10", no.NumStakers, no.TotalStaked)
	}
	if yes.AvgConfidence < 0.799 || yes.AvgConfidence > 0.801 {
		t.Errorf("AvgConfidence = %f, want 0.8", yes.AvgConfidence)
	}

	if _, err = e.stakes.MarketInsights(ctx, "market_nope"); !domain.IsNotFound(err) {
		t.Errorf("MarketInsights(missing) error = %v, want not found", err)
	}
}

func TestListStakes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t)
	e.stake(t, m.ID, "0xa", "Yes", "1")
	e.stake(t, m.ID, "0xb", "No", "2")
	e.stake(t, m.ID, "0xa", "No", "3")

	byMarket, err := e.stakes.ListMarketStakes(ctx, m.ID, 2)
	if err != nil {
		t.Fatalf("ListMarketStakes() error = %v", err)
	}
	if len(byMarket) != 2 || !byMarket[0].Amount.Equal(dec("3")) {
		t.Errorf("ListMarketStakes() = %+v, want 2 newest first", byMarket)
	}
	if got := e.stakes.ListUserStakes(ctx, "0xa", 0); len(got) != 2 {
		t.Errorf("ListUserStakes() len = %d, want 2", len(got))
	}
}
