package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/shopspring/decimal"
)

const creator = "0xcreator"

// recorder is a Notifier that keeps every event it is handed.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Notify(evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) ofType(typ domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type env struct {
	store       *repository.Store
	markets     *service.MarketService
	trades      *service.TradeService
	stakes      *service.StakeService
	settlement  *service.SettlementService
	tournaments *service.TournamentService
	stats       *service.StatsService
	auth        *service.AuthService
	events      *recorder
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			AccessSecret:   "test-secret",
			AccessTTL:      time.Hour,
			AdminAddresses: []string{"0xadmin"},
		},
		Market: config.MarketConfig{DefaultListLimit: 100, MaxListLimit: 500},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := testConfig()
	store := repository.NewStore()
	locks := repository.NewLockTable()
	marketRepo := repository.NewMarketRepository(store)
	tradeRepo := repository.NewTradeRepository(store)
	stakeRepo := repository.NewStakeRepository(store)
	tournamentRepo := repository.NewTournamentRepository(store)
	userRepo := repository.NewUserRepository(store)

	e := &env{
		store:       store,
		markets:     service.NewMarketService(store, marketRepo, tradeRepo, cfg, nil),
		trades:      service.NewTradeService(store, locks, marketRepo, tradeRepo, cfg, nil),
		stakes:      service.NewStakeService(store, locks, marketRepo, stakeRepo, cfg, nil),
		settlement:  service.NewSettlementService(store, locks, marketRepo, stakeRepo, cfg, nil),
		tournaments: service.NewTournamentService(store, locks, marketRepo, tournamentRepo, cfg, nil),
		stats:       service.NewStatsService(store, marketRepo, stakeRepo, tournamentRepo, userRepo, cfg, nil),
		auth:        service.NewAuthService(cfg),
		events:      &recorder{},
	}
	e.markets.SetNotifier(e.events)
	e.trades.SetNotifier(e.events)
	e.stakes.SetNotifier(e.events)
	e.settlement.SetNotifier(e.events)
	e.tournaments.SetNotifier(e.events)
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *env) createMarket(t *testing.T, outcomes ...string) *domain.Market {
	t.Helper()
	if len(outcomes) == 0 {
		outcomes = []string{"Yes", "No"}
	}
	m, err := e.markets.CreateMarket(context.Background(), domain.CreateMarketParams{
		Question:         "Will the network upgrade ship this quarter?",
		Description:      "Resolves Yes if the upgrade activates on mainnet before the end date.",
		CreatorAddress:   creator,
		Category:         "crypto",
		Outcomes:         outcomes,
		EndTime:          time.Now().Add(24 * time.Hour),
		ResolutionSource: "https://example.org/status",
		InitialLiquidity: dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateMarket() error = %v", err)
	}
	return m
}

func (e *env) trade(t *testing.T, marketID, trader, outcome, amount string) *domain.TradeReceipt {
	t.Helper()
	r, err := e.trades.ExecuteTrade(context.Background(), domain.TradeRequest{
		MarketID:      marketID,
		TraderAddress: trader,
		Outcome:       outcome,
		Amount:        dec(amount),
	})
	if err != nil {
		t.Fatalf("ExecuteTrade(%s, %s) error = %v", outcome, amount, err)
	}
	return r
}

func (e *env) stake(t *testing.T, marketID, staker, outcome, amount string) *domain.Stake {
	t.Helper()
	s, err := e.stakes.CreateStake(context.Background(), domain.StakeRequest{
		MarketID:      marketID,
		StakerAddress: staker,
		Outcome:       outcome,
		Amount:        dec(amount),
		Reasoning:     "on-chain activity points this way",
		Confidence:    0.8,
	})
	if err != nil {
		t.Fatalf("CreateStake(%s, %s) error = %v", outcome, amount, err)
	}
	return s
}
