package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestMarket(t *testing.T, outcomes ...string) *domain.Market {
	t.Helper()
	if len(outcomes) == 0 {
		outcomes = []string{"YES", "NO"}
	}
	now := time.Now().UTC()
	m, err := domain.NewMarket(domain.CreateMarketParams{
		Question:         "Will it rain tomorrow?",
		CreatorAddress:   "0xcreator",
		Category:         "weather",
		Outcomes:         outcomes,
		EndTime:          now.Add(24 * time.Hour),
		InitialLiquidity: decimal.NewFromInt(100),
	}, now)
	if err != nil {
		t.Fatalf("NewMarket() error = %v", err)
	}
	return m
}

func assertPricesSumToOne(t *testing.T, m *domain.Market) {
	t.Helper()
	diff := m.PriceSum().Sub(decimal.NewFromInt(1)).Abs()
	if diff.GreaterThan(domain.PriceTolerance) {
		t.Errorf("PriceSum() = %s, want 1 ± %s", m.PriceSum(), domain.PriceTolerance)
	}
	for _, o := range m.Outcomes {
		p := m.Prices[o]
		if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(1)) {
			t.Errorf("price[%s] = %s, want within [0,1]", o, p)
		}
	}
}

// ── Creation ──────────────────────────────────────────────────────────────────

func TestNewMarket_UniformPrices(t *testing.T) {
	m := newTestMarket(t, "A", "B", "C", "D")

	want := decimal.RequireFromString("0.25")
	for _, o := range m.Outcomes {
		if !m.Prices[o].Equal(want) {
			t.Errorf("price[%s] = %s, want %s", o, m.Prices[o], want)
		}
		if !m.Volumes[o].IsZero() {
			t.Errorf("volume[%s] = %s, want 0", o, m.Volumes[o])
		}
	}
	if m.Status != domain.MarketActive {
		t.Errorf("Status = %s, want %s", m.Status, domain.MarketActive)
	}
	if m.ResolvedOutcome != nil || m.ResolvedAt != nil {
		t.Error("new market should not carry resolution fields")
	}
	assertPricesSumToOne(t, m)
}

func TestNewMarket_Validation(t *testing.T) {
	now := time.Now().UTC()
	base := domain.CreateMarketParams{
		Question:         "q",
		CreatorAddress:   "0xcreator",
		Outcomes:         []string{"YES", "NO"},
		EndTime:          now.Add(time.Hour),
		InitialLiquidity: decimal.NewFromInt(10),
	}

	tests := []struct {
		name   string
		mutate func(p *domain.CreateMarketParams)
		field  string
	}{
		{"one outcome", func(p *domain.CreateMarketParams) { p.Outcomes = []string{"YES"} }, "outcomes"},
		{"eleven outcomes", func(p *domain.CreateMarketParams) {
			p.Outcomes = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		}, "outcomes"},
		{"duplicate outcome", func(p *domain.CreateMarketParams) { p.Outcomes = []string{"YES", "YES"} }, "outcomes"},
		{"empty outcome", func(p *domain.CreateMarketParams) { p.Outcomes = []string{"YES", " "} }, "outcomes"},
		{"end in past", func(p *domain.CreateMarketParams) { p.EndTime = now.Add(-time.Minute) }, "end_time"},
		{"end equals now", func(p *domain.CreateMarketParams) { p.EndTime = now }, "end_time"},
		{"low liquidity", func(p *domain.CreateMarketParams) { p.InitialLiquidity = decimal.RequireFromString("0.5") }, "initial_liquidity"},
		{"no creator", func(p *domain.CreateMarketParams) { p.CreatorAddress = "" }, "creator_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Outcomes = append([]string(nil), base.Outcomes...)
			tt.mutate(&p)

			_, err := domain.NewMarket(p, now)
			if !domain.IsInvalidArgument(err) {
				t.Fatalf("NewMarket() error = %v, want invalid argument", err)
			}
			var de *domain.Error
			if errors.As(err, &de) && de.Field != tt.field {
				t.Errorf("Field = %q, want %q", de.Field, tt.field)
			}
		})
	}
}

func TestNewMarket_TenOutcomesAllowed(t *testing.T) {
	m := newTestMarket(t, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
	if len(m.Outcomes) != domain.MaxOutcomes {
		t.Errorf("len(Outcomes) = %d, want %d", len(m.Outcomes), domain.MaxOutcomes)
	}
	assertPricesSumToOne(t, m)
}

// ── Pricing ───────────────────────────────────────────────────────────────────

func TestApplyTrade_FirstTrade(t *testing.T) {
	m := newTestMarket(t)

	q, err := m.ApplyTrade("YES", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}

	// shares = 50 / 0.5 = 100
	if !q.Shares.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Shares = %s, want 100", q.Shares)
	}
	if !q.ExecutionPrice.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("ExecutionPrice = %s, want 0.5", q.ExecutionPrice)
	}
	// all volume on YES → YES price 1, NO price 0
	if !q.NewPrice.Equal(decimal.NewFromInt(1)) {
		t.Errorf("NewPrice = %s, want 1", q.NewPrice)
	}
	if !m.Prices["NO"].IsZero() {
		t.Errorf("price[NO] = %s, want 0", m.Prices["NO"])
	}
	if !m.TotalVolume.Equal(decimal.NewFromInt(50)) {
		t.Errorf("TotalVolume = %s, want 50", m.TotalVolume)
	}
	if m.TotalTraders != 1 {
		t.Errorf("TotalTraders = %d, want 1", m.TotalTraders)
	}
	assertPricesSumToOne(t, m)
}

func TestApplyTrade_VolumeShare(t *testing.T) {
	m := newTestMarket(t)
	if _, err := m.ApplyTrade("YES", decimal.NewFromInt(30)); err != nil {
		t.Fatalf("ApplyTrade(YES) error = %v", err)
	}
	// pure volume share leaves NO at zero; reopen it so it can be bought
	m.Prices["NO"] = decimal.RequireFromString("0.5")
	m.Prices["YES"] = decimal.RequireFromString("0.5")

	if _, err := m.ApplyTrade("NO", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("ApplyTrade(NO) error = %v", err)
	}

	// volumes 30/10 → prices 0.75/0.25
	if !m.Prices["YES"].Equal(decimal.RequireFromString("0.75")) {
		t.Errorf("price[YES] = %s, want 0.75", m.Prices["YES"])
	}
	if !m.Prices["NO"].Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("price[NO] = %s, want 0.25", m.Prices["NO"])
	}
	assertPricesSumToOne(t, m)
}

func TestApplyTrade_PricesStayNormalised(t *testing.T) {
	m := newTestMarket(t, "A", "B", "C")
	amounts := []int64{7, 13, 1, 250, 3, 42, 9, 18, 5, 77}

	for i, a := range amounts {
		o := m.Outcomes[i%len(m.Outcomes)]
		if !m.Prices[o].IsPositive() {
			continue
		}
		if _, err := m.ApplyTrade(o, decimal.NewFromInt(a)); err != nil {
			t.Fatalf("trade %d: ApplyTrade(%s, %d) error = %v", i, o, a, err)
		}
		assertPricesSumToOne(t, m)
	}
}

func TestApplyTrade_RejectionsLeaveMarketUnchanged(t *testing.T) {
	m := newTestMarket(t)
	before := m.Clone()

	if _, err := m.ApplyTrade("MAYBE", decimal.NewFromInt(10)); !domain.IsInvalidArgument(err) {
		t.Errorf("unknown outcome: error = %v, want invalid argument", err)
	}
	if _, err := m.ApplyTrade("YES", decimal.Zero); !domain.IsInvalidArgument(err) {
		t.Errorf("zero amount: error = %v, want invalid argument", err)
	}
	if _, err := m.ApplyTrade("YES", decimal.NewFromInt(-5)); !domain.IsInvalidArgument(err) {
		t.Errorf("negative amount: error = %v, want invalid argument", err)
	}

	if !m.TotalVolume.Equal(before.TotalVolume) || m.TotalTraders != before.TotalTraders {
		t.Error("rejected trades must not touch market totals")
	}
	for _, o := range m.Outcomes {
		if !m.Prices[o].Equal(before.Prices[o]) || !m.Volumes[o].Equal(before.Volumes[o]) {
			t.Errorf("outcome %s changed after rejected trades", o)
		}
	}
}

func TestApplyTrade_ZeroPricedOutcome(t *testing.T) {
	m := newTestMarket(t)
	if _, err := m.ApplyTrade("YES", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("ApplyTrade(YES) error = %v", err)
	}

	_, err := m.ApplyTrade("NO", decimal.NewFromInt(10))
	if !domain.IsInvalidArgument(err) {
		t.Fatalf("ApplyTrade(NO) error = %v, want invalid argument", err)
	}
	if !m.Volumes["NO"].IsZero() {
		t.Errorf("volume[NO] = %s, want 0", m.Volumes["NO"])
	}
}

func TestApplyTrade_InactiveMarket(t *testing.T) {
	m := newTestMarket(t)
	if err := m.Resolve("YES", m.CreatorAddress, time.Now()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := m.ApplyTrade("YES", decimal.NewFromInt(1)); !errors.Is(err, domain.ErrMarketNotActive) {
		t.Errorf("ApplyTrade() error = %v, want ErrMarketNotActive", err)
	}
}

// ── Resolution ────────────────────────────────────────────────────────────────

func TestResolve(t *testing.T) {
	m := newTestMarket(t)

	if err := m.Resolve("YES", "0xstranger", time.Now()); !errors.Is(err, domain.ErrNotMarketCreator) {
		t.Errorf("Resolve(stranger) error = %v, want ErrNotMarketCreator", err)
	}
	if err := m.Resolve("MAYBE", m.CreatorAddress, time.Now()); !domain.IsInvalidArgument(err) {
		t.Errorf("Resolve(MAYBE) error = %v, want invalid argument", err)
	}
	if m.IsResolved() {
		t.Fatal("failed resolutions must leave the market active")
	}

	if err := m.Resolve("NO", m.CreatorAddress, time.Now()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if m.Status != domain.MarketResolved {
		t.Errorf("Status = %s, want %s", m.Status, domain.MarketResolved)
	}
	if m.ResolvedOutcome == nil || *m.ResolvedOutcome != "NO" {
		t.Errorf("ResolvedOutcome = %v, want NO", m.ResolvedOutcome)
	}
	if m.ResolvedAt == nil {
		t.Error("ResolvedAt should be set")
	}
}

func TestResolve_SecondResolutionConflicts(t *testing.T) {
	m := newTestMarket(t)
	if err := m.Resolve("YES", m.CreatorAddress, time.Now()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	for _, who := range []string{m.CreatorAddress, "0xstranger"} {
		err := m.Resolve("NO", who, time.Now())
		if !errors.Is(err, domain.ErrMarketAlreadyResolved) {
			t.Errorf("Resolve(%s) error = %v, want ErrMarketAlreadyResolved", who, err)
		}
	}
	if *m.ResolvedOutcome != "YES" {
		t.Errorf("ResolvedOutcome = %s, want YES", *m.ResolvedOutcome)
	}
}

func TestMarket_CloneIsDeep(t *testing.T) {
	m := newTestMarket(t)
	c := m.Clone()
	c.Prices["YES"] = decimal.NewFromInt(1)
	c.Outcomes[0] = "changed"

	if m.Prices["YES"].Equal(decimal.NewFromInt(1)) {
		t.Error("mutating clone prices leaked into original")
	}
	if m.Outcomes[0] != "YES" {
		t.Error("mutating clone outcomes leaked into original")
	}
}

func TestMarketStatus_IsValid(t *testing.T) {
	for _, s := range []domain.MarketStatus{domain.MarketActive, domain.MarketClosed, domain.MarketResolved, domain.MarketCancelled} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if domain.MarketStatus("paused").IsValid() {
		t.Error("paused should not be valid")
	}
}
