// Package domain defines the core entities of the prediction-market platform
// together with the pure computations that act on them: volume-share
// pricing, stake settlement and tournament ranking. Nothing in this package
// performs I/O or locking; the repository and service layers own that.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketActive    MarketStatus = "active"    // accepting trades and stakes
	MarketClosed    MarketStatus = "closed"    // declared; no operation moves a market here
	MarketResolved  MarketStatus = "resolved"  // winner set, stakes settled; terminal
	MarketCancelled MarketStatus = "cancelled" // declared; no operation moves a market here
)

// IsValid reports whether s is one of the declared statuses.
func (s MarketStatus) IsValid() bool {
	switch s {
	case MarketActive, MarketClosed, MarketResolved, MarketCancelled:
		return true
	}
	return false
}

// Market limits.
const (
	MinOutcomes = 2
	MaxOutcomes = 10
)

// PriceTolerance is the allowed drift of Σ prices away from 1.
var PriceTolerance = decimal.New(1, -9)

// MinInitialLiquidity is the smallest liquidity a market may be created with.
var MinInitialLiquidity = decimal.NewFromInt(1)

// ──────────────────────────────────────────────────────────────────────────────
// Market
// ──────────────────────────────────────────────────────────────────────────────

// Market is a question with a fixed, ordered set of mutually exclusive outcomes.
// Prices and Volumes are keyed by outcome and always carry exactly the keys in
// Outcomes.
type Market struct {
	ID               string                     `json:"id"`
	Question         string                     `json:"question"`
	Description      string                     `json:"description"`
	CreatorAddress   string                     `json:"creator_address"`
	Category         string                     `json:"category"`
	Outcomes         []string                   `json:"outcomes"`
	EndTime          time.Time                  `json:"end_time"`
	ResolutionSource string                     `json:"resolution_source"`
	Status           MarketStatus               `json:"status"`
	ResolvedOutcome  *string                    `json:"resolved_outcome"`
	ResolvedAt       *time.Time                 `json:"resolved_at"`
	CreatedAt        time.Time                  `json:"created_at"`
	TotalLiquidity   decimal.Decimal            `json:"total_liquidity"`
	TotalVolume      decimal.Decimal            `json:"total_volume"`
	TotalTraders     int                        `json:"total_traders"`
	TotalStakes      int                        `json:"total_staked_insights"`
	Prices           map[string]decimal.Decimal `json:"prices"`
	Volumes          map[string]decimal.Decimal `json:"volumes"`
}

// NewMarket validates the creation parameters and returns an ACTIVE market
// with uniform prices and zero volume. now is the creation instant; endTime
// must lie strictly after it.
func NewMarket(p CreateMarketParams, now time.Time) (*Market, error) {
	if strings.TrimSpace(p.CreatorAddress) == "" {
		return nil, InvalidArgument("creator_address", "must not be empty")
	}
	if err := ValidateOutcomes(p.Outcomes); err != nil {
		return nil, err
	}
	if !p.EndTime.After(now) {
		return nil, InvalidArgument("end_time", "must be in the future")
	}
	if p.InitialLiquidity.LessThan(MinInitialLiquidity) {
		return nil, InvalidArgument("initial_liquidity", fmt.Sprintf("must be at least %s", MinInitialLiquidity))
	}

	outcomes := cloneStrings(p.Outcomes)
	m := &Market{
		ID:               NewID(PrefixMarket),
		Question:         p.Question,
		Description:      p.Description,
		CreatorAddress:   p.CreatorAddress,
		Category:         p.Category,
		Outcomes:         outcomes,
		EndTime:          p.EndTime.UTC(),
		ResolutionSource: p.ResolutionSource,
		Status:           MarketActive,
		CreatedAt:        now.UTC(),
		TotalLiquidity:   p.InitialLiquidity,
		TotalVolume:      decimal.Zero,
		Prices:           UniformPrices(outcomes),
		Volumes:          make(map[string]decimal.Decimal, len(outcomes)),
	}
	for _, o := range outcomes {
		m.Volumes[o] = decimal.Zero
	}
	return m, nil
}

// CreateMarketParams carries the caller-supplied fields of CreateMarket.
type CreateMarketParams struct {
	Question         string
	Description      string
	CreatorAddress   string
	Category         string
	Outcomes         []string
	EndTime          time.Time
	ResolutionSource string
	InitialLiquidity decimal.Decimal
}

// ValidateOutcomes checks count, emptiness and uniqueness of an outcome list.
func ValidateOutcomes(outcomes []string) error {
	if len(outcomes) < MinOutcomes {
		return InvalidArgument("outcomes", fmt.Sprintf("at least %d outcomes are required", MinOutcomes))
	}
	if len(outcomes) > MaxOutcomes {
		return InvalidArgument("outcomes", fmt.Sprintf("at most %d outcomes are allowed", MaxOutcomes))
	}
	seen := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		if strings.TrimSpace(o) == "" {
			return InvalidArgument("outcomes", "outcome names must not be empty")
		}
		if seen[o] {
			return InvalidArgument("outcomes", fmt.Sprintf("duplicate outcome %q", o))
		}
		seen[o] = true
	}
	return nil
}

// UniformPrices returns 1/n for each of the n outcomes.
func UniformPrices(outcomes []string) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(outcomes))
	if len(outcomes) == 0 {
		return prices
	}
	p := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(outcomes))))
	for _, o := range outcomes {
		prices[o] = p
	}
	return prices
}

// HasOutcome reports whether o is one of the market's outcomes.
func (m *Market) HasOutcome(o string) bool {
	for _, x := range m.Outcomes {
		if x == o {
			return true
		}
	}
	return false
}

// IsActive returns true when the market accepts trades and stakes.
func (m *Market) IsActive() bool { return m.Status == MarketActive }

// IsResolved returns true once a winning outcome has been set.
func (m *Market) IsResolved() bool { return m.Status == MarketResolved }

// PriceSum returns Σ prices over all outcomes.
func (m *Market) PriceSum() decimal.Decimal {
	sum := decimal.Zero
	for _, o := range m.Outcomes {
		sum = sum.Add(m.Prices[o])
	}
	return sum
}

// Clone returns a deep copy; the store hands out clones so callers never share
// maps with the stored instance.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	c := *m
	c.Outcomes = cloneStrings(m.Outcomes)
	c.Prices = cloneDecimalMap(m.Prices)
	c.Volumes = cloneDecimalMap(m.Volumes)
	if m.ResolvedOutcome != nil {
		o := *m.ResolvedOutcome
		c.ResolvedOutcome = &o
	}
	if m.ResolvedAt != nil {
		t := *m.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func cloneDecimalMap(src map[string]decimal.Decimal) map[string]decimal.Decimal {
	if src == nil {
		return nil
	}
	dst := make(map[string]decimal.Decimal, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ──────────────────────────────────────────────────────────────────────────────
// Pricing
// ──────────────────────────────────────────────────────────────────────────────

// TradeQuote is the result of applying one trade to a market.
type TradeQuote struct {
	ExecutionPrice decimal.Decimal // price of the outcome before the trade
	Shares         decimal.Decimal // amount / ExecutionPrice
	NewPrice       decimal.Decimal // price of the outcome after the trade
}

// ApplyTrade runs volume-share pricing for a purchase of amount on outcome.
//
//	shares   = amount / price[outcome]           (pre-trade price)
//	volume[outcome] += amount
//	price[o] = volume[o] / Σ volume              (1/n when Σ volume is 0)
//	price[o] = price[o] / Σ price                (renormalisation)
//
// All checks run before anything is written; on error m is unchanged.
// ErrPriceInvariant is returned if the renormalised prices still miss 1 by
// more than PriceTolerance.
func (m *Market) ApplyTrade(outcome string, amount decimal.Decimal) (TradeQuote, error) {
	if !m.IsActive() {
		return TradeQuote{}, ErrMarketNotActive
	}
	if !m.HasOutcome(outcome) {
		return TradeQuote{}, InvalidArgument("outcome", fmt.Sprintf("%q is not an outcome of this market", outcome))
	}
	if !amount.IsPositive() {
		return TradeQuote{}, InvalidArgument("amount", "must be greater than zero")
	}

	execPrice := m.Prices[outcome]
	if !execPrice.IsPositive() {
		return TradeQuote{}, InvalidArgument("outcome", "outcome has no price yet")
	}
	shares := amount.Div(execPrice)

	volumes := cloneDecimalMap(m.Volumes)
	volumes[outcome] = volumes[outcome].Add(amount)

	prices, err := volumeSharePrices(m.Outcomes, volumes)
	if err != nil {
		return TradeQuote{}, err
	}

	m.Volumes = volumes
	m.Prices = prices
	m.TotalVolume = m.TotalVolume.Add(amount)
	m.TotalTraders++

	return TradeQuote{
		ExecutionPrice: execPrice,
		Shares:         shares,
		NewPrice:       prices[outcome],
	}, nil
}

// volumeSharePrices derives normalised prices from cumulative volumes.
func volumeSharePrices(outcomes []string, volumes map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range outcomes {
		total = total.Add(volumes[o])
	}

	prices := make(map[string]decimal.Decimal, len(outcomes))
	if total.IsPositive() {
		for _, o := range outcomes {
			prices[o] = volumes[o].Div(total)
		}
	} else {
		prices = UniformPrices(outcomes)
	}

	sum := decimal.Zero
	for _, o := range outcomes {
		sum = sum.Add(prices[o])
	}
	if sum.IsPositive() {
		for _, o := range outcomes {
			prices[o] = prices[o].Div(sum)
		}
	}

	check := decimal.Zero
	for _, o := range outcomes {
		check = check.Add(prices[o])
	}
	if check.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(PriceTolerance) {
		return nil, ErrPriceInvariant
	}
	return prices, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolution
// ──────────────────────────────────────────────────────────────────────────────

// Resolve marks the market RESOLVED with winning as the outcome.
// A resolved market always yields ErrMarketAlreadyResolved, whoever asks.
func (m *Market) Resolve(winning, resolver string, now time.Time) error {
	if m.IsResolved() {
		return ErrMarketAlreadyResolved
	}
	if resolver != m.CreatorAddress {
		return ErrNotMarketCreator
	}
	if !m.HasOutcome(winning) {
		return InvalidArgument("winning_outcome", fmt.Sprintf("%q is not an outcome of this market", winning))
	}

	at := now.UTC()
	w := winning
	m.Status = MarketResolved
	m.ResolvedOutcome = &w
	m.ResolvedAt = &at
	return nil
}

func cloneStrings(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}
