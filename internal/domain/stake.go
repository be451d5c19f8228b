package domain

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Reasoning length bounds for an insight stake.
const (
	MinReasoningLen = 10
	MaxReasoningLen = 1000
)

// ──────────────────────────────────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────────────────────────────────

// SettlementState is the tag of a Settlement.
type SettlementState string

const (
	SettlementPending   SettlementState = "pending"
	SettlementCorrect   SettlementState = "correct"
	SettlementIncorrect SettlementState = "incorrect"
)

// Settlement is the outcome of a stake once its market resolves:
// Pending, Correct(reward) or Incorrect. The zero value is Pending.
type Settlement struct {
	state  SettlementState
	reward decimal.Decimal
}

// Pending returns the unsettled variant.
func Pending() Settlement { return Settlement{state: SettlementPending} }

// Correct returns the winning variant carrying its reward.
func Correct(reward decimal.Decimal) Settlement {
	return Settlement{state: SettlementCorrect, reward: reward}
}

// Incorrect returns the losing variant. It never carries a reward.
func Incorrect() Settlement { return Settlement{state: SettlementIncorrect} }

// State returns the variant tag; the zero value reports pending.
func (s Settlement) State() SettlementState {
	if s.state == "" {
		return SettlementPending
	}
	return s.state
}

func (s Settlement) IsPending() bool   { return s.State() == SettlementPending }
func (s Settlement) IsCorrect() bool   { return s.state == SettlementCorrect }
func (s Settlement) IsIncorrect() bool { return s.state == SettlementIncorrect }

// Reward returns the reward and true only for the Correct variant.
func (s Settlement) Reward() (decimal.Decimal, bool) {
	if s.state != SettlementCorrect {
		return decimal.Zero, false
	}
	return s.reward, true
}

// MarshalJSON exposes the variant together with the flattened
// is_correct/reward_amount pair, both null while pending.
func (s Settlement) MarshalJSON() ([]byte, error) {
	out := struct {
		State        SettlementState  `json:"state"`
		IsCorrect    *bool            `json:"is_correct"`
		RewardAmount *decimal.Decimal `json:"reward_amount"`
	}{State: s.State()}

	switch s.state {
	case SettlementCorrect:
		t := true
		r := s.reward
		out.IsCorrect = &t
		out.RewardAmount = &r
	case SettlementIncorrect:
		f := false
		out.IsCorrect = &f
	}
	return json.Marshal(out)
}

// ──────────────────────────────────────────────────────────────────────────────
// Stake
// ──────────────────────────────────────────────────────────────────────────────

// Stake is an insight position: an amount backing an outcome together with
// the staker's reasoning and confidence. It is settled when its market
// resolves and its reward can be claimed once.
type Stake struct {
	ID            string          `json:"id"`
	MarketID      string          `json:"market_id"`
	StakerAddress string          `json:"staker_address"`
	Outcome       string          `json:"outcome"`
	Amount        decimal.Decimal `json:"amount"`
	Reasoning     string          `json:"reasoning"`
	Confidence    float64         `json:"confidence"`
	TxnID         string          `json:"txn_id"`
	Settlement    Settlement      `json:"settlement"`
	Claimed       bool            `json:"claimed"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StakeRequest carries the inputs of CreateStake.
type StakeRequest struct {
	MarketID      string
	StakerAddress string
	Outcome       string
	Amount        decimal.Decimal
	Reasoning     string
	Confidence    float64
}

// NewStake validates req against market and returns a pending stake.
func NewStake(req StakeRequest, market *Market, now time.Time) (*Stake, error) {
	if req.StakerAddress == "" {
		return nil, InvalidArgument("staker_address", "must not be empty")
	}
	if !req.Amount.IsPositive() {
		return nil, InvalidArgument("amount", "must be greater than zero")
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, InvalidArgument("confidence", "must be between 0 and 1")
	}
	if n := utf8.RuneCountInString(req.Reasoning); n < MinReasoningLen || n > MaxReasoningLen {
		return nil, InvalidArgument("reasoning", fmt.Sprintf("must be %d to %d characters", MinReasoningLen, MaxReasoningLen))
	}
	if !market.IsActive() {
		return nil, ErrMarketNotActive
	}
	if !market.HasOutcome(req.Outcome) {
		return nil, InvalidArgument("outcome", fmt.Sprintf("%q is not an outcome of this market", req.Outcome))
	}

	return &Stake{
		ID:            NewID(PrefixStake),
		MarketID:      market.ID,
		StakerAddress: req.StakerAddress,
		Outcome:       req.Outcome,
		Amount:        req.Amount,
		Reasoning:     req.Reasoning,
		Confidence:    req.Confidence,
		TxnID:         NewID(PrefixTxn),
		Settlement:    Pending(),
		CreatedAt:     now.UTC(),
	}, nil
}

// Weight is amount × confidence, used to rank insights.
func (s *Stake) Weight() decimal.Decimal {
	return s.Amount.Mul(decimal.NewFromFloat(s.Confidence))
}

// Clone returns a copy safe to mutate.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement math
// ──────────────────────────────────────────────────────────────────────────────

// SettlementTotals summarises one market's stake pools at resolution.
type SettlementTotals struct {
	TotalCorrect   decimal.Decimal `json:"total_correct"`
	TotalIncorrect decimal.Decimal `json:"total_incorrect"`
	Winners        int             `json:"winners"`
	Losers         int             `json:"losers"`
}

// SettleStakes assigns a Settlement to every pending stake in stakes.
// Correct stakes receive principal plus a pro-rata share of the losing pool:
//
//	reward = amount + amount × totalIncorrect / totalCorrect
//
// so Σ rewards == totalCorrect + totalIncorrect. Incorrect stakes get nothing.
func SettleStakes(stakes []*Stake, winning string) SettlementTotals {
	var t SettlementTotals
	for _, s := range stakes {
		if s.Outcome == winning {
			t.TotalCorrect = t.TotalCorrect.Add(s.Amount)
		} else {
			t.TotalIncorrect = t.TotalIncorrect.Add(s.Amount)
		}
	}

	for _, s := range stakes {
		if !s.Settlement.IsPending() {
			continue
		}
		if s.Outcome != winning {
			s.Settlement = Incorrect()
			t.Losers++
			continue
		}
		reward := s.Amount
		if t.TotalCorrect.IsPositive() {
			reward = s.Amount.Add(s.Amount.Mul(t.TotalIncorrect).Div(t.TotalCorrect))
		}
		s.Settlement = Correct(reward)
		t.Winners++
	}
	return t
}

// Claim checks, in order: ownership, not yet claimed, market resolved,
// stake correct, positive reward. On success it flips Claimed, and nothing
// else, and returns the reward; on failure s is unchanged.
func (s *Stake) Claim(claimer string, market *Market) (decimal.Decimal, error) {
	if claimer != s.StakerAddress {
		return decimal.Zero, ErrNotStakeOwner
	}
	if s.Claimed {
		return decimal.Zero, ErrAlreadyClaimed
	}
	if !market.IsResolved() {
		return decimal.Zero, ErrMarketNotResolved
	}
	if !s.Settlement.IsCorrect() {
		return decimal.Zero, ErrNotWinning
	}
	reward, _ := s.Settlement.Reward()
	if !reward.IsPositive() {
		return decimal.Zero, ErrNoReward
	}

	s.Claimed = true
	return reward, nil
}

// ClaimReceipt is returned to the staker after a successful claim.
type ClaimReceipt struct {
	StakeID      string          `json:"stake_id"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	TxnID        string          `json:"txn_id"`
}
