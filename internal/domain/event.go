package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType tags every notification emitted after a state change.
type EventType string

const (
	EventMarketCreated       EventType = "market_created"
	EventTrade               EventType = "trade"
	EventResolution          EventType = "resolution"
	EventStake               EventType = "stake"
	EventRewardClaimed       EventType = "reward_claimed"
	EventTournamentCreated   EventType = "tournament_created"
	EventParticipantJoined   EventType = "participant_joined"
	EventStarted             EventType = "started"
	EventPredictionSubmitted EventType = "prediction_submitted"
	EventCompleted           EventType = "completed"
)

// Event is one structured notification. MarketID or TournamentID scopes it
// so subscribers can filter; Payload is one of the *Payload types below.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	MarketID     string    `json:"market_id,omitempty"`
	TournamentID string    `json:"tournament_id,omitempty"`
	Payload      any       `json:"data"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(typ EventType, payload any) Event {
	return Event{
		ID:        NewID(PrefixEvent),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ForMarket scopes the event to a market.
func (e Event) ForMarket(id string) Event {
	e.MarketID = id
	return e
}

// ForTournament scopes the event to a tournament.
func (e Event) ForTournament(id string) Event {
	e.TournamentID = id
	return e
}

// ──────────────────────────────────────────────────────────────────────────────
// Payloads
// ──────────────────────────────────────────────────────────────────────────────

type MarketCreatedPayload struct {
	Market *Market `json:"market"`
}

type TradePayload struct {
	TradeID  string                     `json:"trade_id"`
	Trader   string                     `json:"trader"`
	Outcome  string                     `json:"outcome"`
	Amount   decimal.Decimal            `json:"amount"`
	Shares   decimal.Decimal            `json:"shares"`
	Price    decimal.Decimal            `json:"price"`
	NewPrice decimal.Decimal            `json:"new_price"`
	Prices   map[string]decimal.Decimal `json:"prices"`
	Volumes  map[string]decimal.Decimal `json:"volumes"`
}

type ResolutionPayload struct {
	WinningOutcome string           `json:"winning_outcome"`
	ResolvedAt     time.Time        `json:"resolved_at"`
	Totals         SettlementTotals `json:"totals"`
	Stakes         []StakeOutcome   `json:"stakes"`
}

// StakeOutcome is the per-stake settlement reported with a resolution.
type StakeOutcome struct {
	StakeID    string     `json:"stake_id"`
	Staker     string     `json:"staker"`
	Settlement Settlement `json:"settlement"`
}

type StakePayload struct {
	StakeID    string          `json:"stake_id"`
	Staker     string          `json:"staker"`
	Outcome    string          `json:"outcome"`
	Amount     decimal.Decimal `json:"amount"`
	Confidence float64         `json:"confidence"`
}

type RewardClaimedPayload struct {
	StakeID      string          `json:"stake_id"`
	Staker       string          `json:"staker"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	TxnID        string          `json:"txn_id"`
}

type TournamentCreatedPayload struct {
	Tournament *Tournament `json:"tournament"`
}

type ParticipantJoinedPayload struct {
	Participant      string `json:"participant"`
	ParticipantCount int    `json:"participant_count"`
}

type StartedPayload struct {
	ParticipantCount int `json:"participant_count"`
}

type PredictionSubmittedPayload struct {
	Participant string            `json:"participant"`
	Predictions map[string]string `json:"predictions"`
}

type CompletedPayload struct {
	Result CompletionResult `json:"result"`
}
