package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TournamentStatus is the lifecycle state of a tournament.
//
//	PENDING ──start──▶ ACTIVE ──complete──▶ COMPLETED
//	   └────────────complete─────────────────▲
type TournamentStatus string

const (
	TournamentPending   TournamentStatus = "pending"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled" // declared; nothing transitions here
)

// IsValid reports whether s is one of the declared statuses.
func (s TournamentStatus) IsValid() bool {
	switch s {
	case TournamentPending, TournamentActive, TournamentCompleted, TournamentCancelled:
		return true
	}
	return false
}

// Participant bounds.
const (
	MinMaxParticipants = 2
	MaxMaxParticipants = 1000
	MaxWinners         = 3
)

// PrizeShares is the fraction of the prize pool paid to each winner rank.
var PrizeShares = []decimal.Decimal{
	decimal.RequireFromString("0.5"),
	decimal.RequireFromString("0.3"),
	decimal.RequireFromString("0.2"),
}

// ──────────────────────────────────────────────────────────────────────────────
// Tournament
// ──────────────────────────────────────────────────────────────────────────────

// Tournament is a prediction contest over a fixed set of markets.
// Participants keeps join order, which is the tie-breaker when ranking.
type Tournament struct {
	ID                string                       `json:"id"`
	Name              string                       `json:"name"`
	Description       string                       `json:"description"`
	MarketIDs         []string                     `json:"market_ids"`
	EntryFee          decimal.Decimal              `json:"entry_fee"`
	PrizePool         decimal.Decimal              `json:"prize_pool"`
	StartTime         time.Time                    `json:"start_time"`
	EndTime           time.Time                    `json:"end_time"`
	MaxParticipants   int                          `json:"max_participants"`
	CreatorAddress    string                       `json:"creator_address"`
	Status            TournamentStatus             `json:"status"`
	Participants      []string                     `json:"participants"`
	ParticipantScores map[string]int               `json:"participant_scores"`
	Predictions       map[string]map[string]string `json:"predictions"`
	Winners           []string                     `json:"winners"`
	PrizeDistribution map[string]decimal.Decimal   `json:"prize_distribution"`
	CreatedAt         time.Time                    `json:"created_at"`
	CompletedAt       *time.Time                   `json:"completed_at"`
}

// CreateTournamentParams carries the caller-supplied fields of CreateTournament.
type CreateTournamentParams struct {
	Name            string
	Description     string
	MarketIDs       []string
	EntryFee        decimal.Decimal
	PrizePool       decimal.Decimal
	StartTime       time.Time
	EndTime         time.Time
	MaxParticipants int
	CreatorAddress  string
}

// NewTournament validates p and returns a PENDING tournament. Market
// existence is checked by the caller, which owns the store.
func NewTournament(p CreateTournamentParams, now time.Time) (*Tournament, error) {
	if strings.TrimSpace(p.CreatorAddress) == "" {
		return nil, InvalidArgument("creator_address", "must not be empty")
	}
	if len(p.MarketIDs) == 0 {
		return nil, InvalidArgument("market_ids", "at least one market is required")
	}
	seen := make(map[string]bool, len(p.MarketIDs))
	for _, id := range p.MarketIDs {
		if seen[id] {
			return nil, InvalidArgument("market_ids", fmt.Sprintf("duplicate market %s", id))
		}
		seen[id] = true
	}
	if p.EntryFee.IsNegative() {
		return nil, InvalidArgument("entry_fee", "must not be negative")
	}
	if p.PrizePool.IsNegative() {
		return nil, InvalidArgument("prize_pool", "must not be negative")
	}
	if p.MaxParticipants < MinMaxParticipants || p.MaxParticipants > MaxMaxParticipants {
		return nil, InvalidArgument("max_participants",
			fmt.Sprintf("must be between %d and %d", MinMaxParticipants, MaxMaxParticipants))
	}
	if !p.EndTime.After(p.StartTime) {
		return nil, InvalidArgument("end_time", "must be after start_time")
	}

	return &Tournament{
		ID:                NewID(PrefixTournament),
		Name:              p.Name,
		Description:       p.Description,
		MarketIDs:         cloneStrings(p.MarketIDs),
		EntryFee:          p.EntryFee,
		PrizePool:         p.PrizePool,
		StartTime:         p.StartTime.UTC(),
		EndTime:           p.EndTime.UTC(),
		MaxParticipants:   p.MaxParticipants,
		CreatorAddress:    p.CreatorAddress,
		Status:            TournamentPending,
		Participants:      []string{},
		ParticipantScores: map[string]int{},
		Predictions:       map[string]map[string]string{},
		Winners:           []string{},
		PrizeDistribution: map[string]decimal.Decimal{},
		CreatedAt:         now.UTC(),
	}, nil
}

// HasParticipant reports whether addr has joined.
func (t *Tournament) HasParticipant(addr string) bool {
	for _, p := range t.Participants {
		if p == addr {
			return true
		}
	}
	return false
}

// HasMarket reports whether marketID is part of the tournament.
func (t *Tournament) HasMarket(marketID string) bool {
	for _, id := range t.MarketIDs {
		if id == marketID {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// Join appends addr to the participant list with a zero score.
func (t *Tournament) Join(addr string) error {
	if addr == "" {
		return InvalidArgument("participant_address", "must not be empty")
	}
	if t.Status != TournamentPending {
		return ErrTournamentNotPending
	}
	if len(t.Participants) >= t.MaxParticipants {
		return ErrTournamentFull
	}
	if t.HasParticipant(addr) {
		return ErrAlreadyJoined
	}
	t.Participants = append(t.Participants, addr)
	t.ParticipantScores[addr] = 0
	return nil
}

// Start moves a PENDING tournament with at least two participants to ACTIVE.
func (t *Tournament) Start(caller string) error {
	if caller != t.CreatorAddress {
		return ErrNotTournamentCreator
	}
	if t.Status != TournamentPending {
		return ErrTournamentNotPending
	}
	if len(t.Participants) < 2 {
		return ErrNotEnoughParticipants
	}
	t.Status = TournamentActive
	return nil
}

// SubmitPredictions merges preds (marketID → outcome) into the participant's
// stored predictions; later entries for a market overwrite earlier ones.
// markets must hold every market referenced by preds that belongs to the
// tournament. Nothing is written unless every entry is valid.
func (t *Tournament) SubmitPredictions(addr string, preds map[string]string, markets map[string]*Market) error {
	if t.Status != TournamentActive {
		return ErrTournamentNotActive
	}
	if !t.HasParticipant(addr) {
		return ErrNotParticipant
	}
	if len(preds) == 0 {
		return InvalidArgument("predictions", "at least one prediction is required")
	}

	ids := make([]string, 0, len(preds))
	for id := range preds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !t.HasMarket(id) {
			return InvalidArgument("predictions", fmt.Sprintf("market %s is not part of this tournament", id))
		}
		m, ok := markets[id]
		if !ok {
			return NotFound("market", id)
		}
		if !m.HasOutcome(preds[id]) {
			return InvalidArgument("predictions", fmt.Sprintf("%q is not an outcome of market %s", preds[id], id))
		}
	}

	stored := t.Predictions[addr]
	if stored == nil {
		stored = make(map[string]string, len(preds))
		t.Predictions[addr] = stored
	}
	for _, id := range ids {
		stored[id] = preds[id]
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Scoring & ranking
// ──────────────────────────────────────────────────────────────────────────────

// Standing is one row of a tournament ranking.
type Standing struct {
	Rank        int             `json:"rank"`
	Participant string          `json:"participant"`
	Score       int             `json:"score"`
	Prize       decimal.Decimal `json:"prize"`
}

// Score counts addr's predictions that match a resolved market outcome.
// resolved maps market id to its resolved outcome; unresolved markets are
// absent and contribute nothing.
func (t *Tournament) Score(addr string, resolved map[string]string) int {
	score := 0
	for marketID, outcome := range t.Predictions[addr] {
		if r, ok := resolved[marketID]; ok && r == outcome {
			score++
		}
	}
	return score
}

// Ranking orders participants by score, highest first. Equal scores keep
// join order.
func (t *Tournament) Ranking() []Standing {
	order := cloneStrings(t.Participants)
	sort.SliceStable(order, func(i, j int) bool {
		return t.ParticipantScores[order[i]] > t.ParticipantScores[order[j]]
	})

	out := make([]Standing, len(order))
	for i, p := range order {
		prize, ok := t.PrizeDistribution[p]
		if !ok {
			prize = decimal.Zero
		}
		out[i] = Standing{Rank: i + 1, Participant: p, Score: t.ParticipantScores[p], Prize: prize}
	}
	return out
}

// CompletionResult is what CompleteTournament reports.
type CompletionResult struct {
	TournamentID      string                     `json:"tournament_id"`
	Winners           []string                   `json:"winners"`
	Scores            map[string]int             `json:"scores"`
	PrizeDistribution map[string]decimal.Decimal `json:"prize_distribution"`
}

// Complete scores every participant, ranks them, and splits the prize pool
// 50/30/20 across the top three. Undistributed prize money stays unallocated.
func (t *Tournament) Complete(caller string, resolved map[string]string, now time.Time) (CompletionResult, error) {
	if caller != t.CreatorAddress {
		return CompletionResult{}, ErrNotTournamentCreator
	}
	if t.Status == TournamentCompleted {
		return CompletionResult{}, ErrTournamentCompleted
	}

	scores := make(map[string]int, len(t.Participants))
	for _, p := range t.Participants {
		scores[p] = t.Score(p, resolved)
	}
	t.ParticipantScores = scores

	ranking := t.Ranking()
	n := len(ranking)
	if n > MaxWinners {
		n = MaxWinners
	}
	winners := make([]string, 0, n)
	prizes := make(map[string]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		p := ranking[i].Participant
		winners = append(winners, p)
		prizes[p] = t.PrizePool.Mul(PrizeShares[i])
	}

	at := now.UTC()
	t.Winners = winners
	t.PrizeDistribution = prizes
	t.Status = TournamentCompleted
	t.CompletedAt = &at

	return t.Result(), nil
}

// Result reports the current winners, scores and prizes.
func (t *Tournament) Result() CompletionResult {
	scores := make(map[string]int, len(t.ParticipantScores))
	for k, v := range t.ParticipantScores {
		scores[k] = v
	}
	return CompletionResult{
		TournamentID:      t.ID,
		Winners:           cloneStrings(t.Winners),
		Scores:            scores,
		PrizeDistribution: cloneDecimalMap(t.PrizeDistribution),
	}
}

// Clone returns a deep copy.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	c := *t
	c.MarketIDs = cloneStrings(t.MarketIDs)
	c.Participants = cloneStrings(t.Participants)
	c.Winners = cloneStrings(t.Winners)
	c.ParticipantScores = make(map[string]int, len(t.ParticipantScores))
	for k, v := range t.ParticipantScores {
		c.ParticipantScores[k] = v
	}
	c.Predictions = make(map[string]map[string]string, len(t.Predictions))
	for addr, preds := range t.Predictions {
		inner := make(map[string]string, len(preds))
		for k, v := range preds {
			inner[k] = v
		}
		c.Predictions[addr] = inner
	}
	c.PrizeDistribution = cloneDecimalMap(t.PrizeDistribution)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}
