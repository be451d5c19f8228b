package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/shopspring/decimal"
)

// StatsService serves read-only aggregates: platform stats, the user
// leaderboard and the backoffice risk and finance views.
type StatsService struct {
	base
	store          *repository.Store
	marketRepo     *repository.MarketRepository
	stakeRepo      *repository.StakeRepository
	tournamentRepo *repository.TournamentRepository
	userRepo       *repository.UserRepository
}

// NewStatsService creates a StatsService.
func NewStatsService(
	store *repository.Store,
	marketRepo *repository.MarketRepository,
	stakeRepo *repository.StakeRepository,
	tournamentRepo *repository.TournamentRepository,
	userRepo *repository.UserRepository,
	cfg *config.Config,
	log *slog.Logger,
) *StatsService {
	return &StatsService{
		base:           newBase(cfg, log),
		store:          store,
		marketRepo:     marketRepo,
		stakeRepo:      stakeRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Platform
// ──────────────────────────────────────────────────────────────────────────────

// PlatformStats is the public platform summary.
type PlatformStats struct {
	repository.MarketTotals
	TotalUsers       int       `json:"total_users"`
	TotalTrades      int       `json:"total_trades"`
	TotalStakes      int       `json:"total_stakes"`
	TotalTournaments int       `json:"total_tournaments"`
	Timestamp        time.Time `json:"timestamp"`
}

// PlatformStats reports market totals and entity counts.
func (s *StatsService) PlatformStats(ctx context.Context) PlatformStats {
	counts := s.store.Counts()
	return PlatformStats{
		MarketTotals:     s.marketRepo.Totals(ctx),
		TotalUsers:       counts.Users,
		TotalTrades:      counts.Trades,
		TotalStakes:      counts.Stakes,
		TotalTournaments: counts.Tournaments,
		Timestamp:        s.now(),
	}
}

// Leaderboard ranks users by volume, then trade count.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) []domain.LeaderboardEntry {
	return s.userRepo.Leaderboard(ctx, s.listLimit(limit))
}

// GetUser returns the activity aggregate for address.
func (s *StatsService) GetUser(ctx context.Context, address string) (*domain.User, error) {
	u, err := s.userRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("stats_service.GetUser: %w", err)
	}
	return u, nil
}

// ListUsers pages through users in first-seen order.
func (s *StatsService) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, int) {
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.List(ctx, s.listLimit(limit), offset)
}

// ──────────────────────────────────────────────────────────────────────────────
// Risk
// ──────────────────────────────────────────────────────────────────────────────

// Risk levels by the share of volume held by the leading outcome.
const (
	RiskGreen  = "GREEN"
	RiskYellow = "YELLOW"
	RiskRed    = "RED"
)

var (
	riskYellowAbove = decimal.RequireFromString("0.70")
	riskRedAbove    = decimal.RequireFromString("0.85")
)

// MarketRisk describes how lopsided an active market's volume is.
type MarketRisk struct {
	MarketID       string          `json:"market_id"`
	Question       string          `json:"question"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
	LeadingOutcome string          `json:"leading_outcome"`
	LeadingShare   decimal.Decimal `json:"leading_share"`
	RiskIndicator  string          `json:"risk_indicator"`
	TotalStakes    int             `json:"total_staked_insights"`
	EndTime        time.Time       `json:"end_time"`
	PastEnd        bool            `json:"past_end_time"`
}

// RiskIndicator maps the leading outcome's volume share to a level.
func RiskIndicator(share decimal.Decimal) string {
	switch {
	case share.GreaterThan(riskRedAbove):
		return RiskRed
	case share.GreaterThan(riskYellowAbove):
		return RiskYellow
	default:
		return RiskGreen
	}
}

// MarketRisk lists every active market, most concentrated first.
func (s *StatsService) MarketRisk(ctx context.Context) []MarketRisk {
	markets := s.marketRepo.List(ctx, repository.MarketFilter{Status: domain.MarketActive})
	now := s.now()

	out := make([]MarketRisk, 0, len(markets))
	for _, m := range markets {
		r := MarketRisk{
			MarketID:     m.ID,
			Question:     m.Question,
			TotalVolume:  m.TotalVolume,
			LeadingShare: decimal.Zero,
			TotalStakes:  m.TotalStakes,
			EndTime:      m.EndTime,
			PastEnd:      now.After(m.EndTime),
		}
		if m.TotalVolume.IsPositive() {
			for _, o := range m.Outcomes {
				share := m.Volumes[o].Div(m.TotalVolume)
				if r.LeadingOutcome == "" || share.GreaterThan(r.LeadingShare) {
					r.LeadingOutcome, r.LeadingShare = o, share
				}
			}
		}
		r.RiskIndicator = RiskIndicator(r.LeadingShare)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LeadingShare.GreaterThan(out[j].LeadingShare)
	})
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Finance
// ──────────────────────────────────────────────────────────────────────────────

// FinanceReport sums money owed and paid by the platform.
type FinanceReport struct {
	Stakes            repository.RewardTotals `json:"stakes"`
	TradeVolume       decimal.Decimal         `json:"trade_volume"`
	PrizesAwarded     decimal.Decimal         `json:"prizes_awarded"`
	PrizesUnallocated decimal.Decimal         `json:"prizes_unallocated"`
	OpenPrizePools    decimal.Decimal         `json:"open_prize_pools"`
	Timestamp         time.Time               `json:"timestamp"`
}

// FinanceReport aggregates stake settlement money and tournament prizes.
// Prize money not handed to a winner on completion counts as unallocated.
func (s *StatsService) FinanceReport(ctx context.Context) FinanceReport {
	r := FinanceReport{
		Stakes:            s.stakeRepo.RewardTotals(ctx),
		TradeVolume:       s.marketRepo.Totals(ctx).TotalVolume,
		PrizesAwarded:     decimal.Zero,
		PrizesUnallocated: decimal.Zero,
		OpenPrizePools:    decimal.Zero,
		Timestamp:         s.now(),
	}
	for _, t := range s.tournamentRepo.List(ctx, repository.TournamentFilter{}) {
		if t.Status != domain.TournamentCompleted {
			r.OpenPrizePools = r.OpenPrizePools.Add(t.PrizePool)
			continue
		}
		awarded := decimal.Zero
		for _, p := range t.PrizeDistribution {
			awarded = awarded.Add(p)
		}
		r.PrizesAwarded = r.PrizesAwarded.Add(awarded)
		r.PrizesUnallocated = r.PrizesUnallocated.Add(t.PrizePool.Sub(awarded))
	}
	return r
}
