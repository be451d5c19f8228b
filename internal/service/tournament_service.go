package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
)

// TournamentService runs the tournament lifecycle. Every mutation holds the
// tournament's lock; market state is only read.
type TournamentService struct {
	base
	store          *repository.Store
	locks          *repository.LockTable
	marketRepo     *repository.MarketRepository
	tournamentRepo *repository.TournamentRepository
}

// NewTournamentService creates a TournamentService.
func NewTournamentService(
	store *repository.Store,
	locks *repository.LockTable,
	marketRepo *repository.MarketRepository,
	tournamentRepo *repository.TournamentRepository,
	cfg *config.Config,
	log *slog.Logger,
) *TournamentService {
	return &TournamentService{
		base:           newBase(cfg, log),
		store:          store,
		locks:          locks,
		marketRepo:     marketRepo,
		tournamentRepo: tournamentRepo,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateTournament
// ──────────────────────────────────────────────────────────────────────────────

// CreateTournament stores a PENDING tournament. Every market id must refer to
// an existing market.
func (s *TournamentService) CreateTournament(ctx context.Context, p domain.CreateTournamentParams) (*domain.Tournament, error) {
	t, err := domain.NewTournament(p, s.now())
	if err != nil {
		return nil, fmt.Errorf("tournament_service.CreateTournament: %w", err)
	}

	tx := s.store.Begin(ctx)
	defer tx.Rollback()

	if err = s.tournamentRepo.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("tournament_service.CreateTournament: %w", err)
	}
	tx.UpdateUser(t.CreatorAddress, func(*domain.User) {})
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("tournament_service.CreateTournament: commit: %w", err)
	}

	s.log.Info("tournament created", "tournament_id", t.ID, "markets", len(t.MarketIDs))
	s.emit(domain.NewEvent(domain.EventTournamentCreated, domain.TournamentCreatedPayload{Tournament: t.Clone()}).
		ForTournament(t.ID))
	return t, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// JoinTournament adds addr to a PENDING tournament.
func (s *TournamentService) JoinTournament(ctx context.Context, id, addr string) (*domain.Tournament, error) {
	t, err := s.mutate(ctx, "JoinTournament", id, func(t *domain.Tournament, tx *repository.Tx) error {
		if err := t.Join(addr); err != nil {
			return err
		}
		tx.UpdateUser(addr, func(u *domain.User) { u.TournamentsJoined++ })
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(domain.NewEvent(domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		Participant:      addr,
		ParticipantCount: len(t.Participants),
	}).ForTournament(t.ID))
	return t, nil
}

// StartTournament moves a PENDING tournament to ACTIVE. Only the creator may
// start it and at least two participants are needed.
func (s *TournamentService) StartTournament(ctx context.Context, id, caller string) (*domain.Tournament, error) {
	t, err := s.mutate(ctx, "StartTournament", id, func(t *domain.Tournament, _ *repository.Tx) error {
		return t.Start(caller)
	})
	if err != nil {
		return nil, err
	}

	s.emit(domain.NewEvent(domain.EventStarted, domain.StartedPayload{
		ParticipantCount: len(t.Participants),
	}).ForTournament(t.ID))
	return t, nil
}

// SubmitPrediction merges preds (market id → outcome) into addr's stored
// predictions.
func (s *TournamentService) SubmitPrediction(ctx context.Context, id, addr string, preds map[string]string) (*domain.Tournament, error) {
	ids := make([]string, 0, len(preds))
	for marketID := range preds {
		ids = append(ids, marketID)
	}

	t, err := s.mutate(ctx, "SubmitPrediction", id, func(t *domain.Tournament, _ *repository.Tx) error {
		return t.SubmitPredictions(addr, preds, s.marketRepo.GetMany(ctx, ids))
	})
	if err != nil {
		return nil, err
	}

	submitted := make(map[string]string, len(preds))
	for k, v := range preds {
		submitted[k] = v
	}
	s.emit(domain.NewEvent(domain.EventPredictionSubmitted, domain.PredictionSubmittedPayload{
		Participant: addr,
		Predictions: submitted,
	}).ForTournament(t.ID))
	return t, nil
}

// CompleteTournament scores every participant against the markets resolved
// so far, picks up to three winners and splits the prize pool.
func (s *TournamentService) CompleteTournament(ctx context.Context, id, caller string) (*domain.CompletionResult, error) {
	var result domain.CompletionResult
	t, err := s.mutate(ctx, "CompleteTournament", id, func(t *domain.Tournament, _ *repository.Tx) error {
		var err error
		result, err = t.Complete(caller, s.resolvedOutcomes(ctx, t), s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tournament completed", "tournament_id", t.ID, "winners", len(result.Winners))
	s.emit(domain.NewEvent(domain.EventCompleted, domain.CompletedPayload{Result: t.Result()}).
		ForTournament(t.ID))
	return &result, nil
}

// mutate loads the tournament under its lock, applies fn and commits the
// tournament together with whatever fn buffered on tx.
func (s *TournamentService) mutate(
	ctx context.Context,
	op, id string,
	fn func(t *domain.Tournament, tx *repository.Tx) error,
) (*domain.Tournament, error) {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tournament_service.%s: lock: %w", op, err)
	}
	defer release()

	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tournament_service.%s: %w", op, err)
	}

	tx := s.store.Begin(ctx)
	defer tx.Rollback()

	if err = fn(t, tx); err != nil {
		return nil, fmt.Errorf("tournament_service.%s: %w", op, err)
	}
	if err = s.tournamentRepo.Update(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("tournament_service.%s: update: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("tournament_service.%s: commit: %w", op, err)
	}
	return t, nil
}

// resolvedOutcomes maps each resolved tournament market to its winner.
func (s *TournamentService) resolvedOutcomes(ctx context.Context, t *domain.Tournament) map[string]string {
	markets := s.marketRepo.GetMany(ctx, t.MarketIDs)
	resolved := make(map[string]string, len(markets))
	for id, m := range markets {
		if m.IsResolved() && m.ResolvedOutcome != nil {
			resolved[id] = *m.ResolvedOutcome
		}
	}
	return resolved
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetTournament returns the tournament with id.
func (s *TournamentService) GetTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tournament_service.GetTournament: %w", err)
	}
	return t, nil
}

// ListTournaments returns tournaments newest first.
func (s *TournamentService) ListTournaments(ctx context.Context, f repository.TournamentFilter) ([]*domain.Tournament, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("tournament_service.ListTournaments: %w",
			domain.InvalidArgument("status", fmt.Sprintf("unknown status %q", f.Status)))
	}
	f.Limit = s.listLimit(f.Limit)
	return s.tournamentRepo.List(ctx, f), nil
}

// Leaderboard ranks participants. A completed tournament reports its final
// scores and prizes; otherwise scores are provisional, counted against the
// markets resolved so far, and prizes are zero.
func (s *TournamentService) Leaderboard(ctx context.Context, id string) ([]domain.Standing, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tournament_service.Leaderboard: %w", err)
	}
	if t.Status != domain.TournamentCompleted {
		resolved := s.resolvedOutcomes(ctx, t)
		for _, p := range t.Participants {
			t.ParticipantScores[p] = t.Score(p, resolved)
		}
	}
	return t.Ranking(), nil
}
