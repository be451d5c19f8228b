package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/evetabi/predictarena/internal/domain"
)

// TournamentRepository handles all store operations for Tournaments.
type TournamentRepository struct {
	store *Store
}

// NewTournamentRepository creates a new TournamentRepository.
func NewTournamentRepository(store *Store) *TournamentRepository {
	return &TournamentRepository{store: store}
}

// Create inserts a new tournament inside tx. Commit fails with NotFound if
// any referenced market is missing.
func (r *TournamentRepository) Create(_ context.Context, tx *Tx, t *domain.Tournament) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("tournament_repo.Create: %w", domain.InvalidArgument("id", "must not be empty"))
	}
	tx.InsertTournament(t)
	return nil
}

// Update replaces the stored tournament inside tx.
func (r *TournamentRepository) Update(_ context.Context, tx *Tx, t *domain.Tournament) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("tournament_repo.Update: %w", domain.InvalidArgument("id", "must not be empty"))
	}
	tx.UpdateTournament(t)
	return nil
}

// GetByID fetches a tournament by id.
func (r *TournamentRepository) GetByID(_ context.Context, id string) (*domain.Tournament, error) {
	t, ok := r.store.Tournament(id)
	if !ok {
		return nil, domain.NotFound("tournament", id)
	}
	return t, nil
}

// TournamentFilter narrows List.
type TournamentFilter struct {
	Status domain.TournamentStatus
	Limit  int
}

// List returns tournaments matching f, newest first.
func (r *TournamentRepository) List(_ context.Context, f TournamentFilter) []*domain.Tournament {
	r.store.mu.RLock()
	out := make([]*domain.Tournament, 0, len(r.store.tournaments))
	for _, t := range r.store.tournaments {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
