package repository

import (
	"context"
	"sort"

	"github.com/evetabi/predictarena/internal/domain"
)

// UserRepository handles all store operations for Users. Users are created
// lazily; there is no explicit Create.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// GetOrCreate returns the user for address, creating it on first reference.
func (r *UserRepository) GetOrCreate(_ context.Context, address string) *domain.User {
	return r.store.GetOrCreateUser(address)
}

// GetByAddress fetches a user that has already been seen.
func (r *UserRepository) GetByAddress(_ context.Context, address string) (*domain.User, error) {
	u, ok := r.store.User(address)
	if !ok {
		return nil, domain.NotFound("user", address)
	}
	return u, nil
}

// Count returns the number of known users.
func (r *UserRepository) Count(_ context.Context) int {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.users)
}

// List returns users in first-seen order, paginated.
// Returns (users, totalCount).
func (r *UserRepository) List(_ context.Context, limit, offset int) ([]*domain.User, int) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	total := len(r.store.userOrder)
	if offset >= total {
		return []*domain.User{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*domain.User, 0, end-offset)
	for _, addr := range r.store.userOrder[offset:end] {
		out = append(out, r.store.users[addr].Clone())
	}
	return out, total
}

// Leaderboard ranks users by total volume, then by trade count, then by
// first-seen order.
func (r *UserRepository) Leaderboard(_ context.Context, limit int) []domain.LeaderboardEntry {
	r.store.mu.RLock()
	users := make([]*domain.User, 0, len(r.store.userOrder))
	for _, addr := range r.store.userOrder {
		users = append(users, r.store.users[addr].Clone())
	}
	r.store.mu.RUnlock()

	sort.SliceStable(users, func(i, j int) bool {
		if c := users[i].TotalVolume.Cmp(users[j].TotalVolume); c != 0 {
			return c > 0
		}
		return users[i].TotalTrades > users[j].TotalTrades
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}

	out := make([]domain.LeaderboardEntry, len(users))
	for i, u := range users {
		out[i] = domain.LeaderboardEntry{
			Rank:              i + 1,
			Address:           u.Address,
			Username:          u.Username,
			TotalTrades:       u.TotalTrades,
			TotalVolume:       u.TotalVolume,
			TournamentsJoined: u.TournamentsJoined,
			InsightsStaked:    u.InsightsStaked,
		}
	}
	return out
}
