// Package repository owns every entity instance of the platform. Store keeps
// them in memory behind a single RWMutex; writes go through a buffered Tx so
// a primary record and its secondary index entries land together or not at
// all. The per-entity repositories wrap Store with the query shapes the
// services need, and SnapshotWriter optionally archives the whole store to
// Postgres.
package repository

import (
	"sync"
	"time"

	"github.com/evetabi/predictarena/internal/domain"
)

// Store is the in-memory entity store. Construct one per process with
// NewStore and pass it to every repository; there is no package-level
// instance.
type Store struct {
	mu sync.RWMutex

	markets     map[string]*domain.Market
	trades      map[string]*domain.Trade
	stakes      map[string]*domain.Stake
	tournaments map[string]*domain.Tournament
	users       map[string]*domain.User

	// secondary indexes, ids in insertion order
	tradesByMarket map[string][]string
	tradesByUser   map[string][]string
	stakesByMarket map[string][]string
	stakesByUser   map[string][]string

	// userOrder keeps first-seen order for stable user listings.
	userOrder []string

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		markets:        make(map[string]*domain.Market),
		trades:         make(map[string]*domain.Trade),
		stakes:         make(map[string]*domain.Stake),
		tournaments:    make(map[string]*domain.Tournament),
		users:          make(map[string]*domain.User),
		tradesByMarket: make(map[string][]string),
		tradesByUser:   make(map[string][]string),
		stakesByMarket: make(map[string][]string),
		stakesByUser:   make(map[string][]string),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Point lookups: every getter returns a clone
// ──────────────────────────────────────────────────────────────────────────────

// Market returns a copy of the market with id, or false when absent.
func (s *Store) Market(id string) (*domain.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	return m.Clone(), ok
}

// Trade returns a copy of the trade with id, or false when absent.
func (s *Store) Trade(id string) (*domain.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, false
	}
	c := *t
	return &c, true
}

// Stake returns a copy of the stake with id, or false when absent.
func (s *Store) Stake(id string) (*domain.Stake, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stakes[id]
	return st.Clone(), ok
}

// Tournament returns a copy of the tournament with id, or false when absent.
func (s *Store) Tournament(id string) (*domain.Tournament, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	return t.Clone(), ok
}

// User returns a copy of the user with address, or false when never seen.
func (s *Store) User(address string) (*domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[address]
	return u.Clone(), ok
}

// GetOrCreateUser returns the user for address, creating a zeroed record the
// first time the address is referenced. Repeated calls return the same user.
func (s *Store) GetOrCreateUser(address string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(address).Clone()
}

// userLocked must be called with mu held for writing.
func (s *Store) userLocked(address string) *domain.User {
	u, ok := s.users[address]
	if !ok {
		u = domain.NewUser(address, s.now())
		s.users[address] = u
		s.userOrder = append(s.userOrder, address)
	}
	return u
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshot
// ──────────────────────────────────────────────────────────────────────────────

// Snapshot is a consistent deep copy of every entity in the store.
type Snapshot struct {
	TakenAt     time.Time
	Markets     []*domain.Market
	Trades      []*domain.Trade
	Stakes      []*domain.Stake
	Tournaments []*domain.Tournament
	Users       []*domain.User
}

// Snapshot copies the whole store under one read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TakenAt:     s.now(),
		Markets:     make([]*domain.Market, 0, len(s.markets)),
		Trades:      make([]*domain.Trade, 0, len(s.trades)),
		Stakes:      make([]*domain.Stake, 0, len(s.stakes)),
		Tournaments: make([]*domain.Tournament, 0, len(s.tournaments)),
		Users:       make([]*domain.User, 0, len(s.users)),
	}
	for _, m := range s.markets {
		snap.Markets = append(snap.Markets, m.Clone())
	}
	for _, t := range s.trades {
		c := *t
		snap.Trades = append(snap.Trades, &c)
	}
	for _, st := range s.stakes {
		snap.Stakes = append(snap.Stakes, st.Clone())
	}
	for _, t := range s.tournaments {
		snap.Tournaments = append(snap.Tournaments, t.Clone())
	}
	for _, addr := range s.userOrder {
		snap.Users = append(snap.Users, s.users[addr].Clone())
	}
	return snap
}

// Counts reports the number of stored entities per kind.
type Counts struct {
	Markets     int `json:"markets"`
	Trades      int `json:"trades"`
	Stakes      int `json:"stakes"`
	Tournaments int `json:"tournaments"`
	Users       int `json:"users"`
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Markets:     len(s.markets),
		Trades:      len(s.trades),
		Stakes:      len(s.stakes),
		Tournaments: len(s.tournaments),
		Users:       len(s.users),
	}
}

// newestFirst walks ids from the end and collects up to limit values;
// limit <= 0 means no limit.
func newestFirst[T any](ids []string, limit int, get func(string) (T, bool)) []T {
	n := len(ids)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(ids) - 1; i >= 0 && len(out) < n; i-- {
		if v, ok := get(ids[i]); ok {
			out = append(out, v)
		}
	}
	return out
}
