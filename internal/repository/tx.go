package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/evetabi/predictarena/internal/domain"
)

// ErrTxDone is returned by Commit once a Tx has been committed or rolled back.
var ErrTxDone = errors.New("repository: transaction has already been committed or rolled back")

// Tx buffers writes against a Store. Nothing is visible to readers until
// Commit, which validates every buffered write first and then applies all of
// them under one write lock. A failed Commit leaves the store untouched.
//
//	tx := store.Begin(ctx)
//	defer tx.Rollback()
//	tx.InsertTrade(t)
//	tx.UpdateMarket(m)
//	if err := tx.Commit(); err != nil { ... }
type Tx struct {
	store *Store
	ctx   context.Context
	ops   []txOp
	done  bool
}

type txOp struct {
	// key identifies the record; inserts reserve it so a later update in the
	// same Tx finds it.
	key    string
	insert bool
	check  func(s *Store) error
	apply  func(s *Store)
}

// Begin starts a buffered transaction. ctx is checked at Commit.
func (s *Store) Begin(ctx context.Context) *Tx {
	return &Tx{store: s, ctx: ctx}
}

// Rollback discards buffered writes. Safe to call after Commit.
func (tx *Tx) Rollback() {
	tx.done = true
	tx.ops = nil
}

// Commit validates and applies every buffered write atomically.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	if err := tx.ctx.Err(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	reserved := make(map[string]bool)
	for _, op := range tx.ops {
		if op.insert {
			if reserved[op.key] {
				return fmt.Errorf("tx.Commit: %s: %w", op.key, domain.ErrDuplicateEntity)
			}
			if err := op.check(s); err != nil {
				return fmt.Errorf("tx.Commit: %w", err)
			}
			reserved[op.key] = true
			continue
		}
		if reserved[op.key] {
			continue
		}
		if err := op.check(s); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}
	}

	for _, op := range tx.ops {
		op.apply(s)
	}
	tx.ops = nil
	return nil
}

func (tx *Tx) push(op txOp) { tx.ops = append(tx.ops, op) }

// ──────────────────────────────────────────────────────────────────────────────
// Markets
// ──────────────────────────────────────────────────────────────────────────────

func (tx *Tx) InsertMarket(m *domain.Market) {
	c := m.Clone()
	tx.push(txOp{
		key:    "market:" + c.ID,
		insert: true,
		check: func(s *Store) error {
			if _, ok := s.markets[c.ID]; ok {
				return fmt.Errorf("market %s: %w", c.ID, domain.ErrDuplicateEntity)
			}
			return nil
		},
		apply: func(s *Store) { s.markets[c.ID] = c },
	})
}

func (tx *Tx) UpdateMarket(m *domain.Market) {
	c := m.Clone()
	tx.push(txOp{
		key: "market:" + c.ID,
		check: func(s *Store) error {
			if _, ok := s.markets[c.ID]; !ok {
				return domain.NotFound("market", c.ID)
			}
			return nil
		},
		apply: func(s *Store) { s.markets[c.ID] = c },
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Trades
// ──────────────────────────────────────────────────────────────────────────────

// InsertTrade stores t and appends it to the by-market and by-user indexes.
// The referenced market must exist.
func (tx *Tx) InsertTrade(t *domain.Trade) {
	c := *t
	tx.push(txOp{
		key:    "trade:" + c.ID,
		insert: true,
		check: func(s *Store) error {
			if _, ok := s.trades[c.ID]; ok {
				return fmt.Errorf("trade %s: %w", c.ID, domain.ErrDuplicateEntity)
			}
			if _, ok := s.markets[c.MarketID]; !ok {
				return domain.NotFound("market", c.MarketID)
			}
			return nil
		},
		apply: func(s *Store) {
			s.trades[c.ID] = &c
			s.tradesByMarket[c.MarketID] = append(s.tradesByMarket[c.MarketID], c.ID)
			s.tradesByUser[c.TraderAddress] = append(s.tradesByUser[c.TraderAddress], c.ID)
		},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Stakes
// ──────────────────────────────────────────────────────────────────────────────

// InsertStake stores st and appends it to the by-market and by-user indexes.
func (tx *Tx) InsertStake(st *domain.Stake) {
	c := st.Clone()
	tx.push(txOp{
		key:    "stake:" + c.ID,
		insert: true,
		check: func(s *Store) error {
			if _, ok := s.stakes[c.ID]; ok {
				return fmt.Errorf("stake %s: %w", c.ID, domain.ErrDuplicateEntity)
			}
			if _, ok := s.markets[c.MarketID]; !ok {
				return domain.NotFound("market", c.MarketID)
			}
			return nil
		},
		apply: func(s *Store) {
			s.stakes[c.ID] = c
			s.stakesByMarket[c.MarketID] = append(s.stakesByMarket[c.MarketID], c.ID)
			s.stakesByUser[c.StakerAddress] = append(s.stakesByUser[c.StakerAddress], c.ID)
		},
	})
}

func (tx *Tx) UpdateStake(st *domain.Stake) {
	c := st.Clone()
	tx.push(txOp{
		key: "stake:" + c.ID,
		check: func(s *Store) error {
			if _, ok := s.stakes[c.ID]; !ok {
				return domain.NotFound("stake", c.ID)
			}
			return nil
		},
		apply: func(s *Store) { s.stakes[c.ID] = c },
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Tournaments
// ──────────────────────────────────────────────────────────────────────────────

// InsertTournament stores t. Every referenced market must exist.
func (tx *Tx) InsertTournament(t *domain.Tournament) {
	c := t.Clone()
	tx.push(txOp{
		key:    "tournament:" + c.ID,
		insert: true,
		check: func(s *Store) error {
			if _, ok := s.tournaments[c.ID]; ok {
				return fmt.Errorf("tournament %s: %w", c.ID, domain.ErrDuplicateEntity)
			}
			for _, id := range c.MarketIDs {
				if _, ok := s.markets[id]; !ok {
					return domain.NotFound("market", id)
				}
			}
			return nil
		},
		apply: func(s *Store) { s.tournaments[c.ID] = c },
	})
}

func (tx *Tx) UpdateTournament(t *domain.Tournament) {
	c := t.Clone()
	tx.push(txOp{
		key: "tournament:" + c.ID,
		check: func(s *Store) error {
			if _, ok := s.tournaments[c.ID]; !ok {
				return domain.NotFound("tournament", c.ID)
			}
			return nil
		},
		apply: func(s *Store) { s.tournaments[c.ID] = c },
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────────────────────────────────

// UpdateUser applies fn to the user with address at commit time, creating
// the user first if the address has never been seen. fn runs under the
// store's write lock and must not call back into the store.
func (tx *Tx) UpdateUser(address string, fn func(u *domain.User)) {
	tx.push(txOp{
		key:   "user:" + address,
		check: func(*Store) error { return nil },
		apply: func(s *Store) { fn(s.userLocked(address)) },
	})
}
