// Package memory is an in-process repository.Storage
//
// It keeps the locking contract of the postgres storage: *ForUpdate and LockUser take
// per-entity locks held until InTx returns, and writes made inside InTx become visible
// to others only on commit
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/repository"
)

var now = time.Now

type store struct {
	mu    sync.RWMutex
	data  *tables
	locks *keyedLocks
}

type txn struct {
	parent *txn // set for nested transaction (savepoint)
	writes *tables
	held   []string
	isHeld map[string]bool
}

func newTxn(parent *txn) *txn {
	return &txn{parent: parent, writes: newTables(), isHeld: make(map[string]bool)}
}

// holds reports whether the key is taken by the transaction or any of its parents
func (tx *txn) holds(key string) bool {
	for t := tx; t != nil; t = t.parent {
		if t.isHeld[key] {
			return true
		}
	}
	return false
}

// release hands writes and locks of finished nested transaction to its parent
func (tx *txn) release() {
	mergeAll(tx.parent.writes, tx.writes)
	for _, key := range tx.held {
		tx.parent.held = append(tx.parent.held, key)
		tx.parent.isHeld[key] = true
	}
}

type Storage struct {
	st *store
	tx *txn // nil outside of InTx
}

func NewStorage() *Storage {
	return &Storage{
		st: &store{data: newTables(), locks: newKeyedLocks()},
	}
}

func (s *Storage) Listing() repository.ListingRepo {
	return &ListingRepo{s: s}
}

func (s *Storage) Bid() repository.BidRepo {
	return &BidRepo{s: s}
}

func (s *Storage) Transaction() repository.TransactionRepo {
	return &TransactionRepo{s: s}
}

func (s *Storage) Withdrawal() repository.WithdrawalRepo {
	return &WithdrawalRepo{s: s}
}

func (s *Storage) Reward() repository.RewardRepo {
	return &RewardRepo{s: s}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Transient(err)
	}

	// Nested call works like a savepoint: its writes reach the outer transaction only
	// when fn succeeds, locks it took are released on failure
	if s.tx != nil {
		tx := newTxn(s.tx)
		if err := fn(&Storage{st: s.st, tx: tx}); err != nil {
			s.st.locks.unlockAll(tx.held)
			return err
		}
		tx.release()
		return nil
	}

	tx := newTxn(nil)
	defer func() {
		s.st.locks.unlockAll(tx.held)
	}()

	if err := fn(&Storage{st: s.st, tx: tx}); err != nil {
		return err
	}

	// Cancelled before commit: nothing is applied
	if err := ctx.Err(); err != nil {
		return apperrors.Transient(err)
	}

	s.st.commit(tx.writes)
	return nil
}

// lock takes the key for the rest of the transaction
// Outside of transaction a lock would be released right away, so it is skipped
func (s *Storage) lock(ctx context.Context, key string) error {
	if s.tx == nil || s.tx.holds(key) {
		return nil
	}
	if err := s.st.locks.lock(ctx, key); err != nil {
		return err
	}
	s.tx.held = append(s.tx.held, key)
	s.tx.isHeld[key] = true
	return nil
}

// read runs fn over data visible to the caller
func (s *Storage) read(fn func(v view)) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	fn(s.view())
}

// write runs fn that may modify data
// Inside transaction writes go to its overlay, otherwise they are applied at once
func (s *Storage) write(fn func(v view) error) error {
	if s.tx != nil {
		s.st.mu.RLock()
		defer s.st.mu.RUnlock()
		return fn(s.view())
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return fn(s.view())
}

func (s *Storage) view() view {
	v := view{base: s.st.data}
	for t := s.tx; t != nil; t = t.parent {
		v.layers = append([]*tables{t.writes}, v.layers...)
	}
	return v
}

func (st *store) commit(w *tables) {
	st.mu.Lock()
	defer st.mu.Unlock()

	merge(st.data.listings, w.listings)
	merge(st.data.bids, w.bids)
	merge(st.data.transactions, w.transactions)
	merge(st.data.withdrawals, w.withdrawals)

	// Rewards and points are unique the same way as in postgres: concurrent transactions
	// may both have enqueued the same fact, the first committed one wins
	base := view{base: st.data}
	for _, id := range w.rewards.order {
		e := w.rewards.rows[id]
		if _, known := st.data.rewards.rows[id]; !known {
			if _, dup := findReward(base, e); dup {
				continue
			}
		}
		st.data.rewards.put(id, e)
	}
	for _, id := range w.points.order {
		if _, applied := st.data.points.rows[id]; !applied {
			st.data.points.put(id, w.points.rows[id])
		}
	}
}
