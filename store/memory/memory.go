// Package memory provides an in-process snapshot store, used when the
// daemon runs without durability and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store keeps the latest snapshot record in memory. Records are
// encoded on Save so later changes to the caller's snapshot cannot
// leak in.
type Store struct {
	mu     sync.RWMutex
	latest *store.Record
	saves  int
}

// New creates an empty memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) Save(ctx context.Context, snap types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := store.NewRecord(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &rec
	s.saves++
	return nil
}

func (s *Store) Load(ctx context.Context) (types.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return types.Snapshot{}, store.ErrNoSnapshot
	}
	return s.latest.Snapshot()
}

// Saves reports how many snapshots have been saved.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *Store) Close() error { return nil }
