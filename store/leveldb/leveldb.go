// Package leveldb stores ledger snapshots in a LevelDB database.
package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/types"

	goleveldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

var latestKey = []byte("snapshot/latest")

// Store is a LevelDB-backed snapshot store.
type Store struct {
	db *goleveldb.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("leveldb store: path is required")
	}
	db, err := goleveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, snap types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := store.NewRecord(snap)
	if err != nil {
		return err
	}
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.db.Put(latestKey, data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (types.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.Snapshot{}, err
	}
	data, err := s.db.Get(latestKey, nil)
	if errors.Is(err, goleveldb.ErrNotFound) {
		return types.Snapshot{}, store.ErrNoSnapshot
	}
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("leveldb get: %w", err)
	}
	rec, err := store.UnmarshalRecord(data)
	if err != nil {
		return types.Snapshot{}, err
	}
	return rec.Snapshot()
}

func (s *Store) Close() error {
	return s.db.Close()
}
