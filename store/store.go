// Package store defines durable homes for ledger snapshots. A store
// keeps the most recent snapshot saved to it; backends live in the
// memory, leveldb, sqlite and redis subpackages.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/blockberries/crowdfund/snapshot"
	"github.com/blockberries/crowdfund/types"
)

var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("store: no snapshot")

	// ErrCorrupt is returned by Load when the stored bytes do not match
	// their recorded hash.
	ErrCorrupt = errors.New("store: snapshot corrupt")
)

// Store persists ledger snapshots. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save replaces the latest snapshot.
	Save(ctx context.Context, snap types.Snapshot) error

	// Load returns the latest snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (types.Snapshot, error)

	// Close releases the backend.
	Close() error
}

// Record is the stored form of a snapshot: its encoding plus the
// metadata needed to verify it without decoding.
type Record struct {
	Sequence uint64     `cramberry:"1"`
	Hash     types.Hash `cramberry:"2"`
	Data     []byte     `cramberry:"3"`
}

// NewRecord encodes snap for storage.
func NewRecord(snap types.Snapshot) (Record, error) {
	data, err := snapshot.Encode(snap)
	if err != nil {
		return Record{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return Record{Sequence: snap.Sequence, Hash: snapshot.Hash(data), Data: data}, nil
}

// Snapshot verifies and decodes the record.
func (r Record) Snapshot() (types.Snapshot, error) {
	if snapshot.Hash(r.Data) != r.Hash {
		return types.Snapshot{}, fmt.Errorf("%w: sequence %d", ErrCorrupt, r.Sequence)
	}
	snap, err := snapshot.Decode(r.Data)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return snap, nil
}

// Marshal encodes the record for key-value backends.
func (r Record) Marshal() ([]byte, error) {
	return cramberry.Marshal(r)
}

// UnmarshalRecord decodes a record written by Marshal.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := cramberry.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return r, nil
}
