// Package redis stores the latest ledger snapshot under a single Redis
// key.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/types"

	goredis "github.com/go-redis/redis/v8"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// DefaultKey is the key used when Options.Key is empty.
const DefaultKey = "crowdfund:snapshot"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Store is a Redis-backed snapshot store.
type Store struct {
	rdb *goredis.Client
	key string
}

// Open connects to Redis and verifies the connection with a PING.
func Open(ctx context.Context, o Options) (*Store, error) {
	if o.Addr == "" {
		return nil, errors.New("redis store: address is required")
	}
	if o.Key == "" {
		o.Key = DefaultKey
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", o.Addr, err)
	}
	return &Store{rdb: rdb, key: o.Key}, nil
}

func (s *Store) Save(ctx context.Context, snap types.Snapshot) error {
	rec, err := store.NewRecord(snap)
	if err != nil {
		return err
	}
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (types.Snapshot, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == goredis.Nil {
		return types.Snapshot{}, store.ErrNoSnapshot
	}
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	rec, err := store.UnmarshalRecord(data)
	if err != nil {
		return types.Snapshot{}, err
	}
	return rec.Snapshot()
}

// Clear removes the stored snapshot.
func (s *Store) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
