package leveldb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/store/leveldb"
	"github.com/blockberries/crowdfund/store/storetest"
)

func open(t *testing.T, path string) *leveldb.Store {
	t.Helper()
	s, err := leveldb.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestLevelDBStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return open(t, filepath.Join(t.TempDir(), "db"))
	})
}

func TestLevelDBStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()

	s := open(t, path)
	want := storetest.Sample(9)
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = open(t, path)
	defer s.Close()
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	storetest.Equal(t, got, want)
}

func TestLevelDBStore_RequiresPath(t *testing.T) {
	if _, err := leveldb.Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
