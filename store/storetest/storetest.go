// Package storetest provides a conformance suite for snapshot stores.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/blockberries/crowdfund/snapshot"
	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/types"
)

// Sample returns a small, internally consistent snapshot whose
// sequence is seq.
func Sample(seq uint64) types.Snapshot {
	creator, alice := types.TestIdentity(1), types.TestIdentity(2)
	return types.Snapshot{
		Format:   snapshot.Format,
		Sequence: seq,
		Campaigns: []types.Campaign{{
			ID:       1,
			Creator:  creator,
			Title:    "sample",
			Goal:     100,
			Deadline: types.Timestamp{Seconds: 1_700_000_000},
			Raised:   40,
		}},
		Contributions: []types.ContributionRecord{{CampaignID: 1, Contributor: alice, Amount: 40}},
		Balances:      []types.BalanceRecord{{Owner: alice, Amount: 40}},
	}
}

// Equal reports whether two snapshots encode identically.
func Equal(t *testing.T, got, want types.Snapshot) {
	t.Helper()
	g, err := snapshot.StateHash(got)
	if err != nil {
		t.Fatalf("hash got: %v", err)
	}
	w, err := snapshot.StateHash(want)
	if err != nil {
		t.Fatalf("hash want: %v", err)
	}
	if g != w {
		t.Fatalf("snapshot mismatch: got %+v, want %+v", got, want)
	}
}

// Run exercises a store implementation. open must return an empty
// store; the suite closes it.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		if _, err := s.Load(ctx); !errors.Is(err, store.ErrNoSnapshot) {
			t.Fatalf("expected ErrNoSnapshot, got %v", err)
		}
	})

	t.Run("save_load", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		want := Sample(7)
		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		Equal(t, got, want)
	})

	t.Run("latest_wins", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		for seq := uint64(1); seq <= 3; seq++ {
			if err := s.Save(ctx, Sample(seq)); err != nil {
				t.Fatalf("Save(%d): %v", seq, err)
			}
		}
		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Sequence != 3 {
			t.Fatalf("expected sequence 3, got %d", got.Sequence)
		}
	})

	t.Run("saved_copy_is_isolated", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		snap := Sample(1)
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save: %v", err)
		}
		snap.Campaigns[0].Title = "mutated"
		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Campaigns[0].Title != "sample" {
			t.Fatalf("store observed caller mutation: %q", got.Campaigns[0].Title)
		}
	})
}
