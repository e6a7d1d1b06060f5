package store_test

import (
	"errors"
	"testing"

	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/store/storetest"
)

func TestRecordRoundTrip(t *testing.T) {
	want := storetest.Sample(5)
	rec, err := store.NewRecord(want)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if rec.Sequence != 5 {
		t.Fatalf("expected sequence 5, got %d", rec.Sequence)
	}
	data, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := store.UnmarshalRecord(data)
	if err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	got, err := back.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	storetest.Equal(t, got, want)
}

func TestRecordCorrupt(t *testing.T) {
	rec, err := store.NewRecord(storetest.Sample(1))
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	rec.Data[len(rec.Data)-1] ^= 0xff
	if _, err := rec.Snapshot(); !errors.Is(err, store.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
