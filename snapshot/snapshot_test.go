package snapshot

import (
	"bytes"
	"errors"
	"testing"

	"github.com/blockberries/crowdfund/types"
)

func sampleSnapshot() types.Snapshot {
	return types.Snapshot{
		Sequence: 7,
		Campaigns: []types.Campaign{{
			ID:       1,
			Creator:  types.TestIdentity(1),
			Title:    "well",
			Goal:     100,
			Deadline: types.Timestamp{Seconds: 1_700_000_000},
			Raised:   40,
		}},
		Contributions: []types.ContributionRecord{
			{CampaignID: 1, Contributor: types.TestIdentity(2), Amount: 40},
		},
		Balances: []types.BalanceRecord{
			{Owner: types.TestIdentity(2), Amount: 40},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	snap := sampleSnapshot()
	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Format != Format {
		t.Errorf("expected format %d, got %d", Format, got.Format)
	}
	if got.Sequence != 7 || len(got.Campaigns) != 1 || got.Campaigns[0].Title != "well" {
		t.Errorf("unexpected snapshot: %+v", got)
	}
	if got.Contributions[0].Contributor != types.TestIdentity(2) {
		t.Errorf("contributor mismatch: %+v", got.Contributions[0])
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("equal snapshots encoded differently")
	}

	h1, _ := StateHash(sampleSnapshot())
	changed := sampleSnapshot()
	changed.Campaigns[0].Raised++
	h2, _ := StateHash(changed)
	if h1 == h2 {
		t.Fatal("expected different state hashes for different states")
	}
}

func TestEncodeRejectsFormat(t *testing.T) {
	snap := sampleSnapshot()
	snap.Format = 99
	if _, err := Encode(snap); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSplitAssemble(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 2*ChunkSize+10)
	desc := Describe(3, data)
	if desc.Chunks != 3 {
		t.Fatalf("expected 3 chunks, got %d", desc.Chunks)
	}

	chunks := Split(data)
	if len(chunks) != 3 || len(chunks[2].Data) != 10 {
		t.Fatalf("unexpected split: %d chunks", len(chunks))
	}

	got, missing, err := Assemble(desc, Stream(chunks))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("unexpected missing chunks %v", missing)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("reassembled data differs")
	}
}

func TestAssembleMissing(t *testing.T) {
	data := bytes.Repeat([]byte{1}, 3*ChunkSize)
	desc := Describe(1, data)
	chunks := Split(data)

	_, missing, err := Assemble(desc, Stream([]types.SnapshotChunk{chunks[0], chunks[2]}))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(missing) != 1 || missing[0] != 1 {
		t.Fatalf("expected missing [1], got %v", missing)
	}
}

func TestAssembleHashMismatch(t *testing.T) {
	data := []byte("snapshot bytes")
	desc := Describe(1, data)
	chunks := Split([]byte("tampered bytes"))

	if _, _, err := Assemble(desc, Stream(chunks)); !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
}

func TestAssembleWrongFormat(t *testing.T) {
	desc := Describe(1, []byte("x"))
	desc.Format = 2
	if _, _, err := Assemble(desc, Stream(Split([]byte("x")))); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
