// Package snapshot encodes ledger snapshots deterministically and
// moves them around as fixed-size chunks.
//
// The encoding is cramberry over types.Snapshot. Because the snapshot
// slices are kept sorted, equal states always produce equal bytes and
// therefore equal hashes.
package snapshot

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/crowdfund/types"
)

// Format is the only snapshot format this package produces.
const Format uint32 = 1

// ChunkSize is the maximum size of a snapshot chunk.
const ChunkSize = 64 * 1024 // 64 KiB per chunk

var (
	// ErrUnsupportedFormat is returned for snapshots of another format.
	ErrUnsupportedFormat = errors.New("snapshot: unsupported format")
	// ErrHashMismatch is returned when reassembled data does not match
	// the descriptor.
	ErrHashMismatch = errors.New("snapshot: hash mismatch")
)

// Encode serializes a snapshot.
func Encode(s types.Snapshot) ([]byte, error) {
	if s.Format == 0 {
		s.Format = Format
	}
	if s.Format != Format {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedFormat, s.Format)
	}
	data, err := cramberry.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (types.Snapshot, error) {
	var s types.Snapshot
	if err := cramberry.Unmarshal(data, &s); err != nil {
		return types.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Format != Format {
		return types.Snapshot{}, fmt.Errorf("%w %d", ErrUnsupportedFormat, s.Format)
	}
	return s, nil
}

// Hash returns the integrity hash of encoded snapshot data.
func Hash(data []byte) types.Hash {
	return types.Hash(sha256.Sum256(data))
}

// StateHash fingerprints a snapshot.
func StateHash(s types.Snapshot) (types.StateHash, error) {
	data, err := Encode(s)
	if err != nil {
		return types.StateHash{}, err
	}
	return types.StateHash(sha256.Sum256(data)), nil
}

// Describe builds the descriptor for encoded snapshot data.
func Describe(sequence uint64, data []byte) types.SnapshotDescriptor {
	return types.SnapshotDescriptor{
		Sequence: sequence,
		Format:   Format,
		Chunks:   chunkCount(len(data)),
		Hash:     Hash(data),
	}
}

func chunkCount(n int) uint32 {
	return uint32((n + ChunkSize - 1) / ChunkSize)
}

// Split cuts data into chunks of at most ChunkSize bytes.
func Split(data []byte) []types.SnapshotChunk {
	n := chunkCount(len(data))
	chunks := make([]types.SnapshotChunk, 0, n)
	for i := uint32(0); i < n; i++ {
		start := int(i) * ChunkSize
		end := start + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, types.SnapshotChunk{Index: i, Data: data[start:end]})
	}
	return chunks
}

// Stream returns a closed, fully buffered channel yielding chunks in
// order.
func Stream(chunks []types.SnapshotChunk) <-chan types.SnapshotChunk {
	ch := make(chan types.SnapshotChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

// Assemble drains chunks and reassembles the data described by desc.
// If chunks are missing it returns their indices and no data. Chunks
// with an index outside the descriptor are ignored; duplicates keep
// the last copy received.
func Assemble(desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (data []byte, missing []uint32, err error) {
	if desc.Format != Format {
		// Drain so the producer is never left blocked.
		for range chunks {
		}
		return nil, nil, fmt.Errorf("%w %d", ErrUnsupportedFormat, desc.Format)
	}

	received := make(map[uint32][]byte, desc.Chunks)
	for c := range chunks {
		if c.Index >= desc.Chunks {
			continue
		}
		received[c.Index] = c.Data
	}

	if uint32(len(received)) != desc.Chunks {
		for i := uint32(0); i < desc.Chunks; i++ {
			if _, ok := received[i]; !ok {
				missing = append(missing, i)
			}
		}
		return nil, missing, nil
	}

	for i := uint32(0); i < desc.Chunks; i++ {
		data = append(data, received[i]...)
	}
	if Hash(data) != desc.Hash {
		return nil, nil, ErrHashMismatch
	}
	return data, nil, nil
}
