// Package types defines the core data types of the crowdfund ledger.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transport concerns
// (gRPC codec registration) are handled in the transport packages.
package types

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// StateHash is a deterministic fingerprint of the ledger state.
type StateHash [32]byte

// Amount is a non-negative integral token amount in the smallest unit.
type Amount uint64

// MaxAmount is the largest representable Amount.
const MaxAmount Amount = math.MaxUint64

// CampaignID identifies a campaign. IDs are dense and start at 1;
// zero never names a campaign.
type CampaignID uint64

// IdentityLength is the byte length of an Identity.
const IdentityLength = 20

// Identity is an opaque, comparable account handle. The zero value
// is the null sentinel.
type Identity [IdentityLength]byte

// NullIdentity is the unset identity.
var NullIdentity Identity

// IsNull reports whether id is the null sentinel.
func (id Identity) IsNull() bool { return id == NullIdentity }

// String returns the 0x-prefixed hex form.
func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Less orders identities bytewise. Used to keep snapshots deterministic.
func (id Identity) Less(other Identity) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}
	return false
}

// ParseIdentity parses the hex form produced by String. The 0x prefix
// is optional.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*IdentityLength {
		return id, fmt.Errorf("identity %q: want %d hex digits, got %d", s, 2*IdentityLength, len(raw))
	}
	if _, err := hex.Decode(id[:], []byte(raw)); err != nil {
		return id, fmt.Errorf("identity %q: %w", s, err)
	}
	return id, nil
}

// TestIdentity creates a deterministic identity from an index.
func TestIdentity(n byte) Identity {
	var id Identity
	id[0] = n
	id[IdentityLength-1] = n
	return id
}
