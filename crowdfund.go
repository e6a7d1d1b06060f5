// Package crowdfund defines the interface of a crowdfunding ledger:
// campaigns, the contributions made to them, and the rules governing
// when raised funds may be released to a creator or returned to
// contributors.
//
// The core [Ledger] interface is required. [Snapshotter] is an
// optional capability discovered via Go type assertion.
package crowdfund

import (
	"context"

	"github.com/blockberries/crowdfund/types"
)

// Ledger is the operation surface every ledger implementation exposes.
//
// Implementations guarantee:
//  1. Every mutating call is atomic: it either applies completely or
//     leaves no trace, and returns a *Error describing why.
//  2. Concurrent calls are linearizable; in particular exactly one of
//     many concurrent FinalizeCampaign or Withdraw calls succeeds.
//  3. Time is taken from the request's Now field, never read internally.
//
// All methods MUST be safe for concurrent use.
type Ledger interface {
	// CreateCampaign opens a campaign ending DurationSeconds after Now.
	// The campaign counter advances only on success.
	CreateCampaign(ctx context.Context, req types.CreateCampaignRequest) (types.CreateCampaignResult, error)

	// Contribute adds Value to a campaign before its deadline and mints
	// the configured token reward to the contributor.
	Contribute(ctx context.Context, req types.ContributeRequest) (types.ContributeResult, error)

	// FinalizeCampaign decides, at or after the deadline, whether the
	// campaign met its goal. Effective exactly once; retries observe
	// AlreadyFinalized.
	FinalizeCampaign(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error)

	// Withdraw releases a successful campaign's raised amount to its
	// creator, at most once.
	Withdraw(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error)

	// Refund returns a contributor's cumulative contribution to a failed
	// campaign, at most once per contributor; retries observe
	// NothingToRefund.
	Refund(ctx context.Context, req types.RefundRequest) (types.RefundResult, error)

	// Faucet mints tokens unconditionally.
	Faucet(ctx context.Context, req types.FaucetRequest) (types.FaucetResult, error)

	// Transfer moves tokens between two identities.
	Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error)

	// Campaign returns the campaign with the given ID.
	Campaign(ctx context.Context, id types.CampaignID) (types.Campaign, error)

	// Campaigns returns up to limit campaigns in ID order, starting at
	// start (IDs below 1 are treated as 1).
	Campaigns(ctx context.Context, start types.CampaignID, limit uint32) ([]types.Campaign, error)

	// CampaignCount returns the highest assigned campaign ID.
	CampaignCount(ctx context.Context) (uint64, error)

	// ContributionOf returns who's cumulative contribution to a campaign.
	ContributionOf(ctx context.Context, id types.CampaignID, who types.Identity) (types.Amount, error)

	// BalanceOf returns who's token balance; 0 for unknown identities.
	BalanceOf(ctx context.Context, who types.Identity) (types.Amount, error)

	// Info summarizes the ledger.
	Info(ctx context.Context) (types.LedgerInfo, error)
}

// Snapshotter exports and restores the complete ledger state. A
// snapshot contains exactly the data-model fields, so replaying
// operations from a restored snapshot behaves as on the original.
type Snapshotter interface {
	// Snapshot returns a consistent copy of the current state.
	Snapshot(ctx context.Context) (types.Snapshot, error)

	// Restore validates a snapshot and replaces the current state with
	// it. On error the current state is untouched.
	Restore(ctx context.Context, snap types.Snapshot) error

	// ExportSnapshot exports the current state as a pull-based stream of
	// chunks. The channel is closed after the last chunk.
	ExportSnapshot(ctx context.Context, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error)

	// ImportSnapshot consumes a push-based stream of chunks, verifies
	// them against the descriptor and restores the result.
	ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error)
}

// Connection represents a transport-agnostic connection to a ledger.
// Both gRPC clients and in-process adapters implement this.
type Connection interface {
	Ledger

	// AsSnapshotter returns the Snapshotter interface if available,
	// or nil if the ledger does not support it.
	AsSnapshotter() Snapshotter

	// Close terminates the connection.
	Close() error
}
