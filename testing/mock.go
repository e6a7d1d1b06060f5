// Package crowdfundtest provides test utilities for ledger
// implementations and their clients, including a configurable mock,
// a test harness, and a lifecycle compliance test suite.
package crowdfundtest

import (
	"context"
	"sync/atomic"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"
)

// Compile-time check that MockLedger satisfies all interfaces.
var (
	_ crowdfund.Ledger      = (*MockLedger)(nil)
	_ crowdfund.Snapshotter = (*MockLedger)(nil)
)

// MockLedger is a configurable mock ledger for transport testing.
// All methods are configurable via function fields. Unconfigured
// methods return sensible zero-value defaults.
type MockLedger struct {
	// Configurable handlers. If nil, defaults are used.
	CreateCampaignFn   func(context.Context, types.CreateCampaignRequest) (types.CreateCampaignResult, error)
	ContributeFn       func(context.Context, types.ContributeRequest) (types.ContributeResult, error)
	FinalizeCampaignFn func(context.Context, types.FinalizeRequest) (types.FinalizeResult, error)
	WithdrawFn         func(context.Context, types.WithdrawRequest) (types.WithdrawResult, error)
	RefundFn           func(context.Context, types.RefundRequest) (types.RefundResult, error)
	FaucetFn           func(context.Context, types.FaucetRequest) (types.FaucetResult, error)
	TransferFn         func(context.Context, types.TransferRequest) (types.TransferResult, error)
	CampaignFn         func(context.Context, types.CampaignID) (types.Campaign, error)
	CampaignsFn        func(context.Context, types.CampaignID, uint32) ([]types.Campaign, error)
	CampaignCountFn    func(context.Context) (uint64, error)
	ContributionOfFn   func(context.Context, types.CampaignID, types.Identity) (types.Amount, error)
	BalanceOfFn        func(context.Context, types.Identity) (types.Amount, error)
	InfoFn             func(context.Context) (types.LedgerInfo, error)
	SnapshotFn         func(context.Context) (types.Snapshot, error)
	RestoreFn          func(context.Context, types.Snapshot) error
	ExportSnapshotFn   func(context.Context, uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error)
	ImportSnapshotFn   func(context.Context, types.SnapshotDescriptor, <-chan types.SnapshotChunk) (types.ImportResult, error)

	// Call counters (atomic for concurrent access).
	MutationCalls atomic.Int64
	QueryCalls    atomic.Int64
}

func (m *MockLedger) CreateCampaign(ctx context.Context, req types.CreateCampaignRequest) (types.CreateCampaignResult, error) {
	m.MutationCalls.Add(1)
	if m.CreateCampaignFn != nil {
		return m.CreateCampaignFn(ctx, req)
	}
	return types.CreateCampaignResult{ID: 1}, nil
}

func (m *MockLedger) Contribute(ctx context.Context, req types.ContributeRequest) (types.ContributeResult, error) {
	m.MutationCalls.Add(1)
	if m.ContributeFn != nil {
		return m.ContributeFn(ctx, req)
	}
	return types.ContributeResult{Total: req.Value, Raised: req.Value}, nil
}

func (m *MockLedger) FinalizeCampaign(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error) {
	m.MutationCalls.Add(1)
	if m.FinalizeCampaignFn != nil {
		return m.FinalizeCampaignFn(ctx, req)
	}
	return types.FinalizeResult{}, nil
}

func (m *MockLedger) Withdraw(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error) {
	m.MutationCalls.Add(1)
	if m.WithdrawFn != nil {
		return m.WithdrawFn(ctx, req)
	}
	return types.WithdrawResult{}, nil
}

func (m *MockLedger) Refund(ctx context.Context, req types.RefundRequest) (types.RefundResult, error) {
	m.MutationCalls.Add(1)
	if m.RefundFn != nil {
		return m.RefundFn(ctx, req)
	}
	return types.RefundResult{}, nil
}

func (m *MockLedger) Faucet(ctx context.Context, req types.FaucetRequest) (types.FaucetResult, error) {
	m.MutationCalls.Add(1)
	if m.FaucetFn != nil {
		return m.FaucetFn(ctx, req)
	}
	return types.FaucetResult{Balance: req.Amount}, nil
}

func (m *MockLedger) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	m.MutationCalls.Add(1)
	if m.TransferFn != nil {
		return m.TransferFn(ctx, req)
	}
	return types.TransferResult{ToBalance: req.Amount}, nil
}

func (m *MockLedger) Campaign(ctx context.Context, id types.CampaignID) (types.Campaign, error) {
	m.QueryCalls.Add(1)
	if m.CampaignFn != nil {
		return m.CampaignFn(ctx, id)
	}
	return types.Campaign{}, crowdfund.NewError(types.CodeNotFound, "campaign %d", id)
}

func (m *MockLedger) Campaigns(ctx context.Context, start types.CampaignID, limit uint32) ([]types.Campaign, error) {
	m.QueryCalls.Add(1)
	if m.CampaignsFn != nil {
		return m.CampaignsFn(ctx, start, limit)
	}
	return nil, nil
}

func (m *MockLedger) CampaignCount(ctx context.Context) (uint64, error) {
	m.QueryCalls.Add(1)
	if m.CampaignCountFn != nil {
		return m.CampaignCountFn(ctx)
	}
	return 0, nil
}

func (m *MockLedger) ContributionOf(ctx context.Context, id types.CampaignID, who types.Identity) (types.Amount, error) {
	m.QueryCalls.Add(1)
	if m.ContributionOfFn != nil {
		return m.ContributionOfFn(ctx, id, who)
	}
	return 0, nil
}

func (m *MockLedger) BalanceOf(ctx context.Context, who types.Identity) (types.Amount, error) {
	m.QueryCalls.Add(1)
	if m.BalanceOfFn != nil {
		return m.BalanceOfFn(ctx, who)
	}
	return 0, nil
}

func (m *MockLedger) Info(ctx context.Context) (types.LedgerInfo, error) {
	m.QueryCalls.Add(1)
	if m.InfoFn != nil {
		return m.InfoFn(ctx)
	}
	return types.LedgerInfo{RewardRate: types.OneToOne}, nil
}

func (m *MockLedger) Snapshot(ctx context.Context) (types.Snapshot, error) {
	if m.SnapshotFn != nil {
		return m.SnapshotFn(ctx)
	}
	return types.Snapshot{Format: 1}, nil
}

func (m *MockLedger) Restore(ctx context.Context, snap types.Snapshot) error {
	if m.RestoreFn != nil {
		return m.RestoreFn(ctx, snap)
	}
	return nil
}

func (m *MockLedger) ExportSnapshot(ctx context.Context, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	if m.ExportSnapshotFn != nil {
		return m.ExportSnapshotFn(ctx, format)
	}
	ch := make(chan types.SnapshotChunk)
	close(ch)
	return ch, &types.SnapshotDescriptor{Format: format}, nil
}

func (m *MockLedger) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	if m.ImportSnapshotFn != nil {
		return m.ImportSnapshotFn(ctx, desc, chunks)
	}
	// Drain the channel.
	for range chunks {
	}
	h := types.StateHash{0x01}
	return types.ImportResult{Status: types.ImportOK, StateHash: &h}, nil
}
