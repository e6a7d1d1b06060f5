package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/balance"
	"github.com/blockberries/crowdfund/campaign"
	"github.com/blockberries/crowdfund/contribution"
	"github.com/blockberries/crowdfund/snapshot"
	"github.com/blockberries/crowdfund/types"
)

// ---------------------------------------------------------------------------
// Snapshotter
// ---------------------------------------------------------------------------

func (e *Engine) Snapshot(ctx context.Context) (types.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.Snapshot{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked(), nil
}

func (e *Engine) Restore(ctx context.Context, snap types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, err := restoreState(snap)
	if err != nil {
		e.logger.Warn("snapshot rejected", "sequence", snap.Sequence, "error", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.st = st

	e.logger.Info("snapshot restored",
		"sequence", st.sequence, "campaigns", st.campaigns.Count(), "supply", uint64(st.balances.TotalSupply()))
	e.notify(types.Event{
		Kind:       types.EventRestored,
		Attributes: []types.EventAttribute{attr("sequence", strconv.FormatUint(st.sequence, 10), false)},
		Sequence:   st.sequence,
	})
	return nil
}

func (e *Engine) ExportSnapshot(ctx context.Context, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if format != snapshot.Format {
		return nil, nil, crowdfund.NewError(types.CodeInvalidInput, "unsupported snapshot format %d", format)
	}

	e.mu.RLock()
	snap := e.snapshotLocked()
	e.mu.RUnlock()

	data, err := snapshot.Encode(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("export snapshot: %w", err)
	}
	desc := snapshot.Describe(snap.Sequence, data)
	return snapshot.Stream(snapshot.Split(data)), &desc, nil
}

func (e *Engine) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	data, missing, err := snapshot.Assemble(desc, chunks)
	switch {
	case errors.Is(err, snapshot.ErrUnsupportedFormat):
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: fmt.Sprintf("unsupported format %d", desc.Format),
		}, nil
	case errors.Is(err, snapshot.ErrHashMismatch):
		return types.ImportResult{Status: types.ImportReject, Reason: "snapshot hash mismatch"}, nil
	case err != nil:
		return types.ImportResult{}, err
	case len(missing) > 0:
		return types.ImportResult{Status: types.ImportRetryChunks, RetryIndices: missing}, nil
	}

	snap, err := snapshot.Decode(data)
	if err != nil {
		return types.ImportResult{Status: types.ImportReject, Reason: err.Error()}, nil
	}
	if snap.Sequence != desc.Sequence {
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: fmt.Sprintf("snapshot sequence %d does not match descriptor %d", snap.Sequence, desc.Sequence),
		}, nil
	}
	if err := e.Restore(ctx, snap); err != nil {
		if _, ok := crowdfund.AsError(err); ok {
			return types.ImportResult{Status: types.ImportReject, Reason: err.Error()}, nil
		}
		return types.ImportResult{}, err
	}

	e.mu.RLock()
	h, err := e.stateHashLocked()
	e.mu.RUnlock()
	if err != nil {
		return types.ImportResult{}, err
	}
	return types.ImportResult{Status: types.ImportOK, StateHash: &h}, nil
}

// ---------------------------------------------------------------------------
// State capture and validation
// ---------------------------------------------------------------------------

func (e *Engine) snapshotLocked() types.Snapshot {
	return types.Snapshot{
		Format:        snapshot.Format,
		Sequence:      e.st.sequence,
		Campaigns:     e.st.campaigns.Records(),
		Contributions: e.st.contributions.Records(),
		Balances:      e.st.balances.Records(),
	}
}

func (e *Engine) stateHashLocked() (types.StateHash, error) {
	return snapshot.StateHash(e.snapshotLocked())
}

// restoreState rebuilds and cross-checks the components captured by
// a snapshot. It touches no engine state.
func restoreState(snap types.Snapshot) (*state, error) {
	if snap.Format != snapshot.Format {
		return nil, crowdfund.NewError(types.CodeInvalidInput, "unsupported snapshot format %d", snap.Format)
	}
	campaigns, err := campaign.Restore(snap.Campaigns)
	if err != nil {
		return nil, err
	}
	contributions, err := contribution.Restore(snap.Contributions)
	if err != nil {
		return nil, err
	}
	balances, err := balance.Restore(snap.Balances)
	if err != nil {
		return nil, err
	}

	sums := make(map[types.CampaignID]types.Amount, len(snap.Campaigns))
	for _, r := range snap.Contributions {
		if uint64(r.CampaignID) > campaigns.Count() {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "contribution to unknown campaign %d", r.CampaignID)
		}
		if sums[r.CampaignID] > types.MaxAmount-r.Amount {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "campaign %d contributions overflow", r.CampaignID)
		}
		sums[r.CampaignID] += r.Amount
	}
	for _, c := range snap.Campaigns {
		sum := sums[c.ID]
		failed := c.Finalized && !c.Successful
		switch {
		case failed && sum > c.Raised:
			return nil, crowdfund.NewError(types.CodeInvalidInput,
				"campaign %d: contributions %d exceed raised %d", c.ID, sum, c.Raised)
		case !failed && sum != c.Raised:
			return nil, crowdfund.NewError(types.CodeInvalidInput,
				"campaign %d: contributions %d do not match raised %d", c.ID, sum, c.Raised)
		}
		if c.Finalized && c.Successful != (c.Raised >= c.Goal) {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "campaign %d: outcome does not match raised amount", c.ID)
		}
	}

	return &state{
		campaigns:     campaigns,
		contributions: contributions,
		balances:      balances,
		sequence:      snap.Sequence,
	}, nil
}
