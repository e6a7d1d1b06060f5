package local_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/engine"
	"github.com/blockberries/crowdfund/local"
	"github.com/blockberries/crowdfund/server"
	crowdfundtest "github.com/blockberries/crowdfund/testing"
	"github.com/blockberries/crowdfund/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.WithLogger(quiet))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestLocalCompliance(t *testing.T) {
	crowdfundtest.RunComplianceSuite(t, func(t *testing.T, clock server.Clock) crowdfund.Ledger {
		return local.NewConnection(newEngine(t), server.WithClock(clock), server.WithLogger(quiet))
	})
}

func TestLocalConnection_FailedCampaign(t *testing.T) {
	clock := server.NewManualClock(crowdfundtest.Epoch)
	conn := local.NewConnection(newEngine(t), server.WithClock(clock), server.WithLogger(quiet))
	defer conn.Close()
	h := crowdfundtest.NewHarness(t, conn, clock)

	id := h.Create(crowdfundtest.Creator, "bridge", 1000, 30*time.Minute)
	h.Contribute(id, crowdfundtest.Alice, 300)
	h.Contribute(id, crowdfundtest.Alice, 200)

	h.Advance(30 * time.Minute)
	_, err := h.TryContribute(id, crowdfundtest.Bob, 1)
	h.ExpectCode(err, types.CodeCampaignEnded)

	_, err = h.TryRefund(id, crowdfundtest.Alice)
	h.ExpectCode(err, types.CodeNotFinalized)

	if fin := h.Finalize(id); fin.Successful {
		t.Fatal("expected campaign to fail")
	}
	_, err = h.TryWithdraw(id, crowdfundtest.Creator)
	h.ExpectCode(err, types.CodeCampaignFailed)

	if r := h.Refund(id, crowdfundtest.Alice); r.Amount != 500 {
		t.Fatalf("expected refund 500, got %d", r.Amount)
	}
	_, err = h.TryRefund(id, crowdfundtest.Alice)
	h.ExpectCode(err, types.CodeNothingToRefund)

	// Refunds leave the raised total and minted rewards in place.
	c := h.Campaign(id)
	if c.Raised != 500 {
		t.Fatalf("expected raised to stay 500, got %d", c.Raised)
	}
	if got := h.Balance(crowdfundtest.Alice); got != 500 {
		t.Fatalf("expected alice to keep reward 500, got %d", got)
	}
}

func TestLocalConnection_Snapshotter(t *testing.T) {
	conn := local.NewConnection(newEngine(t), server.WithLogger(quiet))
	snaps := conn.AsSnapshotter()
	if snaps == nil {
		t.Fatal("expected snapshot support")
	}
	snap, err := snaps.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Format != 1 || len(snap.Campaigns) != 0 {
		t.Fatalf("unexpected empty snapshot %+v", snap)
	}

	type ledgerOnly struct{ crowdfund.Ledger }
	plain := local.NewConnection(ledgerOnly{newEngine(t)}, server.WithLogger(quiet))
	if plain.AsSnapshotter() != nil {
		t.Fatal("expected no snapshot support")
	}
}

func TestLocalConnection_Delegates(t *testing.T) {
	mock := &crowdfundtest.MockLedger{
		TransferFn: func(_ context.Context, req types.TransferRequest) (types.TransferResult, error) {
			if req.Amount > 10 {
				return types.TransferResult{}, crowdfund.NewError(types.CodeInsufficientBalance, "have 10")
			}
			return types.TransferResult{FromBalance: 10 - req.Amount, ToBalance: req.Amount}, nil
		},
	}
	conn := local.NewConnection(mock, server.WithLogger(quiet))
	ctx := context.Background()

	res, err := conn.Transfer(ctx, types.TransferRequest{From: crowdfundtest.Alice, To: crowdfundtest.Bob, Amount: 4})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.FromBalance != 6 || res.ToBalance != 4 {
		t.Fatalf("unexpected transfer result %+v", res)
	}
	_, err = conn.Transfer(ctx, types.TransferRequest{From: crowdfundtest.Alice, To: crowdfundtest.Bob, Amount: 11})
	if !errors.Is(err, crowdfund.ErrInsufficientBalance) {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
	if _, err := conn.Info(ctx); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if got := mock.MutationCalls.Load(); got != 2 {
		t.Fatalf("expected 2 mutation calls, got %d", got)
	}
	if got := mock.QueryCalls.Load(); got != 1 {
		t.Fatalf("expected 1 query call, got %d", got)
	}
	if conn.Server() == nil {
		t.Fatal("expected underlying server")
	}
}
