package crowdfundgrpc_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/engine"
	crowdfundgrpc "github.com/blockberries/crowdfund/grpc"
	"github.com/blockberries/crowdfund/server"
	crowdfundtest "github.com/blockberries/crowdfund/testing"
	"github.com/blockberries/crowdfund/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// startServer starts a gRPC server on a random port and returns
// the listener address and a cleanup function.
func startServer(t *testing.T, gs *crowdfundgrpc.GRPCServer) (string, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := grpc.NewServer()
	gs.Register(s)

	go func() {
		// Serve returns after GracefulStop.
		_ = s.Serve(lis)
	}()

	return lis.Addr().String(), func() {
		s.GracefulStop()
	}
}

func dial(t *testing.T, addr string) *crowdfundgrpc.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := crowdfundgrpc.Dial(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return client
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.WithLogger(quiet))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

// connect serves ledger over loopback and returns a dialed client,
// torn down when the test ends.
func connect(t *testing.T, ledger crowdfund.Ledger, opts ...server.Option) *crowdfundgrpc.Client {
	t.Helper()
	opts = append([]server.Option{server.WithLogger(quiet)}, opts...)
	addr, cleanup := startServer(t, crowdfundgrpc.NewGRPCServer(ledger, opts...))
	client := dial(t, addr)
	t.Cleanup(func() {
		client.Close()
		cleanup()
	})
	return client
}

func TestGRPCCompliance(t *testing.T) {
	crowdfundtest.RunComplianceSuite(t, func(t *testing.T, clock server.Clock) crowdfund.Ledger {
		return connect(t, newEngine(t), server.WithClock(clock))
	})
}

func TestGRPC_FullCycle(t *testing.T) {
	clock := server.NewManualClock(crowdfundtest.Epoch)
	client := connect(t, newEngine(t), server.WithClock(clock))
	h := crowdfundtest.NewHarness(t, client, clock)

	id := h.Create(crowdfundtest.Creator, "telescope", 100, time.Hour)
	res := h.Contribute(id, crowdfundtest.Alice, 60)
	if res.Reward != 60 {
		t.Fatalf("expected reward 60, got %d", res.Reward)
	}
	h.Contribute(id, crowdfundtest.Bob, 40)

	_, err := h.TryFinalize(id)
	h.ExpectCode(err, types.CodeNotYetEnded)

	h.Advance(time.Hour)
	fin := h.Finalize(id)
	if !fin.Successful || fin.Raised != 100 {
		t.Fatalf("unexpected finalize result %+v", fin)
	}

	_, err = h.TryWithdraw(id, crowdfundtest.Alice)
	h.ExpectCode(err, types.CodeUnauthorized)
	if w := h.Withdraw(id, crowdfundtest.Creator); w.Amount != 100 {
		t.Fatalf("expected withdraw 100, got %d", w.Amount)
	}
	_, err = h.TryWithdraw(id, crowdfundtest.Creator)
	h.ExpectCode(err, types.CodeAlreadyWithdrawn)

	c := h.Campaign(id)
	if c.Title != "telescope" || !c.Withdrawn || c.Creator != crowdfundtest.Creator {
		t.Fatalf("unexpected campaign %+v", c)
	}
	if got := h.Balance(crowdfundtest.Alice); got != 60 {
		t.Fatalf("expected alice balance 60, got %d", got)
	}
}

func TestGRPC_ServerStampsTime(t *testing.T) {
	clock := server.NewManualClock(crowdfundtest.Epoch)
	client := connect(t, newEngine(t), server.WithClock(clock))

	// A client-chosen time far in the future must not let a caller
	// finalize early.
	ctx := context.Background()
	res, err := client.CreateCampaign(ctx, types.CreateCampaignRequest{
		Creator:         crowdfundtest.Creator,
		Title:           "clock",
		Goal:            10,
		DurationSeconds: 60,
		Now:             types.TimeToTimestamp(crowdfundtest.Epoch.Add(24 * time.Hour)),
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if want := crowdfundtest.Epoch.Add(time.Minute).Unix(); res.Deadline.Seconds != want {
		t.Fatalf("expected deadline %d, got %d", want, res.Deadline.Seconds)
	}
	_, err = client.FinalizeCampaign(ctx, types.FinalizeRequest{
		CampaignID: res.ID,
		Now:        types.TimeToTimestamp(crowdfundtest.Epoch.Add(24 * time.Hour)),
	})
	if !errors.Is(err, crowdfund.ErrNotYetEnded) {
		t.Fatalf("expected NotYetEnded, got %v", err)
	}
}

func TestGRPC_ErrorMapping(t *testing.T) {
	mock := &crowdfundtest.MockLedger{
		ContributeFn: func(context.Context, types.ContributeRequest) (types.ContributeResult, error) {
			return types.ContributeResult{}, crowdfund.NewError(types.CodeOverflow, "raised would exceed max")
		},
		BalanceOfFn: func(context.Context, types.Identity) (types.Amount, error) {
			return 0, errors.New("disk on fire")
		},
	}
	client := connect(t, mock)
	ctx := context.Background()

	_, err := client.Contribute(ctx, types.ContributeRequest{CampaignID: 1, Value: 1})
	e, ok := crowdfund.AsError(err)
	if !ok {
		t.Fatalf("expected *crowdfund.Error, got %T (%v)", err, err)
	}
	if e.Code != types.CodeOverflow || e.Reason != "raised would exceed max" {
		t.Fatalf("unexpected error %+v", e)
	}

	_, err = client.Campaign(ctx, 7)
	if !errors.Is(err, crowdfund.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_, err = client.BalanceOf(ctx, crowdfundtest.Alice)
	if _, ok := crowdfund.AsError(err); ok {
		t.Fatalf("non-ledger failure came back as a ledger error: %v", err)
	}
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected codes.Internal, got %v", status.Code(err))
	}
}

func TestGRPC_SnapshotCapability(t *testing.T) {
	withSnapshots := connect(t, newEngine(t))
	if withSnapshots.AsSnapshotter() == nil {
		t.Fatal("expected snapshot support from engine")
	}

	type ledgerOnly struct{ crowdfund.Ledger }
	without := connect(t, ledgerOnly{newEngine(t)})
	if without.AsSnapshotter() != nil {
		t.Fatal("expected no snapshot support")
	}
	info, err := without.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Snapshots {
		t.Fatal("Info reported snapshots for a plain ledger")
	}
}

func TestGRPC_SnapshotRoundTrip(t *testing.T) {
	clock := server.NewManualClock(crowdfundtest.Epoch)
	src := newEngine(t)
	client := connect(t, src, server.WithClock(clock))
	h := crowdfundtest.NewHarness(t, client, clock)

	won := h.Create(crowdfundtest.Creator, "won", 50, time.Hour)
	lost := h.Create(crowdfundtest.Creator, "lost", 500, time.Hour)
	h.Contribute(won, crowdfundtest.Alice, 50)
	h.Contribute(lost, crowdfundtest.Bob, 20)
	h.Faucet(crowdfundtest.Bob, 5)
	h.Advance(time.Hour)
	h.Finalize(won)
	h.Finalize(lost)

	ctx := context.Background()
	snaps := client.AsSnapshotter()
	snap, err := snaps.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	dst := connect(t, newEngine(t), server.WithClock(clock))
	if err := dst.AsSnapshotter().Restore(ctx, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	srcInfo := h.Info()
	dstInfo, err := dst.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if srcInfo.StateHash != dstInfo.StateHash {
		t.Fatal("state hash differs after restore")
	}

	// Replaying on the restored copy behaves as on the original.
	d := crowdfundtest.NewHarness(t, dst, clock)
	if r := d.Refund(lost, crowdfundtest.Bob); r.Amount != 20 {
		t.Fatalf("expected refund 20, got %d", r.Amount)
	}
	if w := d.Withdraw(won, crowdfundtest.Creator); w.Amount != 50 {
		t.Fatalf("expected withdraw 50, got %d", w.Amount)
	}

	// Corrupt snapshots are rejected with the current state untouched.
	bad := snap
	bad.Campaigns = append([]types.Campaign(nil), snap.Campaigns...)
	bad.Campaigns[0].Raised++
	err = dst.AsSnapshotter().Restore(ctx, bad)
	if !errors.Is(err, crowdfund.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestGRPC_ExportImport(t *testing.T) {
	clock := server.NewManualClock(crowdfundtest.Epoch)
	client := connect(t, newEngine(t), server.WithClock(clock))
	h := crowdfundtest.NewHarness(t, client, clock)
	for i := 0; i < 5; i++ {
		id := h.Create(crowdfundtest.Creator, "batch", 10, time.Hour)
		h.Contribute(id, crowdfundtest.Alice, types.Amount(i+1))
	}

	ctx := context.Background()
	chunks, desc, err := client.AsSnapshotter().ExportSnapshot(ctx, 1)
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	if desc == nil || desc.Chunks == 0 {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
	var collected []types.SnapshotChunk
	for c := range chunks {
		collected = append(collected, c)
	}
	if uint32(len(collected)) != desc.Chunks {
		t.Fatalf("expected %d chunks, got %d", desc.Chunks, len(collected))
	}

	dst := connect(t, newEngine(t), server.WithClock(clock))
	feed := make(chan types.SnapshotChunk, len(collected))
	for _, c := range collected {
		feed <- c
	}
	close(feed)
	res, err := dst.AsSnapshotter().ImportSnapshot(ctx, *desc, feed)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if res.Status != types.ImportOK || res.StateHash == nil {
		t.Fatalf("unexpected import result %+v", res)
	}
	if info := h.Info(); *res.StateHash != info.StateHash {
		t.Fatal("imported state hash differs from source")
	}
	if n, err := dst.CampaignCount(ctx); err != nil || n != 5 {
		t.Fatalf("expected 5 campaigns, got %d (%v)", n, err)
	}

	// Missing chunks are reported for retry.
	empty := make(chan types.SnapshotChunk)
	close(empty)
	res, err = dst.AsSnapshotter().ImportSnapshot(ctx, *desc, empty)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if res.Status != types.ImportRetryChunks || len(res.RetryIndices) != int(desc.Chunks) {
		t.Fatalf("expected retry of all chunks, got %+v", res)
	}
}

func TestGRPC_ExportUnsupportedFormat(t *testing.T) {
	client := connect(t, newEngine(t))
	_, _, err := client.AsSnapshotter().ExportSnapshot(context.Background(), 99)
	if !errors.Is(err, crowdfund.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestGRPC_CancelledContext(t *testing.T) {
	client := connect(t, newEngine(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Faucet(ctx, types.FaucetRequest{Recipient: crowdfundtest.Alice, Amount: 1})
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if status.Code(err) != codes.Canceled {
		t.Fatalf("expected codes.Canceled, got %v", status.Code(err))
	}
}
