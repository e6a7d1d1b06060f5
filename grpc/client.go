package crowdfundgrpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"

	"google.golang.org/grpc"
)

// Compile-time interface check.
var _ crowdfund.Connection = (*Client)(nil)

// Client implements crowdfund.Connection for remote ledgers over gRPC
// using cramberry serialization. Ledger rejections are rebuilt as
// *crowdfund.Error values, so errors.Is works the same as in-process.
type Client struct {
	cc        *grpc.ClientConn
	snapshots bool
}

// Dial connects to a remote ledger and discovers its capabilities with
// an Info call bounded by ctx.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("crowdfund client: dial %s: %w", addr, err)
	}
	c := &Client{cc: cc}
	info, err := c.Info(ctx)
	if err != nil {
		_ = cc.Close()
		return nil, fmt.Errorf("crowdfund client: info %s: %w", addr, err)
	}
	c.snapshots = info.Snapshots
	return c, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// --- Intents ---

func (c *Client) CreateCampaign(ctx context.Context, req types.CreateCampaignRequest) (types.CreateCampaignResult, error) {
	resp := new(CreateCampaignResponse)
	if err := c.cc.Invoke(ctx, fullMethod("CreateCampaign"), &req, resp); err != nil {
		return types.CreateCampaignResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) Contribute(ctx context.Context, req types.ContributeRequest) (types.ContributeResult, error) {
	resp := new(ContributeResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Contribute"), &req, resp); err != nil {
		return types.ContributeResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) FinalizeCampaign(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error) {
	resp := new(FinalizeResponse)
	if err := c.cc.Invoke(ctx, fullMethod("FinalizeCampaign"), &req, resp); err != nil {
		return types.FinalizeResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) Withdraw(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error) {
	resp := new(WithdrawResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Withdraw"), &req, resp); err != nil {
		return types.WithdrawResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) Refund(ctx context.Context, req types.RefundRequest) (types.RefundResult, error) {
	resp := new(RefundResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Refund"), &req, resp); err != nil {
		return types.RefundResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) Faucet(ctx context.Context, req types.FaucetRequest) (types.FaucetResult, error) {
	resp := new(FaucetResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Faucet"), &req, resp); err != nil {
		return types.FaucetResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	resp := new(TransferResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Transfer"), &req, resp); err != nil {
		return types.TransferResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

// --- Queries ---

func (c *Client) Campaign(ctx context.Context, id types.CampaignID) (types.Campaign, error) {
	resp := new(CampaignResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Campaign"), &CampaignRequest{ID: id}, resp); err != nil {
		return types.Campaign{}, err
	}
	return resp.Campaign, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) Campaigns(ctx context.Context, start types.CampaignID, limit uint32) ([]types.Campaign, error) {
	req := &CampaignsRequest{Start: start, Limit: limit}
	resp := new(CampaignsResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Campaigns"), req, resp); err != nil {
		return nil, err
	}
	return resp.Campaigns, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) CampaignCount(ctx context.Context) (uint64, error) {
	resp := new(CampaignCountResponse)
	if err := c.cc.Invoke(ctx, fullMethod("CampaignCount"), &CampaignCountRequest{}, resp); err != nil {
		return 0, err
	}
	return resp.Count, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) ContributionOf(ctx context.Context, id types.CampaignID, who types.Identity) (types.Amount, error) {
	req := &ContributionOfRequest{CampaignID: id, Who: who}
	resp := new(AmountResponse)
	if err := c.cc.Invoke(ctx, fullMethod("ContributionOf"), req, resp); err != nil {
		return 0, err
	}
	return resp.Amount, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) BalanceOf(ctx context.Context, who types.Identity) (types.Amount, error) {
	resp := new(AmountResponse)
	if err := c.cc.Invoke(ctx, fullMethod("BalanceOf"), &BalanceOfRequest{Who: who}, resp); err != nil {
		return 0, err
	}
	return resp.Amount, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (c *Client) Info(ctx context.Context) (types.LedgerInfo, error) {
	resp := new(InfoResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Info"), &InfoRequest{}, resp); err != nil {
		return types.LedgerInfo{}, err
	}
	return resp.Ledger, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

// --- Capability Accessors ---

// AsSnapshotter returns a snapshot client when the remote ledger
// reported snapshot support at dial time.
func (c *Client) AsSnapshotter() crowdfund.Snapshotter {
	if c.snapshots {
		return &clientSnapshotter{c}
	}
	return nil
}

// --- Snapshotter wrapper ---

type clientSnapshotter struct{ c *Client }

func (w *clientSnapshotter) Snapshot(ctx context.Context) (types.Snapshot, error) {
	resp := new(SnapshotResponse)
	if err := w.c.cc.Invoke(ctx, fullMethod("Snapshot"), &SnapshotRequest{}, resp); err != nil {
		return types.Snapshot{}, err
	}
	return resp.Snapshot, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (w *clientSnapshotter) Restore(ctx context.Context, snap types.Snapshot) error {
	resp := new(RestoreResponse)
	if err := w.c.cc.Invoke(ctx, fullMethod("Restore"), &snap, resp); err != nil {
		return err
	}
	return crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func (w *clientSnapshotter) ExportSnapshot(ctx context.Context, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	stream, err := w.c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "ExportSnapshot",
		ServerStreams: true,
	}, fullMethod("ExportSnapshot"))
	if err != nil {
		return nil, nil, err
	}
	if err := stream.SendMsg(&ExportSnapshotRequest{Format: format}); err != nil {
		return nil, nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, nil, err
	}

	// The first message carries the descriptor or the rejection.
	first := new(ExportSnapshotMessage)
	if err := stream.RecvMsg(first); err != nil {
		return nil, nil, err
	}
	if err := crowdfund.ErrorFromCode(first.Code, first.Info); err != nil {
		return nil, nil, err
	}
	if first.Descriptor == nil {
		return nil, nil, errors.New("crowdfund client: export stream did not start with a descriptor")
	}

	ch := make(chan types.SnapshotChunk)
	go func() {
		defer close(ch)
		for {
			msg := new(ExportSnapshotMessage)
			if err := stream.RecvMsg(msg); err != nil {
				return
			}
			if msg.Chunk == nil {
				continue
			}
			select {
			case ch <- *msg.Chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, first.Descriptor, nil
}

func (w *clientSnapshotter) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	stream, err := w.c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "ImportSnapshot",
		ClientStreams: true,
	}, fullMethod("ImportSnapshot"))
	if err != nil {
		drain(chunks)
		return types.ImportResult{}, err
	}

	// Send descriptor first.
	if err := stream.SendMsg(&ImportSnapshotMessage{Descriptor: &desc}); err != nil && err != io.EOF {
		drain(chunks)
		return types.ImportResult{}, err
	}

	// Send chunks. io.EOF means the server already answered; the
	// status is read below.
	for chunk := range chunks {
		if err := stream.SendMsg(&ImportSnapshotMessage{Chunk: &chunk}); err != nil {
			drain(chunks)
			if err == io.EOF {
				break
			}
			return types.ImportResult{}, err
		}
	}

	if err := stream.CloseSend(); err != nil {
		return types.ImportResult{}, err
	}

	resp := new(ImportSnapshotResponse)
	if err := stream.RecvMsg(resp); err != nil {
		return types.ImportResult{}, err
	}
	return resp.Result, crowdfund.ErrorFromCode(resp.Code, resp.Info)
}

func drain(chunks <-chan types.SnapshotChunk) {
	for range chunks {
	}
}
