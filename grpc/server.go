package crowdfundgrpc

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/server"
	"github.com/blockberries/crowdfund/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCServer adapts a crowdfund.Ledger to the gRPC CrowdfundServiceServer
// interface. Ledger errors are carried in-band as Code/Info; transport
// and context failures become gRPC status errors.
type GRPCServer struct {
	srv *server.Server
}

// NewGRPCServer creates a gRPC server adapter for the given ledger.
func NewGRPCServer(ledger crowdfund.Ledger, opts ...server.Option) *GRPCServer {
	return &GRPCServer{
		srv: server.New(ledger, opts...),
	}
}

// Register registers the crowdfund service on an existing gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterCrowdfundServiceServer(gs, s)
}

// Serve starts a gRPC server on the given listener.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(append(opts, grpc.ForceServerCodec(CramberryCodec{}))...)
	s.Register(gs)
	return gs.Serve(lis)
}

// Server returns the underlying server.Server.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

// outcome splits err into its wire representation. Ledger errors become
// a code and reason; anything else is returned as a status error.
func outcome(err error) (types.Code, string, error) {
	if err == nil {
		return types.CodeOK, "", nil
	}
	if e, ok := crowdfund.AsError(err); ok {
		return e.Code, e.Reason, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, "", status.FromContextError(err).Err()
	}
	return 0, "", status.Error(codes.Internal, err.Error())
}

// --- Intents ---

func (s *GRPCServer) CreateCampaign(ctx context.Context, req *types.CreateCampaignRequest) (*CreateCampaignResponse, error) {
	res, err := s.srv.CreateCampaign(ctx, *req)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &CreateCampaignResponse{Code: code, Info: info, Result: res}, nil
}

func (s *GRPCServer) Contribute(ctx context.Context, req *types.ContributeRequest) (*ContributeResponse, error) {
	res, err := s.srv.Contribute(ctx, *req)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &ContributeResponse{Code: code, Info: info, Result: res}, nil
}

func (s *GRPCServer) FinalizeCampaign(ctx context.Context, req *types.FinalizeRequest) (*FinalizeResponse, error) {
	res, err := s.srv.FinalizeCampaign(ctx, *req)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &FinalizeResponse{Code: code, Info: info, Result: res}, nil
}

func (s *GRPCServer) Withdraw(ctx context.Context, req *types.WithdrawRequest) (*WithdrawResponse, error) {
	res, err := s.srv.Withdraw(ctx, *req)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &WithdrawResponse{Code: code, Info: info, Result: res}, nil
}

func (s *GRPCServer) Refund(ctx context.Context, req *types.RefundRequest) (*RefundResponse, error) {
	res, err := s.srv.Refund(ctx, *req)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &RefundResponse{Code: code, Info: info, Result: res}, nil
}

func (s *GRPCServer) Faucet(ctx context.Context, req *types.FaucetRequest) (*FaucetResponse, error) {
	res, err := s.srv.Faucet(ctx, *req)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &FaucetResponse{Code: code, Info: info, Result: res}, nil
}

func (s *GRPCServer) Transfer(ctx context.Context, req *types.TransferRequest) (*TransferResponse, error) {
	res, err := s.srv.Transfer(ctx, *req)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &TransferResponse{Code: code, Info: info, Result: res}, nil
}

// --- Queries ---

func (s *GRPCServer) Campaign(ctx context.Context, req *CampaignRequest) (*CampaignResponse, error) {
	c, err := s.srv.Campaign(ctx, req.ID)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &CampaignResponse{Code: code, Info: info, Campaign: c}, nil
}

func (s *GRPCServer) Campaigns(ctx context.Context, req *CampaignsRequest) (*CampaignsResponse, error) {
	list, err := s.srv.Campaigns(ctx, req.Start, req.Limit)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &CampaignsResponse{Code: code, Info: info, Campaigns: list}, nil
}

func (s *GRPCServer) CampaignCount(ctx context.Context, _ *CampaignCountRequest) (*CampaignCountResponse, error) {
	n, err := s.srv.CampaignCount(ctx)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &CampaignCountResponse{Code: code, Info: info, Count: n}, nil
}

func (s *GRPCServer) ContributionOf(ctx context.Context, req *ContributionOfRequest) (*AmountResponse, error) {
	a, err := s.srv.ContributionOf(ctx, req.CampaignID, req.Who)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &AmountResponse{Code: code, Info: info, Amount: a}, nil
}

func (s *GRPCServer) BalanceOf(ctx context.Context, req *BalanceOfRequest) (*AmountResponse, error) {
	a, err := s.srv.BalanceOf(ctx, req.Who)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &AmountResponse{Code: code, Info: info, Amount: a}, nil
}

func (s *GRPCServer) Info(ctx context.Context, _ *InfoRequest) (*InfoResponse, error) {
	li, err := s.srv.Info(ctx)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &InfoResponse{Code: code, Info: info, Ledger: li}, nil
}

// --- Snapshot RPCs ---

func (s *GRPCServer) Snapshot(ctx context.Context, _ *SnapshotRequest) (*SnapshotResponse, error) {
	snap, err := s.srv.Snapshot(ctx)
	code, info, err := outcome(err)
	if err != nil {
		return nil, err
	}
	return &SnapshotResponse{Code: code, Info: info, Snapshot: snap}, nil
}

func (s *GRPCServer) Restore(ctx context.Context, snap *types.Snapshot) (*RestoreResponse, error) {
	code, info, err := outcome(s.srv.Restore(ctx, *snap))
	if err != nil {
		return nil, err
	}
	return &RestoreResponse{Code: code, Info: info}, nil
}

func (s *GRPCServer) ExportSnapshot(req *ExportSnapshotRequest, stream grpc.ServerStream) error {
	ch, desc, err := s.srv.ExportSnapshot(stream.Context(), req.Format)
	code, info, err := outcome(err)
	if err != nil {
		return err
	}
	if !code.OK() {
		return stream.SendMsg(&ExportSnapshotMessage{Code: code, Info: info})
	}
	if err := stream.SendMsg(&ExportSnapshotMessage{Descriptor: desc}); err != nil {
		return err
	}
	for chunk := range ch {
		if err := stream.SendMsg(&ExportSnapshotMessage{Chunk: &chunk}); err != nil {
			return err
		}
	}
	return nil
}

func (s *GRPCServer) ImportSnapshot(stream grpc.ServerStream) error {
	// First message must be the descriptor.
	first := new(ImportSnapshotMessage)
	if err := stream.RecvMsg(first); err != nil {
		return err
	}
	if first.Descriptor == nil {
		return status.Error(codes.InvalidArgument, "crowdfund grpc: first ImportSnapshot message must contain a descriptor")
	}

	ctx := stream.Context()
	desc := *first.Descriptor
	chunks := make(chan types.SnapshotChunk)

	// Read chunks in background. A broken stream ends the channel early
	// and the import reports the chunks it never saw.
	go func() {
		defer close(chunks)
		for {
			msg := new(ImportSnapshotMessage)
			if err := stream.RecvMsg(msg); err != nil {
				if err != io.EOF {
					s.srv.Logger().Debug("import stream ended", "err", err)
				}
				return
			}
			if msg.Chunk == nil {
				continue
			}
			select {
			case chunks <- *msg.Chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	result, err := s.srv.ImportSnapshot(ctx, desc, chunks)
	code, info, err := outcome(err)
	if err != nil {
		return err
	}
	return stream.SendMsg(&ImportSnapshotResponse{Code: code, Info: info, Result: result})
}

// Compile-time check.
var _ CrowdfundServiceServer = (*GRPCServer)(nil)
