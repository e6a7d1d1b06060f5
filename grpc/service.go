package crowdfundgrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/crowdfund/types"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "crowdfund.v1.CrowdfundService"

// CrowdfundServiceServer is the server-side interface for the crowdfund
// gRPC service.
type CrowdfundServiceServer interface {
	CreateCampaign(context.Context, *types.CreateCampaignRequest) (*CreateCampaignResponse, error)
	Contribute(context.Context, *types.ContributeRequest) (*ContributeResponse, error)
	FinalizeCampaign(context.Context, *types.FinalizeRequest) (*FinalizeResponse, error)
	Withdraw(context.Context, *types.WithdrawRequest) (*WithdrawResponse, error)
	Refund(context.Context, *types.RefundRequest) (*RefundResponse, error)
	Faucet(context.Context, *types.FaucetRequest) (*FaucetResponse, error)
	Transfer(context.Context, *types.TransferRequest) (*TransferResponse, error)
	Campaign(context.Context, *CampaignRequest) (*CampaignResponse, error)
	Campaigns(context.Context, *CampaignsRequest) (*CampaignsResponse, error)
	CampaignCount(context.Context, *CampaignCountRequest) (*CampaignCountResponse, error)
	ContributionOf(context.Context, *ContributionOfRequest) (*AmountResponse, error)
	BalanceOf(context.Context, *BalanceOfRequest) (*AmountResponse, error)
	Info(context.Context, *InfoRequest) (*InfoResponse, error)
	Snapshot(context.Context, *SnapshotRequest) (*SnapshotResponse, error)
	Restore(context.Context, *types.Snapshot) (*RestoreResponse, error)
	ExportSnapshot(*ExportSnapshotRequest, grpc.ServerStream) error
	ImportSnapshot(grpc.ServerStream) error
}

// RegisterCrowdfundServiceServer registers the CrowdfundServiceServer on
// a gRPC server.
func RegisterCrowdfundServiceServer(s grpc.ServiceRegistrar, srv CrowdfundServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// --- Handler functions ---

// unary adapts a typed service method to a grpc.MethodHandler. The
// interceptor, when configured, wraps the call.
func unary[Req any, Resp any](method string, call func(CrowdfundServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CrowdfundServiceServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, r any) (any, error) {
			return call(srv.(CrowdfundServiceServer), ctx, r.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

func handlerExportSnapshot(srv any, stream grpc.ServerStream) error {
	req := new(ExportSnapshotRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(CrowdfundServiceServer).ExportSnapshot(req, stream)
}

func handlerImportSnapshot(srv any, stream grpc.ServerStream) error {
	return srv.(CrowdfundServiceServer).ImportSnapshot(stream)
}

// --- Service descriptor ---

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CrowdfundServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateCampaign", Handler: unary("CreateCampaign", CrowdfundServiceServer.CreateCampaign)},
		{MethodName: "Contribute", Handler: unary("Contribute", CrowdfundServiceServer.Contribute)},
		{MethodName: "FinalizeCampaign", Handler: unary("FinalizeCampaign", CrowdfundServiceServer.FinalizeCampaign)},
		{MethodName: "Withdraw", Handler: unary("Withdraw", CrowdfundServiceServer.Withdraw)},
		{MethodName: "Refund", Handler: unary("Refund", CrowdfundServiceServer.Refund)},
		{MethodName: "Faucet", Handler: unary("Faucet", CrowdfundServiceServer.Faucet)},
		{MethodName: "Transfer", Handler: unary("Transfer", CrowdfundServiceServer.Transfer)},
		{MethodName: "Campaign", Handler: unary("Campaign", CrowdfundServiceServer.Campaign)},
		{MethodName: "Campaigns", Handler: unary("Campaigns", CrowdfundServiceServer.Campaigns)},
		{MethodName: "CampaignCount", Handler: unary("CampaignCount", CrowdfundServiceServer.CampaignCount)},
		{MethodName: "ContributionOf", Handler: unary("ContributionOf", CrowdfundServiceServer.ContributionOf)},
		{MethodName: "BalanceOf", Handler: unary("BalanceOf", CrowdfundServiceServer.BalanceOf)},
		{MethodName: "Info", Handler: unary("Info", CrowdfundServiceServer.Info)},
		{MethodName: "Snapshot", Handler: unary("Snapshot", CrowdfundServiceServer.Snapshot)},
		{MethodName: "Restore", Handler: unary("Restore", CrowdfundServiceServer.Restore)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ExportSnapshot", Handler: handlerExportSnapshot, ServerStreams: true},
		{StreamName: "ImportSnapshot", Handler: handlerImportSnapshot, ClientStreams: true},
	},
	Metadata: "crowdfund/v1/crowdfund.proto",
}

// fullMethod returns the fully-qualified gRPC method name.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", ServiceName, method)
}
