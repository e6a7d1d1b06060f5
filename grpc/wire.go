package crowdfundgrpc

import "github.com/blockberries/crowdfund/types"

// Transport-specific wrapper types. Every response carries the domain
// outcome as Code/Info so that ledger rejections travel as data and
// only transport failures surface as gRPC status errors.

// CreateCampaignResponse wraps Ledger.CreateCampaign.
type CreateCampaignResponse struct {
	Code   types.Code                 `cramberry:"1"`
	Info   string                     `cramberry:"2"`
	Result types.CreateCampaignResult `cramberry:"3"`
}

// ContributeResponse wraps Ledger.Contribute.
type ContributeResponse struct {
	Code   types.Code             `cramberry:"1"`
	Info   string                 `cramberry:"2"`
	Result types.ContributeResult `cramberry:"3"`
}

// FinalizeResponse wraps Ledger.FinalizeCampaign.
type FinalizeResponse struct {
	Code   types.Code           `cramberry:"1"`
	Info   string               `cramberry:"2"`
	Result types.FinalizeResult `cramberry:"3"`
}

// WithdrawResponse wraps Ledger.Withdraw.
type WithdrawResponse struct {
	Code   types.Code           `cramberry:"1"`
	Info   string               `cramberry:"2"`
	Result types.WithdrawResult `cramberry:"3"`
}

// RefundResponse wraps Ledger.Refund.
type RefundResponse struct {
	Code   types.Code         `cramberry:"1"`
	Info   string             `cramberry:"2"`
	Result types.RefundResult `cramberry:"3"`
}

// FaucetResponse wraps Ledger.Faucet.
type FaucetResponse struct {
	Code   types.Code         `cramberry:"1"`
	Info   string             `cramberry:"2"`
	Result types.FaucetResult `cramberry:"3"`
}

// TransferResponse wraps Ledger.Transfer.
type TransferResponse struct {
	Code   types.Code           `cramberry:"1"`
	Info   string               `cramberry:"2"`
	Result types.TransferResult `cramberry:"3"`
}

// CampaignRequest wraps the parameter for Ledger.Campaign.
type CampaignRequest struct {
	ID types.CampaignID `cramberry:"1"`
}

// CampaignResponse wraps the return value of Ledger.Campaign.
type CampaignResponse struct {
	Code     types.Code     `cramberry:"1"`
	Info     string         `cramberry:"2"`
	Campaign types.Campaign `cramberry:"3"`
}

// CampaignsRequest wraps the parameters for Ledger.Campaigns.
type CampaignsRequest struct {
	Start types.CampaignID `cramberry:"1"`
	Limit uint32           `cramberry:"2"`
}

// CampaignsResponse wraps the return value of Ledger.Campaigns.
type CampaignsResponse struct {
	Code      types.Code       `cramberry:"1"`
	Info      string           `cramberry:"2"`
	Campaigns []types.Campaign `cramberry:"3"`
}

// CampaignCountRequest is the (empty) request for Ledger.CampaignCount.
type CampaignCountRequest struct{}

// CampaignCountResponse wraps the return value of Ledger.CampaignCount.
type CampaignCountResponse struct {
	Code  types.Code `cramberry:"1"`
	Info  string     `cramberry:"2"`
	Count uint64     `cramberry:"3"`
}

// ContributionOfRequest wraps the parameters for Ledger.ContributionOf.
type ContributionOfRequest struct {
	CampaignID types.CampaignID `cramberry:"1"`
	Who        types.Identity   `cramberry:"2"`
}

// BalanceOfRequest wraps the parameter for Ledger.BalanceOf.
type BalanceOfRequest struct {
	Who types.Identity `cramberry:"1"`
}

// AmountResponse wraps the amount returned by ContributionOf and
// BalanceOf.
type AmountResponse struct {
	Code   types.Code   `cramberry:"1"`
	Info   string       `cramberry:"2"`
	Amount types.Amount `cramberry:"3"`
}

// InfoRequest is the (empty) request for Ledger.Info.
type InfoRequest struct{}

// InfoResponse wraps the return value of Ledger.Info.
type InfoResponse struct {
	Code   types.Code       `cramberry:"1"`
	Info   string           `cramberry:"2"`
	Ledger types.LedgerInfo `cramberry:"3"`
}

// SnapshotRequest is the (empty) request for Snapshotter.Snapshot.
type SnapshotRequest struct{}

// SnapshotResponse wraps the return value of Snapshotter.Snapshot.
type SnapshotResponse struct {
	Code     types.Code     `cramberry:"1"`
	Info     string         `cramberry:"2"`
	Snapshot types.Snapshot `cramberry:"3"`
}

// RestoreResponse wraps the outcome of Snapshotter.Restore.
type RestoreResponse struct {
	Code types.Code `cramberry:"1"`
	Info string     `cramberry:"2"`
}

// ExportSnapshotRequest wraps parameters for Snapshotter.ExportSnapshot.
type ExportSnapshotRequest struct {
	Format uint32 `cramberry:"1"`
}

// ExportSnapshotMessage is one message of the ExportSnapshot
// server stream. The first message carries the descriptor (or a
// failure in Code/Info); subsequent messages carry chunks.
type ExportSnapshotMessage struct {
	Code       types.Code                `cramberry:"1"`
	Info       string                    `cramberry:"2"`
	Descriptor *types.SnapshotDescriptor `cramberry:"3"`
	Chunk      *types.SnapshotChunk      `cramberry:"4"`
}

// ImportSnapshotMessage is a tagged union carrying either a descriptor
// (first message) or a chunk (subsequent messages) for the
// ImportSnapshot client-streaming RPC.
type ImportSnapshotMessage struct {
	Descriptor *types.SnapshotDescriptor `cramberry:"1"`
	Chunk      *types.SnapshotChunk      `cramberry:"2"`
}

// ImportSnapshotResponse wraps the return value of
// Snapshotter.ImportSnapshot.
type ImportSnapshotResponse struct {
	Code   types.Code         `cramberry:"1"`
	Info   string             `cramberry:"2"`
	Result types.ImportResult `cramberry:"3"`
}
