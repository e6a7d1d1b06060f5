// Package local provides a zero-copy, in-process ledger connection.
//
// For clients compiled into the same binary as the ledger, this
// adapter wraps the ledger with time stamping and capability
// discovery, with no serialization overhead.
package local

import (
	"context"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/server"
	"github.com/blockberries/crowdfund/types"
)

// Compile-time interface check.
var _ crowdfund.Connection = (*Connection)(nil)

// Connection wraps a local Ledger implementation.
type Connection struct {
	srv *server.Server
}

// NewConnection creates an in-process connection wrapping the given
// ledger.
func NewConnection(ledger crowdfund.Ledger, opts ...server.Option) *Connection {
	return &Connection{srv: server.New(ledger, opts...)}
}

func (c *Connection) CreateCampaign(ctx context.Context, req types.CreateCampaignRequest) (types.CreateCampaignResult, error) {
	return c.srv.CreateCampaign(ctx, req)
}

func (c *Connection) Contribute(ctx context.Context, req types.ContributeRequest) (types.ContributeResult, error) {
	return c.srv.Contribute(ctx, req)
}

func (c *Connection) FinalizeCampaign(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error) {
	return c.srv.FinalizeCampaign(ctx, req)
}

func (c *Connection) Withdraw(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error) {
	return c.srv.Withdraw(ctx, req)
}

func (c *Connection) Refund(ctx context.Context, req types.RefundRequest) (types.RefundResult, error) {
	return c.srv.Refund(ctx, req)
}

func (c *Connection) Faucet(ctx context.Context, req types.FaucetRequest) (types.FaucetResult, error) {
	return c.srv.Faucet(ctx, req)
}

func (c *Connection) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	return c.srv.Transfer(ctx, req)
}

func (c *Connection) Campaign(ctx context.Context, id types.CampaignID) (types.Campaign, error) {
	return c.srv.Campaign(ctx, id)
}

func (c *Connection) Campaigns(ctx context.Context, start types.CampaignID, limit uint32) ([]types.Campaign, error) {
	return c.srv.Campaigns(ctx, start, limit)
}

func (c *Connection) CampaignCount(ctx context.Context) (uint64, error) {
	return c.srv.CampaignCount(ctx)
}

func (c *Connection) ContributionOf(ctx context.Context, id types.CampaignID, who types.Identity) (types.Amount, error) {
	return c.srv.ContributionOf(ctx, id, who)
}

func (c *Connection) BalanceOf(ctx context.Context, who types.Identity) (types.Amount, error) {
	return c.srv.BalanceOf(ctx, who)
}

func (c *Connection) Info(ctx context.Context) (types.LedgerInfo, error) {
	return c.srv.Info(ctx)
}

func (c *Connection) AsSnapshotter() crowdfund.Snapshotter {
	return c.srv.AsSnapshotter()
}

func (c *Connection) Close() error { return nil }

// Server returns the underlying server for advanced use cases.
func (c *Connection) Server() *server.Server {
	return c.srv
}
