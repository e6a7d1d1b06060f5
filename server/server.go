// Package server provides the transport-facing wrapper around a
// ledger. It owns the clock: every intent passing through it is
// stamped with the server's notion of now, so remote callers cannot
// choose the time an operation happens at.
package server

import (
	"context"
	"log/slog"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blockberries/crowdfund/server"

// Compile-time interface checks.
var (
	_ crowdfund.Ledger      = (*Server)(nil)
	_ crowdfund.Snapshotter = (*Server)(nil)
	_ crowdfund.Connection  = (*Server)(nil)
)

// Server wraps a ledger with time stamping and capability routing.
// Transports interact with the ledger exclusively through this server.
type Server struct {
	ledger crowdfund.Ledger
	clock  Clock
	logger *slog.Logger
	tracer trace.Tracer

	// Optional capability (nil if not supported).
	snapshots crowdfund.Snapshotter
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used to stamp intents. The default is
// SystemClock.
func WithClock(c Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithLogger sets the logger for the server.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTracerProvider sets the provider spans are created from. The
// default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracer = tp.Tracer(tracerName) }
}

// New creates a Server wrapping the given ledger.
func New(ledger crowdfund.Ledger, opts ...Option) *Server {
	s := &Server{
		ledger: ledger,
		clock:  SystemClock{},
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshots, _ = ledger.(crowdfund.Snapshotter)
	return s
}

func (s *Server) now() types.Timestamp {
	return types.TimeToTimestamp(s.clock.Now())
}

func (s *Server) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "crowdfund."+op)
}

// finish ends the span for op. Ledger rejections are recorded as a
// code attribute; other failures mark the span and are logged.
func (s *Server) finish(span trace.Span, op string, err error) error {
	defer span.End()
	span.SetAttributes(attribute.String("crowdfund.code", crowdfund.CodeOf(err).String()))
	if err == nil {
		return nil
	}
	if _, ok := crowdfund.AsError(err); !ok {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("ledger call failed", "op", op, "error", err)
	}
	return err
}

// --- Intents ---

func (s *Server) CreateCampaign(ctx context.Context, req types.CreateCampaignRequest) (types.CreateCampaignResult, error) {
	if err := ctx.Err(); err != nil {
		return types.CreateCampaignResult{}, err
	}
	ctx, span := s.start(ctx, "CreateCampaign")
	req.Now = s.now()
	res, err := s.ledger.CreateCampaign(ctx, req)
	return res, s.finish(span, "CreateCampaign", err)
}

func (s *Server) Contribute(ctx context.Context, req types.ContributeRequest) (types.ContributeResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ContributeResult{}, err
	}
	ctx, span := s.start(ctx, "Contribute")
	req.Now = s.now()
	res, err := s.ledger.Contribute(ctx, req)
	return res, s.finish(span, "Contribute", err)
}

func (s *Server) FinalizeCampaign(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error) {
	if err := ctx.Err(); err != nil {
		return types.FinalizeResult{}, err
	}
	ctx, span := s.start(ctx, "FinalizeCampaign")
	req.Now = s.now()
	res, err := s.ledger.FinalizeCampaign(ctx, req)
	return res, s.finish(span, "FinalizeCampaign", err)
}

func (s *Server) Withdraw(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error) {
	if err := ctx.Err(); err != nil {
		return types.WithdrawResult{}, err
	}
	ctx, span := s.start(ctx, "Withdraw")
	req.Now = s.now()
	res, err := s.ledger.Withdraw(ctx, req)
	return res, s.finish(span, "Withdraw", err)
}

func (s *Server) Refund(ctx context.Context, req types.RefundRequest) (types.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return types.RefundResult{}, err
	}
	ctx, span := s.start(ctx, "Refund")
	req.Now = s.now()
	res, err := s.ledger.Refund(ctx, req)
	return res, s.finish(span, "Refund", err)
}

func (s *Server) Faucet(ctx context.Context, req types.FaucetRequest) (types.FaucetResult, error) {
	if err := ctx.Err(); err != nil {
		return types.FaucetResult{}, err
	}
	ctx, span := s.start(ctx, "Faucet")
	res, err := s.ledger.Faucet(ctx, req)
	return res, s.finish(span, "Faucet", err)
}

func (s *Server) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return types.TransferResult{}, err
	}
	ctx, span := s.start(ctx, "Transfer")
	res, err := s.ledger.Transfer(ctx, req)
	return res, s.finish(span, "Transfer", err)
}

// --- Queries ---

func (s *Server) Campaign(ctx context.Context, id types.CampaignID) (types.Campaign, error) {
	ctx, span := s.start(ctx, "Campaign")
	c, err := s.ledger.Campaign(ctx, id)
	return c, s.finish(span, "Campaign", err)
}

func (s *Server) Campaigns(ctx context.Context, start types.CampaignID, limit uint32) ([]types.Campaign, error) {
	ctx, span := s.start(ctx, "Campaigns")
	cs, err := s.ledger.Campaigns(ctx, start, limit)
	return cs, s.finish(span, "Campaigns", err)
}

func (s *Server) CampaignCount(ctx context.Context) (uint64, error) {
	ctx, span := s.start(ctx, "CampaignCount")
	n, err := s.ledger.CampaignCount(ctx)
	return n, s.finish(span, "CampaignCount", err)
}

func (s *Server) ContributionOf(ctx context.Context, id types.CampaignID, who types.Identity) (types.Amount, error) {
	ctx, span := s.start(ctx, "ContributionOf")
	a, err := s.ledger.ContributionOf(ctx, id, who)
	return a, s.finish(span, "ContributionOf", err)
}

func (s *Server) BalanceOf(ctx context.Context, who types.Identity) (types.Amount, error) {
	ctx, span := s.start(ctx, "BalanceOf")
	a, err := s.ledger.BalanceOf(ctx, who)
	return a, s.finish(span, "BalanceOf", err)
}

// Info reports the wrapped ledger's summary, with Snapshots reflecting
// whether this server can route snapshot calls.
func (s *Server) Info(ctx context.Context) (types.LedgerInfo, error) {
	ctx, span := s.start(ctx, "Info")
	info, err := s.ledger.Info(ctx)
	if err == nil {
		info.Snapshots = s.snapshots != nil
	}
	return info, s.finish(span, "Info", err)
}

// --- Capability-gated optional methods ---

func errNoSnapshots() error {
	return crowdfund.NewError(types.CodeInvalidInput, "snapshots not supported")
}

// Snapshot delegates to the Snapshotter if supported.
func (s *Server) Snapshot(ctx context.Context) (types.Snapshot, error) {
	if s.snapshots == nil {
		return types.Snapshot{}, errNoSnapshots()
	}
	ctx, span := s.start(ctx, "Snapshot")
	snap, err := s.snapshots.Snapshot(ctx)
	return snap, s.finish(span, "Snapshot", err)
}

// Restore delegates to the Snapshotter if supported.
func (s *Server) Restore(ctx context.Context, snap types.Snapshot) error {
	if s.snapshots == nil {
		return errNoSnapshots()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := s.start(ctx, "Restore")
	return s.finish(span, "Restore", s.snapshots.Restore(ctx, snap))
}

// ExportSnapshot delegates to the Snapshotter if supported.
func (s *Server) ExportSnapshot(ctx context.Context, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	if s.snapshots == nil {
		return nil, nil, errNoSnapshots()
	}
	ctx, span := s.start(ctx, "ExportSnapshot")
	ch, desc, err := s.snapshots.ExportSnapshot(ctx, format)
	return ch, desc, s.finish(span, "ExportSnapshot", err)
}

// ImportSnapshot delegates to the Snapshotter if supported.
func (s *Server) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	if s.snapshots == nil {
		for range chunks {
		}
		return types.ImportResult{}, errNoSnapshots()
	}
	ctx, span := s.start(ctx, "ImportSnapshot")
	res, err := s.snapshots.ImportSnapshot(ctx, desc, chunks)
	return res, s.finish(span, "ImportSnapshot", err)
}

// AsSnapshotter returns the Snapshotter interface or nil.
func (s *Server) AsSnapshotter() crowdfund.Snapshotter {
	if s.snapshots == nil {
		return nil
	}
	return s
}

// Clock returns the clock used to stamp intents.
func (s *Server) Clock() Clock { return s.clock }

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Close is a no-op for the server wrapper.
func (s *Server) Close() error { return nil }
