// Package engine implements the campaign lifecycle: it validates
// intents against the campaign store and contribution tracker and
// applies their token effects through the balance ledger.
//
// Every mutation runs under a single engine-wide lock. All checks are
// made before the first write, so an intent either applies completely
// or not at all.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/balance"
	"github.com/blockberries/crowdfund/campaign"
	"github.com/blockberries/crowdfund/contribution"
	"github.com/blockberries/crowdfund/types"
)

// Compile-time interface checks.
var (
	_ crowdfund.Ledger      = (*Engine)(nil)
	_ crowdfund.Snapshotter = (*Engine)(nil)
)

// MaxPageSize caps the number of campaigns returned by one Campaigns call.
const MaxPageSize = 1000

// state is everything a snapshot captures. Restore swaps it whole.
type state struct {
	campaigns     *campaign.Store
	contributions *contribution.Tracker
	balances      *balance.Ledger
	// Number of mutations applied since genesis.
	sequence uint64
}

func newState() *state {
	return &state{
		campaigns:     campaign.New(),
		contributions: contribution.New(),
		balances:      balance.New(),
	}
}

// Engine is the authoritative crowdfund ledger.
type Engine struct {
	mu     sync.RWMutex
	st     *state
	reward types.Ratio
	logger *slog.Logger
	hooks  []EventHook
}

// New creates an engine with empty state.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		st:     newState(),
		reward: types.OneToOne,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.reward.Validate(); err != nil {
		return nil, fmt.Errorf("engine: reward rate: %w", err)
	}
	return e, nil
}

// RewardRate returns the configured reward ratio.
func (e *Engine) RewardRate() types.Ratio { return e.reward }

// ---------------------------------------------------------------------------
// Intents
// ---------------------------------------------------------------------------

func (e *Engine) CreateCampaign(ctx context.Context, req types.CreateCampaignRequest) (types.CreateCampaignResult, error) {
	if err := ctx.Err(); err != nil {
		return types.CreateCampaignResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.st.campaigns.Create(req.Creator, req.Title, req.Goal, req.DurationSeconds, req.Now.ToTime())
	if err != nil {
		return types.CreateCampaignResult{}, e.reject("create campaign", err)
	}

	e.logger.Info("campaign created",
		"campaign", c.ID, "creator", c.Creator.String(), "goal", uint64(c.Goal))
	e.emit(types.EventCampaignCreated,
		attr("campaign", idString(c.ID), true),
		attr("creator", c.Creator.String(), true),
		attr("goal", amountString(c.Goal), false),
		attr("deadline", strconv.FormatInt(c.Deadline.Seconds, 10), false),
	)
	return types.CreateCampaignResult{ID: c.ID, Deadline: c.Deadline}, nil
}

func (e *Engine) Contribute(ctx context.Context, req types.ContributeRequest) (types.ContributeResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ContributeResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.st
	c, err := st.campaigns.Get(req.CampaignID)
	if err != nil {
		return types.ContributeResult{}, e.reject("contribute", err)
	}
	if err := guardContribute(c, req.Now.ToTime()); err != nil {
		return types.ContributeResult{}, e.reject("contribute", err)
	}
	if req.Value == 0 {
		return types.ContributeResult{}, e.reject("contribute",
			crowdfund.NewError(types.CodeInvalidAmount, "contribution must be positive"))
	}
	if req.Contributor.IsNull() {
		return types.ContributeResult{}, e.reject("contribute",
			crowdfund.NewError(types.CodeInvalidInput, "contributor is the null identity"))
	}
	if c.Raised > types.MaxAmount-req.Value {
		return types.ContributeResult{}, e.reject("contribute",
			crowdfund.NewError(types.CodeOverflow, "campaign %d raised amount overflows", c.ID))
	}
	if err := st.contributions.CheckRecord(c.ID, req.Contributor, req.Value); err != nil {
		return types.ContributeResult{}, e.reject("contribute", err)
	}
	reward, ok := e.reward.Apply(req.Value)
	if !ok {
		return types.ContributeResult{}, e.reject("contribute",
			crowdfund.NewError(types.CodeOverflow, "reward for %d overflows", req.Value))
	}
	if reward > 0 {
		if err := st.balances.CheckMint(req.Contributor, reward); err != nil {
			return types.ContributeResult{}, e.reject("contribute", err)
		}
	}

	// Checked above; none of the writes below can fail.
	total, _ := st.contributions.Record(c.ID, req.Contributor, req.Value)
	c.Raised += req.Value
	_ = st.campaigns.Put(c)
	if reward > 0 {
		_, _ = st.balances.Mint(req.Contributor, reward)
	}

	e.logger.Info("contribution recorded",
		"campaign", c.ID, "contributor", req.Contributor.String(),
		"value", uint64(req.Value), "raised", uint64(c.Raised), "reward", uint64(reward))
	e.emit(types.EventContribution,
		attr("campaign", idString(c.ID), true),
		attr("contributor", req.Contributor.String(), true),
		attr("value", amountString(req.Value), false),
		attr("raised", amountString(c.Raised), false),
		attr("reward", amountString(reward), false),
	)
	return types.ContributeResult{Total: total, Raised: c.Raised, Reward: reward}, nil
}

func (e *Engine) FinalizeCampaign(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error) {
	if err := ctx.Err(); err != nil {
		return types.FinalizeResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.st.campaigns.Get(req.CampaignID)
	if err != nil {
		return types.FinalizeResult{}, e.reject("finalize", err)
	}
	if err := guardFinalize(c, req.Now.ToTime()); err != nil {
		return types.FinalizeResult{}, e.reject("finalize", err)
	}

	c.Finalized = true
	c.Successful = c.Raised >= c.Goal
	_ = e.st.campaigns.Put(c)

	e.logger.Info("campaign finalized",
		"campaign", c.ID, "successful", c.Successful, "raised", uint64(c.Raised), "goal", uint64(c.Goal))
	e.emit(types.EventCampaignFinalized,
		attr("campaign", idString(c.ID), true),
		attr("successful", strconv.FormatBool(c.Successful), false),
		attr("raised", amountString(c.Raised), false),
	)
	return types.FinalizeResult{Successful: c.Successful, Raised: c.Raised}, nil
}

func (e *Engine) Withdraw(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error) {
	if err := ctx.Err(); err != nil {
		return types.WithdrawResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.st.campaigns.Get(req.CampaignID)
	if err != nil {
		return types.WithdrawResult{}, e.reject("withdraw", err)
	}
	if err := guardWithdraw(c, req.Caller); err != nil {
		return types.WithdrawResult{}, e.reject("withdraw", err)
	}

	c.Withdrawn = true
	_ = e.st.campaigns.Put(c)

	e.logger.Info("funds withdrawn",
		"campaign", c.ID, "creator", c.Creator.String(), "amount", uint64(c.Raised))
	e.emit(types.EventFundsWithdrawn,
		attr("campaign", idString(c.ID), true),
		attr("creator", c.Creator.String(), true),
		attr("amount", amountString(c.Raised), false),
	)
	return types.WithdrawResult{Amount: c.Raised}, nil
}

func (e *Engine) Refund(ctx context.Context, req types.RefundRequest) (types.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return types.RefundResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.st.campaigns.Get(req.CampaignID)
	if err != nil {
		return types.RefundResult{}, e.reject("refund", err)
	}
	if err := guardRefund(c); err != nil {
		return types.RefundResult{}, e.reject("refund", err)
	}
	if e.st.contributions.Get(c.ID, req.Contributor) == 0 {
		return types.RefundResult{}, e.reject("refund",
			crowdfund.NewError(types.CodeNothingToRefund, "%s has nothing to refund from campaign %d", req.Contributor, c.ID))
	}

	amount := e.st.contributions.Clear(c.ID, req.Contributor)

	e.logger.Info("contribution refunded",
		"campaign", c.ID, "contributor", req.Contributor.String(), "amount", uint64(amount))
	e.emit(types.EventRefund,
		attr("campaign", idString(c.ID), true),
		attr("contributor", req.Contributor.String(), true),
		attr("amount", amountString(amount), false),
	)
	return types.RefundResult{Amount: amount}, nil
}

func (e *Engine) Faucet(ctx context.Context, req types.FaucetRequest) (types.FaucetResult, error) {
	if err := ctx.Err(); err != nil {
		return types.FaucetResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Recipient.IsNull() {
		return types.FaucetResult{}, e.reject("faucet",
			crowdfund.NewError(types.CodeInvalidInput, "recipient is the null identity"))
	}
	bal, err := e.st.balances.Mint(req.Recipient, req.Amount)
	if err != nil {
		return types.FaucetResult{}, e.reject("faucet", err)
	}

	e.logger.Info("faucet minted", "recipient", req.Recipient.String(), "amount", uint64(req.Amount))
	e.emit(types.EventFaucet,
		attr("recipient", req.Recipient.String(), true),
		attr("amount", amountString(req.Amount), false),
	)
	return types.FaucetResult{Balance: bal}, nil
}

func (e *Engine) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return types.TransferResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.From.IsNull() || req.To.IsNull() {
		return types.TransferResult{}, e.reject("transfer",
			crowdfund.NewError(types.CodeInvalidInput, "transfer involves the null identity"))
	}
	from, to, err := e.st.balances.Transfer(req.From, req.To, req.Amount)
	if err != nil {
		return types.TransferResult{}, e.reject("transfer", err)
	}

	e.logger.Info("tokens transferred",
		"from", req.From.String(), "to", req.To.String(), "amount", uint64(req.Amount))
	e.emit(types.EventTransfer,
		attr("from", req.From.String(), true),
		attr("to", req.To.String(), true),
		attr("amount", amountString(req.Amount), false),
	)
	return types.TransferResult{FromBalance: from, ToBalance: to}, nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (e *Engine) Campaign(ctx context.Context, id types.CampaignID) (types.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return types.Campaign{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.campaigns.Get(id)
}

func (e *Engine) Campaigns(ctx context.Context, start types.CampaignID, limit uint32) ([]types.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.campaigns.List(start, limit), nil
}

func (e *Engine) CampaignCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.campaigns.Count(), nil
}

func (e *Engine) ContributionOf(ctx context.Context, id types.CampaignID, who types.Identity) (types.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.st.campaigns.Get(id); err != nil {
		return 0, err
	}
	return e.st.contributions.Get(id, who), nil
}

func (e *Engine) BalanceOf(ctx context.Context, who types.Identity) (types.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.balances.BalanceOf(who), nil
}

func (e *Engine) Info(ctx context.Context) (types.LedgerInfo, error) {
	if err := ctx.Err(); err != nil {
		return types.LedgerInfo{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	h, err := e.stateHashLocked()
	if err != nil {
		return types.LedgerInfo{}, err
	}
	return types.LedgerInfo{
		CampaignCount: e.st.campaigns.Count(),
		Sequence:      e.st.sequence,
		StateHash:     h,
		RewardRate:    e.reward,
		TotalSupply:   e.st.balances.TotalSupply(),
		Snapshots:     true,
	}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// reject logs a refused intent and returns err unchanged.
func (e *Engine) reject(op string, err error) error {
	e.logger.Debug(op+" rejected", "error", err)
	return err
}

// emit advances the sequence and delivers an event to every hook.
// Must be called with the write lock held, after the mutation applied.
func (e *Engine) emit(kind string, attrs ...types.EventAttribute) {
	e.st.sequence++
	e.notify(types.Event{Kind: kind, Attributes: attrs, Sequence: e.st.sequence})
}

func (e *Engine) notify(ev types.Event) {
	for _, h := range e.hooks {
		h(ev)
	}
}

func attr(key, value string, index bool) types.EventAttribute {
	return types.EventAttribute{Key: key, Value: value, Index: index}
}

func idString(id types.CampaignID) string { return strconv.FormatUint(uint64(id), 10) }

func amountString(a types.Amount) string { return strconv.FormatUint(uint64(a), 10) }
