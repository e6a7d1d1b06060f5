package crowdfundtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/server"
	"github.com/blockberries/crowdfund/types"
)

// Epoch is the time every harness clock starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness drives a ledger through intents stamped with a manual
// clock. Requests always carry the clock's time, so implementations
// that take Now from the request and those that stamp it from the
// same clock observe identical times.
type Harness struct {
	t      *testing.T
	ledger crowdfund.Ledger
	clock  *server.ManualClock
}

// NewHarness creates a harness for ledger, reading time from clock.
func NewHarness(t *testing.T, ledger crowdfund.Ledger, clock *server.ManualClock) *Harness {
	t.Helper()
	return &Harness{t: t, ledger: ledger, clock: clock}
}

// Ledger returns the ledger under test.
func (h *Harness) Ledger() crowdfund.Ledger { return h.ledger }

// Clock returns the harness clock.
func (h *Harness) Clock() *server.ManualClock { return h.clock }

// Now returns the current harness time as a Timestamp.
func (h *Harness) Now() types.Timestamp { return types.TimeToTimestamp(h.clock.Now()) }

// Advance moves the harness clock forward.
func (h *Harness) Advance(d time.Duration) { h.clock.Advance(d) }

// SetTime moves the harness clock to ts.
func (h *Harness) SetTime(ts types.Timestamp) { h.clock.Set(ts.ToTime()) }

// --- Fallible intents ---

// TryCreate opens a campaign lasting d.
func (h *Harness) TryCreate(creator types.Identity, title string, goal types.Amount, d time.Duration) (types.CreateCampaignResult, error) {
	return h.ledger.CreateCampaign(context.Background(), types.CreateCampaignRequest{
		Creator:         creator,
		Title:           title,
		Goal:            goal,
		DurationSeconds: int64(d / time.Second),
		Now:             h.Now(),
	})
}

// TryContribute pledges v to a campaign.
func (h *Harness) TryContribute(id types.CampaignID, who types.Identity, v types.Amount) (types.ContributeResult, error) {
	return h.ledger.Contribute(context.Background(), types.ContributeRequest{
		CampaignID: id, Contributor: who, Value: v, Now: h.Now(),
	})
}

// TryFinalize decides a campaign.
func (h *Harness) TryFinalize(id types.CampaignID) (types.FinalizeResult, error) {
	return h.ledger.FinalizeCampaign(context.Background(), types.FinalizeRequest{CampaignID: id, Now: h.Now()})
}

// TryWithdraw releases a campaign's funds to caller.
func (h *Harness) TryWithdraw(id types.CampaignID, caller types.Identity) (types.WithdrawResult, error) {
	return h.ledger.Withdraw(context.Background(), types.WithdrawRequest{CampaignID: id, Caller: caller, Now: h.Now()})
}

// TryRefund returns who's contribution to a failed campaign.
func (h *Harness) TryRefund(id types.CampaignID, who types.Identity) (types.RefundResult, error) {
	return h.ledger.Refund(context.Background(), types.RefundRequest{CampaignID: id, Contributor: who, Now: h.Now()})
}

// TryFaucet mints amount to who.
func (h *Harness) TryFaucet(who types.Identity, amount types.Amount) (types.FaucetResult, error) {
	return h.ledger.Faucet(context.Background(), types.FaucetRequest{Recipient: who, Amount: amount})
}

// --- Infallible intents ---

// Create opens a campaign and fails the test on error.
func (h *Harness) Create(creator types.Identity, title string, goal types.Amount, d time.Duration) types.CampaignID {
	h.t.Helper()
	res, err := h.TryCreate(creator, title, goal, d)
	if err != nil {
		h.t.Fatalf("CreateCampaign(%q, goal=%d) failed: %v", title, goal, err)
	}
	return res.ID
}

// Contribute pledges v and fails the test on error.
func (h *Harness) Contribute(id types.CampaignID, who types.Identity, v types.Amount) types.ContributeResult {
	h.t.Helper()
	res, err := h.TryContribute(id, who, v)
	if err != nil {
		h.t.Fatalf("Contribute(campaign=%d, value=%d) failed: %v", id, v, err)
	}
	return res
}

// Finalize decides a campaign and fails the test on error.
func (h *Harness) Finalize(id types.CampaignID) types.FinalizeResult {
	h.t.Helper()
	res, err := h.TryFinalize(id)
	if err != nil {
		h.t.Fatalf("FinalizeCampaign(%d) failed: %v", id, err)
	}
	return res
}

// Withdraw releases funds and fails the test on error.
func (h *Harness) Withdraw(id types.CampaignID, caller types.Identity) types.WithdrawResult {
	h.t.Helper()
	res, err := h.TryWithdraw(id, caller)
	if err != nil {
		h.t.Fatalf("Withdraw(%d) failed: %v", id, err)
	}
	return res
}

// Refund returns a contribution and fails the test on error.
func (h *Harness) Refund(id types.CampaignID, who types.Identity) types.RefundResult {
	h.t.Helper()
	res, err := h.TryRefund(id, who)
	if err != nil {
		h.t.Fatalf("Refund(%d, %s) failed: %v", id, who, err)
	}
	return res
}

// Faucet mints tokens and fails the test on error.
func (h *Harness) Faucet(who types.Identity, amount types.Amount) types.FaucetResult {
	h.t.Helper()
	res, err := h.TryFaucet(who, amount)
	if err != nil {
		h.t.Fatalf("Faucet(%s, %d) failed: %v", who, amount, err)
	}
	return res
}

// --- Queries ---

// Campaign fetches a campaign and fails the test on error.
func (h *Harness) Campaign(id types.CampaignID) types.Campaign {
	h.t.Helper()
	c, err := h.ledger.Campaign(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Campaign(%d) failed: %v", id, err)
	}
	return c
}

// Contribution reads who's contribution and fails the test on error.
func (h *Harness) Contribution(id types.CampaignID, who types.Identity) types.Amount {
	h.t.Helper()
	a, err := h.ledger.ContributionOf(context.Background(), id, who)
	if err != nil {
		h.t.Fatalf("ContributionOf(%d, %s) failed: %v", id, who, err)
	}
	return a
}

// Balance reads who's balance and fails the test on error.
func (h *Harness) Balance(who types.Identity) types.Amount {
	h.t.Helper()
	a, err := h.ledger.BalanceOf(context.Background(), who)
	if err != nil {
		h.t.Fatalf("BalanceOf(%s) failed: %v", who, err)
	}
	return a
}

// Info reads the ledger summary and fails the test on error.
func (h *Harness) Info() types.LedgerInfo {
	h.t.Helper()
	info, err := h.ledger.Info(context.Background())
	if err != nil {
		h.t.Fatalf("Info failed: %v", err)
	}
	return info
}

// ExpectCode asserts that err is a ledger error with the given code.
func (h *Harness) ExpectCode(err error, want types.Code) {
	h.t.Helper()
	if err == nil {
		h.t.Fatalf("expected %s, got success", want)
	}
	if !errors.Is(err, &crowdfund.Error{Code: want}) {
		h.t.Fatalf("expected %s, got %v", want, err)
	}
}
