package crowdfundtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/server"
	"github.com/blockberries/crowdfund/types"
)

// Factory returns a fresh ledger for one test. Ledgers that stamp
// time themselves (servers, transports) must read it from clock.
type Factory func(t *testing.T, clock server.Clock) crowdfund.Ledger

// Well-known identities used by the suite.
var (
	Creator = types.TestIdentity(1)
	Alice   = types.TestIdentity(2)
	Bob     = types.TestIdentity(3)
)

// RunComplianceSuite runs a standard compliance test suite against a
// ledger implementation to verify the campaign lifecycle rules.
//
// The factory function should return a fresh ledger for each test.
func RunComplianceSuite(t *testing.T, factory Factory) {
	t.Helper()

	newHarness := func(t *testing.T) *Harness {
		clock := server.NewManualClock(Epoch)
		return NewHarness(t, factory(t, clock), clock)
	}

	t.Run("ids_sequential", func(t *testing.T) {
		h := newHarness(t)
		for want := types.CampaignID(1); want <= 3; want++ {
			if id := h.Create(Creator, "campaign", 10, time.Hour); id != want {
				t.Fatalf("expected id %d, got %d", want, id)
			}
		}
		_, err := h.TryCreate(Creator, " ", 10, time.Hour)
		h.ExpectCode(err, types.CodeInvalidInput)
		_, err = h.TryCreate(Creator, "zero goal", 0, time.Hour)
		h.ExpectCode(err, types.CodeInvalidInput)
		_, err = h.TryCreate(Creator, "no time", 10, 0)
		h.ExpectCode(err, types.CodeInvalidInput)

		if id := h.Create(Creator, "after failures", 10, time.Hour); id != 4 {
			t.Fatalf("failed creations consumed ids: got %d", id)
		}
		n, err := h.Ledger().CampaignCount(context.Background())
		if err != nil || n != 4 {
			t.Fatalf("expected count 4, got %d (%v)", n, err)
		}
	})

	t.Run("unknown_campaign", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.Ledger().Campaign(context.Background(), 1)
		h.ExpectCode(err, types.CodeNotFound)
		_, err = h.TryContribute(1, Alice, 1)
		h.ExpectCode(err, types.CodeNotFound)
		_, err = h.TryFinalize(1)
		h.ExpectCode(err, types.CodeNotFound)
		_, err = h.TryWithdraw(1, Creator)
		h.ExpectCode(err, types.CodeNotFound)
		_, err = h.TryRefund(1, Alice)
		h.ExpectCode(err, types.CodeNotFound)
	})

	t.Run("raised_equals_sum_of_contributions", func(t *testing.T) {
		h := newHarness(t)
		id := h.Create(Creator, "sum", 1000, time.Hour)

		h.Contribute(id, Alice, 10)
		h.Contribute(id, Bob, 25)
		res := h.Contribute(id, Alice, 5)
		if res.Total != 15 {
			t.Errorf("expected cumulative 15, got %d", res.Total)
		}

		c := h.Campaign(id)
		sum := h.Contribution(id, Alice) + h.Contribution(id, Bob)
		if c.Raised != sum || c.Raised != 40 {
			t.Fatalf("raised %d, sum of contributions %d", c.Raised, sum)
		}
	})

	t.Run("reward_minted_per_rate", func(t *testing.T) {
		h := newHarness(t)
		rate := h.Info().RewardRate
		id := h.Create(Creator, "reward", 1000, time.Hour)

		res := h.Contribute(id, Alice, 40)
		want, ok := rate.Apply(40)
		if !ok {
			t.Fatalf("rate %s cannot be applied", rate)
		}
		if res.Reward != want {
			t.Fatalf("expected reward %d, got %d", want, res.Reward)
		}
		if got := h.Balance(Alice); got != want {
			t.Fatalf("expected balance %d, got %d", want, got)
		}
	})

	t.Run("contribute_rejections", func(t *testing.T) {
		h := newHarness(t)
		id := h.Create(Creator, "reject", 100, time.Hour)

		_, err := h.TryContribute(id, Alice, 0)
		h.ExpectCode(err, types.CodeInvalidAmount)
		_, err = h.TryContribute(id, types.NullIdentity, 1)
		h.ExpectCode(err, types.CodeInvalidInput)

		if c := h.Campaign(id); c.Raised != 0 {
			t.Fatalf("rejected contributions changed raised to %d", c.Raised)
		}
	})

	t.Run("concurrent_finalize_exactly_once", func(t *testing.T) {
		h := newHarness(t)
		id := h.Create(Creator, "race", 10, time.Hour)
		h.Contribute(id, Alice, 10)
		h.Advance(time.Hour)

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.TryFinalize(id)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, crowdfund.ErrAlreadyFinalized):
				t.Fatalf("unexpected finalize error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly 1 successful finalize, got %d", wins)
		}
	})

	t.Run("concurrent_withdraw_at_most_once", func(t *testing.T) {
		h := newHarness(t)
		id := h.Create(Creator, "race", 10, time.Hour)
		h.Contribute(id, Alice, 10)
		h.Advance(time.Hour)
		h.Finalize(id)

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.TryWithdraw(id, Creator)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, crowdfund.ErrAlreadyWithdrawn):
				t.Fatalf("unexpected withdraw error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly 1 successful withdraw, got %d", wins)
		}
	})

	t.Run("concurrent_contributions_no_lost_updates", func(t *testing.T) {
		h := newHarness(t)
		id := h.Create(Creator, "crowd", 1_000_000, time.Hour)

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				who := Alice
				if i%2 == 1 {
					who = Bob
				}
				if _, err := h.TryContribute(id, who, 2); err != nil {
					t.Errorf("concurrent contribute failed: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if c := h.Campaign(id); c.Raised != 2*n {
			t.Fatalf("expected raised %d, got %d", 2*n, c.Raised)
		}
		if a, b := h.Contribution(id, Alice), h.Contribution(id, Bob); a+b != 2*n {
			t.Fatalf("contributions %d+%d do not sum to %d", a, b, 2*n)
		}
	})

	t.Run("success_round_trip", func(t *testing.T) {
		h := newHarness(t)
		id := h.Create(Creator, "round trip", 100, time.Hour)
		h.Contribute(id, Alice, 60)
		h.Contribute(id, Bob, 50)
		if c := h.Campaign(id); c.Raised != 110 {
			t.Fatalf("expected raised 110, got %d", c.Raised)
		}

		h.Advance(time.Hour + time.Minute)
		if res := h.Finalize(id); !res.Successful {
			t.Fatal("expected successful campaign")
		}
		if st := h.Campaign(id).StatusAt(h.Clock().Now()); st != types.StatusSuccessful {
			t.Fatalf("expected status Successful, got %s", st)
		}

		_, err := h.TryWithdraw(id, Alice)
		h.ExpectCode(err, types.CodeUnauthorized)
		_, err = h.TryRefund(id, Alice)
		h.ExpectCode(err, types.CodeCampaignSucceeded)

		if res := h.Withdraw(id, Creator); res.Amount != 110 {
			t.Fatalf("expected 110 paid out, got %d", res.Amount)
		}
		_, err = h.TryWithdraw(id, Creator)
		h.ExpectCode(err, types.CodeAlreadyWithdrawn)
	})

	t.Run("failure_path", func(t *testing.T) {
		h := newHarness(t)
		id := h.Create(Creator, "short", 100, time.Hour)
		h.Contribute(id, Alice, 30)

		_, err := h.TryWithdraw(id, Creator)
		h.ExpectCode(err, types.CodeNotFinalized)
		_, err = h.TryRefund(id, Alice)
		h.ExpectCode(err, types.CodeNotFinalized)

		h.Advance(2 * time.Hour)
		if res := h.Finalize(id); res.Successful {
			t.Fatal("expected failed campaign")
		}

		if res := h.Refund(id, Alice); res.Amount != 30 {
			t.Fatalf("expected 30 refunded, got %d", res.Amount)
		}
		if got := h.Contribution(id, Alice); got != 0 {
			t.Fatalf("expected contribution cleared, got %d", got)
		}
		_, err = h.TryRefund(id, Alice)
		h.ExpectCode(err, types.CodeNothingToRefund)

		_, err = h.TryWithdraw(id, Creator)
		h.ExpectCode(err, types.CodeCampaignFailed)
	})

	t.Run("deadline_boundary", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.TryCreate(Creator, "boundary", 10, time.Hour)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		h.SetTime(types.TimeToTimestamp(res.Deadline.ToTime().Add(-time.Second)))
		_, err = h.TryFinalize(res.ID)
		h.ExpectCode(err, types.CodeNotYetEnded)
		h.Contribute(res.ID, Alice, 1)

		h.SetTime(res.Deadline)
		_, err = h.TryContribute(res.ID, Alice, 1)
		h.ExpectCode(err, types.CodeCampaignEnded)
		h.Finalize(res.ID)

		_, err = h.TryFinalize(res.ID)
		h.ExpectCode(err, types.CodeAlreadyFinalized)
	})

	t.Run("faucet_overflow_leaves_balance", func(t *testing.T) {
		h := newHarness(t)
		h.Faucet(Alice, types.MaxAmount-1)

		_, err := h.TryFaucet(Alice, 2)
		h.ExpectCode(err, types.CodeOverflow)
		if got := h.Balance(Alice); got != types.MaxAmount-1 {
			t.Fatalf("balance changed after overflow: %d", got)
		}

		_, err = h.TryFaucet(Bob, 0)
		h.ExpectCode(err, types.CodeInvalidAmount)
	})

	t.Run("sequence_advances_on_success_only", func(t *testing.T) {
		h := newHarness(t)
		before := h.Info().Sequence
		id := h.Create(Creator, "seq", 10, time.Hour)
		_, _ = h.TryContribute(id, Alice, 0)
		_, _ = h.TryFinalize(id)
		if after := h.Info().Sequence; after != before+1 {
			t.Fatalf("expected sequence %d, got %d", before+1, after)
		}
	})

	t.Run("deterministic_state_hash", func(t *testing.T) {
		h1 := newHarness(t)
		h2 := newHarness(t)

		for _, h := range []*Harness{h1, h2} {
			id := h.Create(Creator, "same", 50, time.Hour)
			h.Contribute(id, Alice, 20)
			h.Contribute(id, Bob, 10)
			h.Advance(time.Hour)
			h.Finalize(id)
			h.Refund(id, Bob)
			h.Faucet(Bob, 7)
		}

		if i1, i2 := h1.Info(), h2.Info(); i1.StateHash != i2.StateHash {
			t.Fatalf("non-deterministic: %x != %x", i1.StateHash, i2.StateHash)
		}
	})

	t.Run("campaigns_paging", func(t *testing.T) {
		h := newHarness(t)
		for i := 0; i < 5; i++ {
			h.Create(Creator, "page", 10, time.Hour)
		}
		page, err := h.Ledger().Campaigns(context.Background(), 3, 2)
		if err != nil {
			t.Fatalf("campaigns: %v", err)
		}
		if len(page) != 2 || page[0].ID != 3 || page[1].ID != 4 {
			t.Fatalf("unexpected page: %+v", page)
		}
	})
}
