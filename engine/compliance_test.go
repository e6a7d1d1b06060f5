package engine_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/engine"
	"github.com/blockberries/crowdfund/server"
	crowdfundtest "github.com/blockberries/crowdfund/testing"
	"github.com/blockberries/crowdfund/types"
)

func TestEngineCompliance(t *testing.T) {
	crowdfundtest.RunComplianceSuite(t, func(t *testing.T, _ server.Clock) crowdfund.Ledger {
		e, err := engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		return e
	})
}

func TestEngineCompliance_FractionalReward(t *testing.T) {
	crowdfundtest.RunComplianceSuite(t, func(t *testing.T, _ server.Clock) crowdfund.Ledger {
		e, err := engine.New(
			engine.WithRewardRate(types.Ratio{Numerator: 1, Denominator: 3}),
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		)
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		return e
	})
}
