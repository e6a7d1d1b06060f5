package engine

import (
	"fmt"
	"time"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"
)

// phase is a campaign's position in the lifecycle state machine.
//
//	Active ──deadline──▶ Expired ──finalize──▶ Successful ──withdraw──▶ Withdrawn
//	                                      └──▶ Failed (each contributor: refundable → refunded)
type phase uint8

const (
	// phaseActive: before the deadline. Accepts contributions.
	phaseActive phase = iota
	// phaseExpired: deadline reached, not yet finalized. Finalize is
	// the only valid transition.
	phaseExpired
	// phaseSuccessful: finalized with Raised >= Goal. Waiting for the
	// creator to withdraw.
	phaseSuccessful
	// phaseFailed: finalized with Raised < Goal. Contributors refund
	// independently.
	phaseFailed
	// phaseWithdrawn: terminal.
	phaseWithdrawn
)

func (p phase) String() string {
	switch p {
	case phaseActive:
		return "Active"
	case phaseExpired:
		return "Expired"
	case phaseSuccessful:
		return "Successful"
	case phaseFailed:
		return "Failed"
	case phaseWithdrawn:
		return "Withdrawn"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

func phaseOf(c types.Campaign, now time.Time) phase {
	switch {
	case c.Withdrawn:
		return phaseWithdrawn
	case c.Finalized && c.Successful:
		return phaseSuccessful
	case c.Finalized:
		return phaseFailed
	case now.Before(c.Deadline.ToTime()):
		return phaseActive
	default:
		return phaseExpired
	}
}

// Guards check whether a transition is allowed from the campaign's
// current phase. They are evaluated in the order the errors are
// documented on crowdfund.Ledger, after the campaign lookup.

func guardContribute(c types.Campaign, now time.Time) error {
	if p := phaseOf(c, now); p != phaseActive {
		return crowdfund.NewError(types.CodeCampaignEnded, "campaign %d is %s", c.ID, p)
	}
	return nil
}

func guardFinalize(c types.Campaign, now time.Time) error {
	if c.Finalized {
		return crowdfund.NewError(types.CodeAlreadyFinalized, "campaign %d", c.ID)
	}
	if phaseOf(c, now) == phaseActive {
		return crowdfund.NewError(types.CodeNotYetEnded, "campaign %d ends at %s", c.ID, c.Deadline.ToTime().Format(time.RFC3339))
	}
	return nil
}

func guardWithdraw(c types.Campaign, caller types.Identity) error {
	if caller != c.Creator {
		return crowdfund.NewError(types.CodeUnauthorized, "%s is not the creator of campaign %d", caller, c.ID)
	}
	switch phaseOf(c, time.Time{}) {
	case phaseSuccessful:
		return nil
	case phaseFailed:
		return crowdfund.NewError(types.CodeCampaignFailed, "campaign %d", c.ID)
	case phaseWithdrawn:
		return crowdfund.NewError(types.CodeAlreadyWithdrawn, "campaign %d", c.ID)
	default:
		return crowdfund.NewError(types.CodeNotFinalized, "campaign %d", c.ID)
	}
}

func guardRefund(c types.Campaign) error {
	switch phaseOf(c, time.Time{}) {
	case phaseFailed:
		return nil
	case phaseSuccessful, phaseWithdrawn:
		return crowdfund.NewError(types.CodeCampaignSucceeded, "campaign %d", c.ID)
	default:
		return crowdfund.NewError(types.CodeNotFinalized, "campaign %d", c.ID)
	}
}
