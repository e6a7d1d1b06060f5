package types

import (
	"fmt"
	"time"
)

// Campaign is a fundraising goal with a deadline, created by one
// identity and funded by many.
type Campaign struct {
	ID       CampaignID `cramberry:"1"`
	Creator  Identity   `cramberry:"2"`
	Title    string     `cramberry:"3"`
	Goal     Amount     `cramberry:"4"`
	Deadline Timestamp  `cramberry:"5"`
	// Sum of all contributions. Only refunds of a failed campaign
	// make it exceed the sum of live contribution records.
	Raised Amount `cramberry:"6"`
	// Set exactly once, by the first successful finalization.
	Finalized bool `cramberry:"7"`
	// Raised >= Goal at finalization. Meaningless until Finalized.
	Successful bool `cramberry:"8"`
	// Set exactly once, when the creator withdraws a successful campaign.
	Withdrawn bool `cramberry:"9"`
}

// Ended reports whether the campaign no longer accepts contributions
// at now. The deadline itself is inclusive for ending.
func (c Campaign) Ended(now time.Time) bool {
	return c.Finalized || !now.Before(c.Deadline.ToTime())
}

// StatusAt derives the display status at now. It is never stored.
func (c Campaign) StatusAt(now time.Time) Status {
	switch {
	case c.Finalized && c.Successful:
		return StatusSuccessful
	case c.Finalized:
		return StatusFailed
	case now.Before(c.Deadline.ToTime()):
		return StatusActive
	default:
		return StatusReadyToFinalize
	}
}

// Status is the derived, display-only state of a campaign.
type Status uint8

const (
	StatusActive          Status = 1
	StatusReadyToFinalize Status = 2
	StatusSuccessful      Status = 3
	StatusFailed          Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusReadyToFinalize:
		return "ReadyToFinalize"
	case StatusSuccessful:
		return "Successful"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}
