// Package contribution tracks the cumulative amount each contributor
// has pledged to each campaign.
//
// A Tracker is not safe for concurrent use; the engine serializes all
// access to it.
package contribution

import (
	"sort"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"
)

type key struct {
	campaign    types.CampaignID
	contributor types.Identity
}

// Tracker maps (campaign, contributor) pairs to cumulative amounts.
// Absent entries read as zero and zero entries are never stored.
type Tracker struct {
	entries map[key]types.Amount
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[key]types.Amount)}
}

// Restore rebuilds a tracker from snapshot records.
func Restore(records []types.ContributionRecord) (*Tracker, error) {
	t := New()
	for _, r := range records {
		if r.CampaignID == 0 {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "contribution to campaign 0")
		}
		if r.Contributor.IsNull() {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "contribution from null identity to campaign %d", r.CampaignID)
		}
		k := key{r.CampaignID, r.Contributor}
		if _, dup := t.entries[k]; dup {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "duplicate contribution %s to campaign %d", r.Contributor, r.CampaignID)
		}
		if _, err := t.Record(r.CampaignID, r.Contributor, r.Amount); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Get returns the contributor's cumulative amount, 0 if none.
func (t *Tracker) Get(id types.CampaignID, contributor types.Identity) types.Amount {
	return t.entries[key{id, contributor}]
}

// CheckRecord reports the error Record would return, without applying it.
func (t *Tracker) CheckRecord(id types.CampaignID, contributor types.Identity, amount types.Amount) error {
	if amount == 0 {
		return crowdfund.NewError(types.CodeInvalidAmount, "contribution must be positive")
	}
	if cur := t.entries[key{id, contributor}]; cur > types.MaxAmount-amount {
		return crowdfund.NewError(types.CodeOverflow, "contribution total of %s to campaign %d overflows", contributor, id)
	}
	return nil
}

// Record adds amount to the contributor's total and returns the new
// total. On error nothing changes.
func (t *Tracker) Record(id types.CampaignID, contributor types.Identity, amount types.Amount) (types.Amount, error) {
	if err := t.CheckRecord(id, contributor, amount); err != nil {
		return t.Get(id, contributor), err
	}
	k := key{id, contributor}
	t.entries[k] += amount
	return t.entries[k], nil
}

// Clear zeroes the contributor's entry and returns the amount that
// was zeroed. Repeated calls return 0.
func (t *Tracker) Clear(id types.CampaignID, contributor types.Identity) types.Amount {
	k := key{id, contributor}
	prev := t.entries[k]
	delete(t.entries, k)
	return prev
}

// Total returns the sum of live entries for a campaign. ok is false if
// the sum does not fit in an Amount.
func (t *Tracker) Total(id types.CampaignID) (total types.Amount, ok bool) {
	for k, amt := range t.entries {
		if k.campaign != id {
			continue
		}
		if total > types.MaxAmount-amt {
			return 0, false
		}
		total += amt
	}
	return total, true
}

// Records returns all live entries ordered by campaign, then contributor.
func (t *Tracker) Records() []types.ContributionRecord {
	out := make([]types.ContributionRecord, 0, len(t.entries))
	for k, amt := range t.entries {
		out = append(out, types.ContributionRecord{
			CampaignID:  k.campaign,
			Contributor: k.contributor,
			Amount:      amt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CampaignID != out[j].CampaignID {
			return out[i].CampaignID < out[j].CampaignID
		}
		return out[i].Contributor.Less(out[j].Contributor)
	})
	return out
}
