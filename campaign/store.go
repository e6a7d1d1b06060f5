// Package campaign stores campaign records and allocates their IDs.
//
// A Store is not safe for concurrent use; the engine serializes all
// access to it, which also makes ID allocation atomic.
package campaign

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"
)

// Store holds campaigns densely: the campaign with ID n lives at
// index n-1.
type Store struct {
	records []types.Campaign
}

// New creates an empty store. The first campaign gets ID 1.
func New() *Store {
	return &Store{}
}

// Restore rebuilds a store from snapshot records, which must be
// ordered by ID and dense from 1.
func Restore(records []types.Campaign) (*Store, error) {
	s := &Store{records: make([]types.Campaign, 0, len(records))}
	for i, c := range records {
		if want := types.CampaignID(i + 1); c.ID != want {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "campaign at position %d has id %d, want %d", i, c.ID, want)
		}
		if err := validateFields(c.Creator, c.Title, c.Goal); err != nil {
			return nil, err
		}
		if c.Withdrawn && !(c.Finalized && c.Successful) {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "campaign %d withdrawn without succeeding", c.ID)
		}
		if c.Successful && !c.Finalized {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "campaign %d successful before finalization", c.ID)
		}
		s.records = append(s.records, c)
	}
	return s, nil
}

// CheckCreate reports the error Create would return, without applying it.
func (s *Store) CheckCreate(creator types.Identity, title string, goal types.Amount, durationSeconds int64, now time.Time) error {
	if err := validateFields(creator, title, goal); err != nil {
		return err
	}
	if durationSeconds <= 0 {
		return crowdfund.NewError(types.CodeInvalidInput, "duration must be positive, got %d", durationSeconds)
	}
	if durationSeconds > math.MaxInt64-now.Unix() {
		return crowdfund.NewError(types.CodeInvalidInput, "deadline overflows")
	}
	if uint64(len(s.records)) == math.MaxUint64 {
		return crowdfund.NewError(types.CodeOverflow, "campaign ids exhausted")
	}
	return nil
}

// Create validates and stores a new campaign ending durationSeconds
// after now. Failed creations never consume an ID.
func (s *Store) Create(creator types.Identity, title string, goal types.Amount, durationSeconds int64, now time.Time) (types.Campaign, error) {
	if err := s.CheckCreate(creator, title, goal, durationSeconds, now); err != nil {
		return types.Campaign{}, err
	}
	c := types.Campaign{
		ID:      types.CampaignID(len(s.records) + 1),
		Creator: creator,
		Title:   title,
		Goal:    goal,
		Deadline: types.Timestamp{
			Seconds: now.Unix() + durationSeconds,
			Nanos:   int32(now.Nanosecond()),
		},
	}
	s.records = append(s.records, c)
	return c, nil
}

func validateFields(creator types.Identity, title string, goal types.Amount) error {
	if creator.IsNull() {
		return crowdfund.NewError(types.CodeInvalidInput, "creator is the null identity")
	}
	if !utf8.ValidString(title) {
		return crowdfund.NewError(types.CodeInvalidInput, "title is not valid UTF-8")
	}
	if strings.TrimSpace(title) == "" {
		return crowdfund.NewError(types.CodeInvalidInput, "title is empty")
	}
	if goal == 0 {
		return crowdfund.NewError(types.CodeInvalidInput, "goal must be positive")
	}
	return nil
}

// Get returns a copy of the campaign with the given ID.
func (s *Store) Get(id types.CampaignID) (types.Campaign, error) {
	if id == 0 || uint64(id) > uint64(len(s.records)) {
		return types.Campaign{}, crowdfund.NewError(types.CodeNotFound, "campaign %d", id)
	}
	return s.records[id-1], nil
}

// Put replaces an existing campaign. ID and Creator are immutable.
func (s *Store) Put(c types.Campaign) error {
	old, err := s.Get(c.ID)
	if err != nil {
		return err
	}
	if old.Creator != c.Creator {
		return crowdfund.NewError(types.CodeInternal, "campaign %d: creator is immutable", c.ID)
	}
	s.records[c.ID-1] = c
	return nil
}

// Count returns the highest assigned ID, which is also the number of
// campaigns.
func (s *Store) Count() uint64 {
	return uint64(len(s.records))
}

// List returns up to limit campaigns in ID order starting at start.
// A start below 1 is treated as 1; a zero limit returns nothing.
func (s *Store) List(start types.CampaignID, limit uint32) []types.Campaign {
	if start == 0 {
		start = 1
	}
	if limit == 0 || uint64(start) > uint64(len(s.records)) {
		return nil
	}
	from := uint64(start - 1)
	to := uint64(len(s.records))
	if uint64(limit) < to-from {
		to = from + uint64(limit)
	}
	out := make([]types.Campaign, to-from)
	copy(out, s.records[from:to])
	return out
}

// Records returns a copy of every campaign in ID order.
func (s *Store) Records() []types.Campaign {
	out := make([]types.Campaign, len(s.records))
	copy(out, s.records)
	return out
}
