package campaign

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"
)

var now = time.Unix(1_700_000_000, 500).UTC()

func TestStore_CreateAssignsSequentialIDs(t *testing.T) {
	s := New()
	creator := types.TestIdentity(1)

	for want := types.CampaignID(1); want <= 3; want++ {
		c, err := s.Create(creator, "school roof", 100, 3600, now)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if c.ID != want {
			t.Fatalf("expected id %d, got %d", want, c.ID)
		}
	}
	if s.Count() != 3 {
		t.Errorf("expected count 3, got %d", s.Count())
	}
}

func TestStore_CreateFields(t *testing.T) {
	s := New()
	c, err := s.Create(types.TestIdentity(1), "library", 500, 60, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "library" || got.Goal != 500 {
		t.Errorf("unexpected campaign: %+v", got)
	}
	if got.Raised != 0 || got.Finalized || got.Withdrawn {
		t.Errorf("expected a fresh campaign, got %+v", got)
	}
	if want := now.Add(60 * time.Second); !got.Deadline.ToTime().Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, got.Deadline.ToTime())
	}
}

func TestStore_CreateRejectsWithoutConsumingID(t *testing.T) {
	s := New()
	creator := types.TestIdentity(1)

	cases := map[string]func() error{
		"empty title": func() error {
			_, err := s.Create(creator, "   \t", 100, 60, now)
			return err
		},
		"invalid utf8": func() error {
			_, err := s.Create(creator, "bad\xff", 100, 60, now)
			return err
		},
		"zero goal": func() error {
			_, err := s.Create(creator, "t", 0, 60, now)
			return err
		},
		"zero duration": func() error {
			_, err := s.Create(creator, "t", 1, 0, now)
			return err
		},
		"negative duration": func() error {
			_, err := s.Create(creator, "t", 1, -5, now)
			return err
		},
		"null creator": func() error {
			_, err := s.Create(types.NullIdentity, "t", 1, 60, now)
			return err
		},
		"deadline overflow": func() error {
			_, err := s.Create(creator, "t", 1, math.MaxInt64, now)
			return err
		},
	}
	for name, create := range cases {
		t.Run(name, func(t *testing.T) {
			if err := create(); !errors.Is(err, crowdfund.ErrInvalidInput) {
				t.Fatalf("expected InvalidInput, got %v", err)
			}
		})
	}

	if s.Count() != 0 {
		t.Fatalf("failed creations consumed ids: count %d", s.Count())
	}
	c, err := s.Create(creator, "first", 1, 60, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID != 1 {
		t.Fatalf("expected id 1 after failures, got %d", c.ID)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := New()
	_, _ = s.Create(types.TestIdentity(1), "t", 1, 60, now)

	for _, id := range []types.CampaignID{0, 2, math.MaxUint64} {
		if _, err := s.Get(id); !errors.Is(err, crowdfund.ErrNotFound) {
			t.Errorf("id %d: expected NotFound, got %v", id, err)
		}
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New()
	c, _ := s.Create(types.TestIdentity(1), "t", 1, 60, now)

	got, _ := s.Get(c.ID)
	got.Raised = 1000

	again, _ := s.Get(c.ID)
	if again.Raised != 0 {
		t.Fatal("mutating a returned campaign changed the store")
	}
}

func TestStore_Put(t *testing.T) {
	s := New()
	c, _ := s.Create(types.TestIdentity(1), "t", 1, 60, now)

	c.Raised = 7
	if err := s.Put(c); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _ := s.Get(c.ID)
	if got.Raised != 7 {
		t.Errorf("expected raised 7, got %d", got.Raised)
	}

	c.Creator = types.TestIdentity(2)
	if err := s.Put(c); err == nil {
		t.Fatal("expected error changing the creator")
	}

	if err := s.Put(types.Campaign{ID: 9}); !errors.Is(err, crowdfund.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		_, _ = s.Create(types.TestIdentity(1), "t", 1, 60, now)
	}

	page := s.List(0, 2)
	if len(page) != 2 || page[0].ID != 1 || page[1].ID != 2 {
		t.Fatalf("unexpected first page: %+v", page)
	}

	page = s.List(4, 10)
	if len(page) != 2 || page[0].ID != 4 || page[1].ID != 5 {
		t.Fatalf("unexpected last page: %+v", page)
	}

	if page := s.List(6, 10); len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(page))
	}
	if page := s.List(1, 0); len(page) != 0 {
		t.Fatalf("expected empty page for zero limit, got %d", len(page))
	}
}

func TestRestore(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		_, _ = s.Create(types.TestIdentity(1), "t", 1, 60, now)
	}

	restored, err := Restore(s.Records())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Count() != 3 {
		t.Fatalf("expected count 3, got %d", restored.Count())
	}
	c, err := restored.Create(types.TestIdentity(1), "t", 1, 60, now)
	if err != nil {
		t.Fatalf("create after restore: %v", err)
	}
	if c.ID != 4 {
		t.Fatalf("expected id 4, got %d", c.ID)
	}
}

func TestRestore_Rejects(t *testing.T) {
	valid := types.Campaign{ID: 1, Creator: types.TestIdentity(1), Title: "t", Goal: 1}

	gap := valid
	gap.ID = 2

	withdrawnFailed := valid
	withdrawnFailed.Finalized = true
	withdrawnFailed.Withdrawn = true

	successfulOpen := valid
	successfulOpen.Successful = true

	noTitle := valid
	noTitle.Title = ""

	cases := map[string][]types.Campaign{
		"gap":              {gap},
		"withdrawn failed": {withdrawnFailed},
		"successful open":  {successfulOpen},
		"no title":         {noTitle},
	}
	for name, records := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Restore(records); !errors.Is(err, crowdfund.ErrInvalidInput) {
				t.Fatalf("expected InvalidInput, got %v", err)
			}
		})
	}
}
