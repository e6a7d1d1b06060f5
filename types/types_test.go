package types_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/blockberries/crowdfund/types"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// roundTrip marshals v, unmarshals into a new T, and returns it.
func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	data, err := cramberry.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out T
	if err := cramberry.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return out
}

func TestTimestamp_RoundTrip(t *testing.T) {
	ts := types.TimeToTimestamp(time.Date(2026, 6, 15, 12, 30, 45, 123456789, time.UTC))
	got := roundTrip(t, ts)
	if got != ts {
		t.Fatalf("Timestamp round-trip failed: got %+v, want %+v", got, ts)
	}
	if got.ToTime().Nanosecond() != 123456789 {
		t.Fatalf("Timestamp.ToTime nanos wrong: %d", got.ToTime().Nanosecond())
	}
}

func TestTimestamp_Before(t *testing.T) {
	a := types.Timestamp{Seconds: 10, Nanos: 5}
	b := types.Timestamp{Seconds: 10, Nanos: 6}
	c := types.Timestamp{Seconds: 11}
	if !a.Before(b) || !b.Before(c) || c.Before(a) || a.Before(a) {
		t.Fatal("Timestamp.Before ordering wrong")
	}
	if !(types.Timestamp{}).IsZero() || a.IsZero() {
		t.Fatal("Timestamp.IsZero wrong")
	}
}

func TestCampaign_EncodingIsDeterministic(t *testing.T) {
	c := types.Campaign{
		ID:       7,
		Creator:  types.TestIdentity(3),
		Title:    "solar roof",
		Goal:     1000,
		Deadline: types.Timestamp{Seconds: 1_800_000_000},
		Raised:   250,
	}
	first, err := cramberry.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := cramberry.Marshal(c)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding differs between runs")
		}
	}
	if got := roundTrip(t, c); got != c {
		t.Fatalf("Campaign round-trip failed: got %+v, want %+v", got, c)
	}
}

func TestIdentity_StringParse(t *testing.T) {
	id := types.TestIdentity(0xab)
	s := id.String()
	if len(s) != 2+2*types.IdentityLength {
		t.Fatalf("unexpected string %q", s)
	}
	got, err := types.ParseIdentity(s)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if got != id {
		t.Fatalf("got %v, want %v", got, id)
	}
	if _, err := types.ParseIdentity(s[2:]); err != nil {
		t.Fatalf("ParseIdentity without prefix: %v", err)
	}

	for _, bad := range []string{"", "0x12", s + "00", "0x" + string(bytes.Repeat([]byte("zz"), types.IdentityLength))} {
		if _, err := types.ParseIdentity(bad); err == nil {
			t.Errorf("ParseIdentity(%q): expected error", bad)
		}
	}
}

func TestIdentity_NullAndOrder(t *testing.T) {
	if !types.NullIdentity.IsNull() || types.TestIdentity(1).IsNull() {
		t.Fatal("IsNull wrong")
	}
	a, b := types.TestIdentity(1), types.TestIdentity(2)
	if !a.Less(b) || b.Less(a) || a.Less(a) {
		t.Fatal("Less ordering wrong")
	}
}

func TestCampaign_StatusAt(t *testing.T) {
	deadline := time.Unix(1000, 0)
	c := types.Campaign{Deadline: types.TimeToTimestamp(deadline)}

	if s := c.StatusAt(deadline.Add(-time.Second)); s != types.StatusActive {
		t.Fatalf("before deadline: got %v", s)
	}
	if c.Ended(deadline.Add(-time.Second)) {
		t.Fatal("campaign ended before its deadline")
	}
	// The deadline instant itself is past the contribution window.
	if s := c.StatusAt(deadline); s != types.StatusReadyToFinalize {
		t.Fatalf("at deadline: got %v", s)
	}
	if !c.Ended(deadline) {
		t.Fatal("campaign not ended at its deadline")
	}

	c.Finalized = true
	if s := c.StatusAt(deadline.Add(-time.Hour)); s != types.StatusFailed {
		t.Fatalf("finalized unsuccessful: got %v", s)
	}
	c.Successful = true
	if s := c.StatusAt(deadline); s != types.StatusSuccessful {
		t.Fatalf("finalized successful: got %v", s)
	}
	if types.Status(9).String() != "unknown(9)" {
		t.Fatalf("unexpected unknown status string %q", types.Status(9).String())
	}
}

func TestRatio_Apply(t *testing.T) {
	cases := []struct {
		ratio types.Ratio
		in    types.Amount
		want  types.Amount
		ok    bool
	}{
		{types.OneToOne, 500, 500, true},
		{types.Ratio{Numerator: 3, Denominator: 2}, 5, 7, true},
		{types.Ratio{Numerator: 1, Denominator: 3}, 2, 0, true},
		{types.Ratio{Numerator: 0, Denominator: 1}, 100, 0, true},
		{types.Ratio{Numerator: 2, Denominator: 1}, types.MaxAmount, 0, false},
		{types.Ratio{Numerator: 1, Denominator: 0}, 1, 0, false},
		// The intermediate product overflows 64 bits but the result fits.
		{types.Ratio{Numerator: 4, Denominator: 8}, types.MaxAmount, math.MaxUint64 / 2, true},
	}
	for _, tc := range cases {
		got, ok := tc.ratio.Apply(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%v.Apply(%d) = %d, %v; want %d, %v", tc.ratio, tc.in, got, ok, tc.want, tc.ok)
		}
	}
	if err := (types.Ratio{Numerator: 1}).Validate(); err == nil {
		t.Fatal("expected zero denominator to be invalid")
	}
}

func TestCode_String(t *testing.T) {
	if types.CodeOK.String() != "OK" || !types.CodeOK.OK() {
		t.Fatal("CodeOK wrong")
	}
	if types.CodeInsufficientBalance.String() != "InsufficientBalance" {
		t.Fatalf("got %q", types.CodeInsufficientBalance.String())
	}
	if types.Code(999).String() != "unknown(999)" {
		t.Fatalf("got %q", types.Code(999).String())
	}
}

func TestEvent_Attr(t *testing.T) {
	e := types.Event{
		Kind: types.EventContribution,
		Attributes: []types.EventAttribute{
			{Key: "campaign", Value: "1", Index: true},
			{Key: "amount", Value: "42"},
		},
	}
	if e.Attr("amount") != "42" || e.Attr("missing") != "" {
		t.Fatal("Attr lookup wrong")
	}
}
