package types

// EventAttribute is a single key-value tag within an event.
type EventAttribute struct {
	Key   string `cramberry:"1"`
	Value string `cramberry:"2"`
	Index bool   `cramberry:"3"` // Whether indexers should pick this up.
}

// Event records one committed state change. Every mutation the
// engine applies emits exactly one event.
type Event struct {
	Kind       string           `cramberry:"1"`
	Attributes []EventAttribute `cramberry:"2"`
	// Sequence number of the mutation that produced the event.
	Sequence uint64 `cramberry:"3"`
}

// Event kinds.
const (
	EventCampaignCreated   = "campaign_created"
	EventContribution      = "contribution"
	EventCampaignFinalized = "campaign_finalized"
	EventFundsWithdrawn    = "funds_withdrawn"
	EventRefund            = "refund"
	EventFaucet            = "faucet"
	EventTransfer          = "transfer"
	EventRestored          = "restored"
)

// Attr returns the value of the first attribute with key, or "".
func (e Event) Attr(key string) string {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}
