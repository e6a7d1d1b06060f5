package types

// Intents are the authenticated requests a client issues against the
// ledger. Caller identities and values arrive already validated by
// the transport layer; Now is the operation's logical time.

// CreateCampaignRequest opens a new campaign.
type CreateCampaignRequest struct {
	Creator         Identity  `cramberry:"1"`
	Title           string    `cramberry:"2"`
	Goal            Amount    `cramberry:"3"`
	DurationSeconds int64     `cramberry:"4"`
	Now             Timestamp `cramberry:"5"`
}

// CreateCampaignResult reports the allocated campaign.
type CreateCampaignResult struct {
	ID       CampaignID `cramberry:"1"`
	Deadline Timestamp  `cramberry:"2"`
}

// ContributeRequest pledges Value to a campaign.
type ContributeRequest struct {
	CampaignID  CampaignID `cramberry:"1"`
	Contributor Identity   `cramberry:"2"`
	Value       Amount     `cramberry:"3"`
	Now         Timestamp  `cramberry:"4"`
}

// ContributeResult reports the effect of a contribution.
type ContributeResult struct {
	// Contributor's new cumulative total for the campaign.
	Total Amount `cramberry:"1"`
	// Campaign's new raised amount.
	Raised Amount `cramberry:"2"`
	// Reward tokens minted to the contributor.
	Reward Amount `cramberry:"3"`
}

// FinalizeRequest decides a campaign after its deadline.
type FinalizeRequest struct {
	CampaignID CampaignID `cramberry:"1"`
	Now        Timestamp  `cramberry:"2"`
}

// FinalizeResult reports the decision.
type FinalizeResult struct {
	Successful bool   `cramberry:"1"`
	Raised     Amount `cramberry:"2"`
}

// WithdrawRequest releases a successful campaign's funds to its creator.
type WithdrawRequest struct {
	CampaignID CampaignID `cramberry:"1"`
	Caller     Identity   `cramberry:"2"`
	Now        Timestamp  `cramberry:"3"`
}

// WithdrawResult reports the amount paid out.
type WithdrawResult struct {
	Amount Amount `cramberry:"1"`
}

// RefundRequest returns a contributor's funds from a failed campaign.
type RefundRequest struct {
	CampaignID  CampaignID `cramberry:"1"`
	Contributor Identity   `cramberry:"2"`
	Now         Timestamp  `cramberry:"3"`
}

// RefundResult reports the amount returned.
type RefundResult struct {
	Amount Amount `cramberry:"1"`
}

// FaucetRequest mints test tokens unconditionally.
type FaucetRequest struct {
	Recipient Identity `cramberry:"1"`
	Amount    Amount   `cramberry:"2"`
}

// FaucetResult reports the recipient's new balance.
type FaucetResult struct {
	Balance Amount `cramberry:"1"`
}

// TransferRequest moves tokens between identities.
type TransferRequest struct {
	From   Identity `cramberry:"1"`
	To     Identity `cramberry:"2"`
	Amount Amount   `cramberry:"3"`
}

// TransferResult reports both balances after the transfer.
type TransferResult struct {
	FromBalance Amount `cramberry:"1"`
	ToBalance   Amount `cramberry:"2"`
}

// LedgerInfo summarizes the ledger for clients.
type LedgerInfo struct {
	CampaignCount uint64 `cramberry:"1"`
	// Number of mutations applied since genesis.
	Sequence    uint64    `cramberry:"2"`
	StateHash   StateHash `cramberry:"3"`
	RewardRate  Ratio     `cramberry:"4"`
	TotalSupply Amount    `cramberry:"5"`
	// Whether the Snapshotter capability is available.
	Snapshots bool `cramberry:"6"`
}
