package types

// Snapshot is the complete, crash-consistent ledger state. Slices are
// kept sorted so that equal states always encode to equal bytes.
type Snapshot struct {
	Format   uint32 `cramberry:"1"`
	Sequence uint64 `cramberry:"2"`
	// Ordered by ID; IDs are dense from 1.
	Campaigns []Campaign `cramberry:"3"`
	// Ordered by campaign then contributor. Zero entries are omitted.
	Contributions []ContributionRecord `cramberry:"4"`
	// Ordered by owner. Zero balances are omitted.
	Balances []BalanceRecord `cramberry:"5"`
}

// ContributionRecord is one contributor's cumulative amount for one
// campaign.
type ContributionRecord struct {
	CampaignID  CampaignID `cramberry:"1"`
	Contributor Identity   `cramberry:"2"`
	Amount      Amount     `cramberry:"3"`
}

// BalanceRecord is one identity's token balance.
type BalanceRecord struct {
	Owner  Identity `cramberry:"1"`
	Amount Amount   `cramberry:"2"`
}

// SnapshotDescriptor describes an exported snapshot.
type SnapshotDescriptor struct {
	Sequence uint64 `cramberry:"1"`
	Format   uint32 `cramberry:"2"`
	// Total number of chunks (for progress reporting).
	Chunks uint32 `cramberry:"3"`
	// Hash of the full encoded snapshot (for integrity verification).
	Hash Hash `cramberry:"4"`
}

// SnapshotChunk is a single piece of a snapshot.
type SnapshotChunk struct {
	Index uint32 `cramberry:"1"`
	Data  []byte `cramberry:"2"`
}

// ImportStatus describes the outcome of a snapshot import.
type ImportStatus uint8

const (
	// ImportOK means the snapshot was applied successfully.
	ImportOK ImportStatus = 1
	// ImportReject means the snapshot was rejected; try a different one.
	ImportReject ImportStatus = 2
	// ImportRetryChunks means some chunks were missing;
	// request these indices again.
	ImportRetryChunks ImportStatus = 3
)

// ImportResult is the outcome of importing a snapshot.
type ImportResult struct {
	Status ImportStatus `cramberry:"1"`
	// Set when Status is ImportOK.
	StateHash *StateHash `cramberry:"2"`
	// Set when Status is ImportReject.
	Reason string `cramberry:"3"`
	// Set when Status is ImportRetryChunks.
	RetryIndices []uint32 `cramberry:"4"`
}
