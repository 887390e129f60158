package store

// Summary condenses the contiguous message range [StartSeq, EndSeq) into
// text. Ranges for one session never overlap: each new summary must start
// exactly where the previous one ended.
type Summary struct {
	ID        int64
	SessionID string
	Content   string
	StartSeq  int64
	EndSeq    int64
	CreatedTs int64
}

// CreateSummary records a summary covering [StartSeq, EndSeq).
type CreateSummary struct {
	SessionID string
	Content   string
	StartSeq  int64
	EndSeq    int64
}
