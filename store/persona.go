package store

// Persona is the character card attached to a session. One persona per
// session; updates replace the previous text and its derived chunks.
type Persona struct {
	SessionID string
	Content   string
	UpdatedTs int64
}

// PersonaChunk is an overlapping window of the persona text, indexed
// independently for retrieval. Offset is the start position of the chunk
// in the persona text, in bytes.
type PersonaChunk struct {
	SessionID string
	Seq       int
	Offset    int
	Content   string
	Embedding []float32
}

// UpsertPersona replaces the persona and its derived chunks atomically.
type UpsertPersona struct {
	SessionID string
	Content   string
	Chunks    []*PersonaChunk
}
