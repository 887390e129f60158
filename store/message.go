package store

// Role is the conversational role of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one durable conversation turn. Messages are immutable after
// creation; Seq is the per-session monotonic sequence id starting at 0.
type Message struct {
	Seq       int64
	SessionID string
	Role      Role
	Content   string
	// Embedding is nil when the encoder was unavailable at store time.
	// Such messages are excluded from semantic search but remain
	// retrievable by range.
	Embedding  []float32
	Emotion    string
	Importance float64
	CreatedTs  int64
}

// Embedded reports whether the message carries a vector.
func (m *Message) Embedded() bool {
	return len(m.Embedding) > 0
}

// CreateMessage carries the fields for a durable append. Seq and CreatedTs
// are assigned by the driver.
type CreateMessage struct {
	SessionID  string
	Role       Role
	Content    string
	Embedding  []float32
	Emotion    string
	Importance float64
}
