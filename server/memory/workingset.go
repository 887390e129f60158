// Package memory holds the per-session recency buffer. It is a
// non-authoritative projection of the persistent store: losing it only
// costs a reload of the most recent messages.
package memory

import (
	"sync"

	"github.com/animus-chat/animus/store"
)

// WorkingSet keeps the most recent N messages per session in a fixed
// ring. Push and evict are O(1); Snapshot is O(N) and never touches
// storage.
type WorkingSet struct {
	capacity int

	mu       sync.RWMutex
	sessions map[string]*ring
}

// New creates a working set with the given per-session capacity.
func New(capacity int) *WorkingSet {
	if capacity <= 0 {
		capacity = 20
	}
	return &WorkingSet{
		capacity: capacity,
		sessions: make(map[string]*ring),
	}
}

// Capacity returns the per-session message limit.
func (w *WorkingSet) Capacity() int {
	return w.capacity
}

// Has reports whether the session has been seeded or pushed to since
// process start. A false return means the cache must be rebuilt from the
// store before first use.
func (w *WorkingSet) Has(sessionID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.sessions[sessionID]
	return ok
}

// Seed installs the session's buffer from storage. Only the newest
// capacity messages are kept. Seeding an already-present session is a
// no-op so a concurrent Push cannot be lost.
func (w *WorkingSet) Seed(sessionID string, messages []*store.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.sessions[sessionID]; ok {
		return
	}
	r := newRing(w.capacity)
	for _, m := range messages {
		r.push(m)
	}
	w.sessions[sessionID] = r
}

// Push appends the message, evicting the oldest entry when full.
func (w *WorkingSet) Push(sessionID string, message *store.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.sessions[sessionID]
	if !ok {
		r = newRing(w.capacity)
		w.sessions[sessionID] = r
	}
	r.push(message)
}

// Snapshot returns the session's messages ordered oldest to newest.
func (w *WorkingSet) Snapshot(sessionID string) []*store.Message {
	w.mu.RLock()
	defer w.mu.RUnlock()

	r, ok := w.sessions[sessionID]
	if !ok {
		return nil
	}
	return r.snapshot()
}

// Len returns the number of buffered messages for the session.
func (w *WorkingSet) Len(sessionID string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	r, ok := w.sessions[sessionID]
	if !ok {
		return 0
	}
	return r.size
}

// ActiveSessions returns how many sessions currently hold a buffer.
func (w *WorkingSet) ActiveSessions() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sessions)
}

// ring is a fixed-capacity FIFO over message pointers.
type ring struct {
	buf  []*store.Message
	head int // index of the oldest entry
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]*store.Message, capacity)}
}

func (r *ring) push(m *store.Message) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = m
		r.size++
		return
	}
	// Full: overwrite the oldest slot and advance.
	r.buf[r.head] = m
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) snapshot() []*store.Message {
	out := make([]*store.Message, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}
