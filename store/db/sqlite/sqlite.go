package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/animus-chat/animus/internal/profile"
)

// DB implements store.Driver on top of one sqlite database file per
// session key. Partitioning by session keeps appends for different
// sessions fully parallel; within a session, writes are serialized by a
// single connection so sequence assignment stays race-free.
type DB struct {
	profile *profile.Profile

	mu    sync.Mutex
	conns map[string]*sql.DB
}

// NewDB opens a new DB instance rooted at the profile's data directory.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if err := os.MkdirAll(profile.Data, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %q", profile.Data)
	}
	return &DB{
		profile: profile,
		conns:   make(map[string]*sql.DB),
	}, nil
}

// conn returns the database for the session, opening and migrating it on
// first use.
func (d *DB) conn(ctx context.Context, sessionID string) (*sql.DB, error) {
	if sessionID == "" {
		return nil, errors.New("session id is empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if db, ok := d.conns[sessionID]; ok {
		return db, nil
	}

	path := filepath.Join(d.profile.Data, encodeSessionID(sessionID)+".db")
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(10000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open session database %q", path)
	}
	// One connection per session file: serializes writes within the
	// session, which per-session sequential consistency requires anyway.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to migrate session database %q", path)
	}

	d.conns[sessionID] = db
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS message (
	seq INTEGER PRIMARY KEY,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding BLOB,
	emotion TEXT NOT NULL DEFAULT 'neutral',
	importance REAL NOT NULL DEFAULT 0.5,
	created_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS persona (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	content TEXT NOT NULL,
	updated_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS persona_chunk (
	seq INTEGER PRIMARY KEY,
	start_offset INTEGER NOT NULL,
	content TEXT NOT NULL,
	embedding BLOB
);

CREATE TABLE IF NOT EXISTS summary (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	start_seq INTEGER NOT NULL,
	end_seq INTEGER NOT NULL,
	created_ts INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_summary_end_seq ON summary (end_seq);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// ListSessions enumerates session keys by scanning the data directory.
func (d *DB) ListSessions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.profile.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read data directory %q", d.profile.Data)
	}

	sessions := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".db") {
			continue
		}
		sessionID, err := decodeSessionID(strings.TrimSuffix(name, ".db"))
		if err != nil {
			continue
		}
		sessions = append(sessions, sessionID)
	}
	return sessions, nil
}

// Ping verifies the storage substrate is reachable and writable.
func (d *DB) Ping(ctx context.Context) error {
	info, err := os.Stat(d.profile.Data)
	if err != nil {
		return errors.Wrapf(err, "data directory %q is unreachable", d.profile.Data)
	}
	if !info.IsDir() {
		return errors.Errorf("data path %q is not a directory", d.profile.Data)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for sessionID, db := range d.conns {
		if err := db.PingContext(ctx); err != nil {
			return errors.Wrapf(err, "session %q database is unreachable", sessionID)
		}
	}
	return nil
}

// Close closes every open session database.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for sessionID, db := range d.conns {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close session %q database", sessionID)
		}
		delete(d.conns, sessionID)
	}
	return firstErr
}

// encodeSessionID maps an opaque caller-supplied session id to a safe
// file name. Alphanumerics, '-' and '_' pass through; every other byte
// becomes %XX. The mapping is reversible so ListSessions can report the
// original ids.
func encodeSessionID(sessionID string) string {
	var b strings.Builder
	for i := 0; i < len(sessionID); i++ {
		c := sessionID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02x", c)
		}
	}
	return b.String()
}

func decodeSessionID(name string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] != '%' {
			b.WriteByte(name[i])
			continue
		}
		if i+2 >= len(name) {
			return "", errors.Errorf("truncated escape in session file name %q", name)
		}
		v, err := strconv.ParseUint(name[i+1:i+3], 16, 8)
		if err != nil {
			return "", errors.Wrapf(err, "bad escape in session file name %q", name)
		}
		b.WriteByte(byte(v))
		i += 2
	}
	return b.String(), nil
}
