// Package test provides a throwaway store for package tests.
package test

import (
	"context"
	"testing"

	"github.com/animus-chat/animus/internal/profile"
	"github.com/animus-chat/animus/store"
	"github.com/animus-chat/animus/store/db/sqlite"
)

// NewTestingStore returns a store backed by per-session sqlite files in a
// temporary directory that is removed when the test finishes.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := profile.Default()
	p.Data = t.TempDir()

	driver, err := sqlite.NewDB(p)
	if err != nil {
		t.Fatalf("failed to create sqlite driver: %v", err)
	}

	ts := store.New(driver, p)
	t.Cleanup(func() {
		_ = ts.Close()
	})
	return ts
}
