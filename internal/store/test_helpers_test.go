package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/filterspec/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createSeededStore creates a store holding the fixture people.
func createSeededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if err := testutil.Seed(context.Background(), s, testutil.People()); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return s
}
