package store

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/roach88/blogsol/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
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

// testKey returns a stable 32-byte key for a label. It does not need to be
// a valid curve point for store tests.
func testKey(label string) ir.Pubkey {
	return ir.Pubkey(sha256.Sum256([]byte(label)))
}

// fund credits lamports to identity in its own transaction.
func fund(t *testing.T, s *Store, identity ir.Pubkey, lamports uint64) {
	t.Helper()
	err := s.Atomic(context.Background(), func(tx *Tx) error {
		return tx.Credit(context.Background(), identity, lamports)
	})
	if err != nil {
		t.Fatalf("fund %s: %v", identity, err)
	}
}
