package testutil

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/roach88/blogsol/internal/address"
	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
	"github.com/roach88/blogsol/internal/store"
)

// ProgramID is the program id fixtures derive addresses under.
var ProgramID = ir.MustPubkey(config.DefaultProgramID)

// SilentLogger returns a logger that discards everything.
func SilentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// OpenStore opens a store in t.TempDir and closes it at cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// NewProgram builds a Program over s with the given post id width.
func NewProgram(t testing.TB, s *store.Store, idWidth int) *program.Program {
	t.Helper()
	d, err := address.NewDeriver(ProgramID, idWidth)
	if err != nil {
		t.Fatalf("new deriver: %v", err)
	}
	return program.New(s, d, program.WithLogger(SilentLogger()))
}

// Fund credits lamports to who directly in the store, outside the ledger.
func Fund(t testing.TB, s *store.Store, who ir.Pubkey, lamports uint64) {
	t.Helper()
	ctx := context.Background()
	err := s.Atomic(ctx, func(tx *store.Tx) error {
		return tx.Credit(ctx, who, lamports)
	})
	if err != nil {
		t.Fatalf("fund %s: %v", who, err)
	}
}
