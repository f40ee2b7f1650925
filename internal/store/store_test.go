package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/blogsol/internal/ir"
)

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogsol.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.DB() == nil {
		t.Fatal("DB() returned nil")
	}
	if err := s.DB().Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestOpen_StatePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blogsol.db")
	alice := testKey("alice")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	fund(t, s1, alice, 1_000)
	if err := s1.AppendEntry(ctx, Entry{Seq: 1, Kind: EntryAirdrop, Body: "{}", Outcome: ir.OutcomeSuccess}); err != nil {
		t.Fatalf("AppendEntry() failed: %v", err)
	}
	digest, err := s1.StateDigest(ctx)
	if err != nil {
		t.Fatalf("StateDigest() failed: %v", err)
	}
	s1.Close()

	// Reopening applies the schema again without touching existing rows.
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("reopen %d failed: %v", i, err)
		}
		s.Close()
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s2.Close()

	balance, err := s2.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance() failed: %v", err)
	}
	if balance != 1_000 {
		t.Errorf("balance = %d, want 1000", balance)
	}
	last, err := s2.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 1 {
		t.Errorf("LastSeq() = %d, want 1", last)
	}
	again, err := s2.StateDigest(ctx)
	if err != nil {
		t.Fatalf("StateDigest() failed: %v", err)
	}
	if again != digest {
		t.Errorf("digest changed across reopen: %s != %s", again, digest)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/blogsol.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose(t *testing.T) {
	if err := (&Store{}).Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}

	s, err := Open(filepath.Join(t.TempDir(), "blogsol.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	_ = s.Close()
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Schema table tests

func TestSchema_SlotsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "slots")
	expected := []string{
		"address", "owner", "space", "lamports", "data", "created_seq", "updated_seq",
	}
	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("slots table missing column %q", col)
		}
	}
}

func TestSchema_BalancesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "balances")
	for _, col := range []string{"identity", "lamports"} {
		if !contains(columns, col) {
			t.Errorf("balances table missing column %q", col)
		}
	}
}

func TestSchema_LedgerTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "ledger")
	expected := []string{"seq", "kind", "ref", "body", "outcome", "message", "trace_id"}
	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("ledger table missing column %q", col)
		}
	}

	indexes := getTableIndexes(t, s.db, "ledger")
	if !contains(indexes, "idx_ledger_ref") {
		t.Error("ledger table missing index idx_ledger_ref")
	}
}

func TestSchema_UserVersion(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestSchema_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error opening database with newer schema version")
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
