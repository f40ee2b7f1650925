package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateEntry is returned when an instruction id is already in the ledger.
var ErrDuplicateEntry = errors.New("ledger entry already exists")

// EntryKind distinguishes ledger entries.
type EntryKind string

const (
	// EntryInstruction is a signed program instruction.
	EntryInstruction EntryKind = "instruction"
	// EntryAirdrop is a runtime credit to an identity.
	EntryAirdrop EntryKind = "airdrop"
)

// Entry is one ledger row. Body is canonical JSON of the instruction or
// airdrop; Outcome is "Success" or the rejecting error code.
type Entry struct {
	Seq     int64     `json:"seq"`
	Kind    EntryKind `json:"kind"`
	Ref     string    `json:"ref,omitempty"`
	Body    string    `json:"body"`
	Outcome string    `json:"outcome"`
	Message string    `json:"message,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// AppendEntry adds e to the ledger. An instruction whose Ref is already
// recorded fails with ErrDuplicateEntry.
func (t *Tx) AppendEntry(ctx context.Context, e Entry) error {
	return appendEntry(ctx, t.q, e)
}

// HasEntry reports whether an instruction id is already in the ledger.
func (t *Tx) HasEntry(ctx context.Context, ref string) (bool, error) {
	return hasEntry(ctx, t.q, ref)
}

// AppendEntry adds e to the ledger outside any instruction transaction.
// Used to record rejected instructions after their transaction rolled back.
func (s *Store) AppendEntry(ctx context.Context, e Entry) error {
	return appendEntry(ctx, s.db, e)
}

// HasEntry reports whether an instruction id is already in the ledger.
func (s *Store) HasEntry(ctx context.Context, ref string) (bool, error) {
	return hasEntry(ctx, s.db, ref)
}

// Entries returns the full ledger in seq order.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, ref, body, outcome, message, trace_id
		FROM ledger
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.Seq, &kind, &e.Ref, &e.Body, &e.Outcome, &e.Message, &e.TraceID); err != nil {
			return nil, fmt.Errorf("read ledger: scan: %w", err)
		}
		e.Kind = EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return entries, nil
}

// EntryByRef returns the ledger entry for an instruction id.
func (s *Store) EntryByRef(ctx context.Context, ref string) (Entry, error) {
	var e Entry
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, kind, ref, body, outcome, message, trace_id
		FROM ledger WHERE ref = ?
	`, ref).Scan(&e.Seq, &kind, &e.Ref, &e.Body, &e.Outcome, &e.Message, &e.TraceID)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("ledger entry %s: %w", ref, sql.ErrNoRows)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("ledger entry %s: %w", ref, err)
	}
	e.Kind = EntryKind(kind)
	return e, nil
}

// LastSeq returns the highest seq in the ledger, or 0 when empty.
// Used to resume the logical clock after a restart.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM ledger`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func appendEntry(ctx context.Context, q querier, e Entry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger (seq, kind, ref, body, outcome, message, trace_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		string(e.Kind),
		e.Ref,
		e.Body,
		e.Outcome,
		e.Message,
		e.TraceID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append ledger entry %d: %w", e.Seq, ErrDuplicateEntry)
		}
		return fmt.Errorf("append ledger entry %d: %w", e.Seq, err)
	}
	return nil
}

func hasEntry(ctx context.Context, q querier, ref string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ledger WHERE ref = ?
	`, ref).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	return count > 0, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
