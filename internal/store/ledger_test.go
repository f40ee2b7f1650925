package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AppendEntry(ctx, Entry{Seq: 1, Kind: EntryAirdrop, Body: `{"lamports":5}`, Outcome: "Success"}))
	require.NoError(t, s.AppendEntry(ctx, Entry{Seq: 2, Kind: EntryInstruction, Ref: "abc", Body: "{}", Outcome: "Success", TraceID: "t-1"}))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryAirdrop, entries[0].Kind)
	assert.Equal(t, "abc", entries[1].Ref)
	assert.Equal(t, "t-1", entries[1].TraceID)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)
}

func TestLedger_DuplicateRef(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AppendEntry(ctx, Entry{Seq: 1, Kind: EntryInstruction, Ref: "abc", Body: "{}", Outcome: "Success"}))
	err := s.AppendEntry(ctx, Entry{Seq: 2, Kind: EntryInstruction, Ref: "abc", Body: "{}", Outcome: "Success"})
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	has, err := s.HasEntry(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLedger_EmptyRefNotUnique(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AppendEntry(ctx, Entry{Seq: 1, Kind: EntryAirdrop, Body: "{}", Outcome: "Success"}))
	require.NoError(t, s.AppendEntry(ctx, Entry{Seq: 2, Kind: EntryAirdrop, Body: "{}", Outcome: "Success"}))
}

func TestLedger_DuplicateSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AppendEntry(ctx, Entry{Seq: 1, Kind: EntryAirdrop, Body: "{}", Outcome: "Success"}))
	err := s.AppendEntry(ctx, Entry{Seq: 1, Kind: EntryAirdrop, Body: "{}", Outcome: "Success"})
	assert.Error(t, err)
}

func TestLedger_LastSeqEmpty(t *testing.T) {
	last, err := createTestStore(t).LastSeq(context.Background())
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestLedger_EntryByRef(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.AppendEntry(ctx, Entry{Seq: 7, Kind: EntryInstruction, Ref: "r", Body: "{}", Outcome: "COUNTER_OVERFLOW", Message: "m"}))

	e, err := s.EntryByRef(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.Seq)
	assert.Equal(t, "COUNTER_OVERFLOW", e.Outcome)

	_, err = s.EntryByRef(ctx, "missing")
	assert.Error(t, err)
}

func TestStateDigest_Deterministic(t *testing.T) {
	ctx := context.Background()
	build := func() *Store {
		s := createTestStore(t)
		payer := testKey("payer")
		fund(t, s, payer, 10_000_000_000)
		err := s.Atomic(ctx, func(tx *Tx) error {
			if _, err := tx.CreateSlot(ctx, testKey("a"), testKey("program"), 8, payer, 1); err != nil {
				return err
			}
			return tx.WriteSlotData(ctx, testKey("a"), []byte("hi"), 2)
		})
		require.NoError(t, err)
		return s
	}

	d1, err := build().StateDigest(ctx)
	require.NoError(t, err)
	d2, err := build().StateDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	empty, err := createTestStore(t).StateDigest(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, d1, empty)
}

func TestStateDigest_IgnoresInsertionOrder(t *testing.T) {
	ctx := context.Background()
	build := func(labels ...string) *Store {
		s := createTestStore(t)
		for _, label := range labels {
			fund(t, s, testKey("payer-"+label), 10_000_000_000)
		}
		err := s.Atomic(ctx, func(tx *Tx) error {
			for _, label := range labels {
				if _, err := tx.CreateSlot(ctx, testKey(label), testKey("program"), 8, testKey("payer-"+label), 1); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)
		return s
	}

	forward, err := build("a", "b", "c").StateDigest(ctx)
	require.NoError(t, err)
	backward, err := build("c", "b", "a").StateDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, forward, backward)
}
