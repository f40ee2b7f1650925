package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/blogsol/internal/ir"
)

// ErrBalanceOverflow is returned when a credit would exceed the balance range.
var ErrBalanceOverflow = errors.New("balance overflow")

// Balance returns the spendable lamports of identity inside the transaction.
func (t *Tx) Balance(ctx context.Context, identity ir.Pubkey) (uint64, error) {
	return readBalance(ctx, t.q, identity)
}

// Credit adds lamports to identity's balance.
func (t *Tx) Credit(ctx context.Context, identity ir.Pubkey, lamports uint64) error {
	current, err := readBalance(ctx, t.q, identity)
	if err != nil {
		return err
	}
	if lamports > math.MaxInt64 || current > math.MaxInt64-lamports {
		return fmt.Errorf("credit %s: %w", identity, ErrBalanceOverflow)
	}

	_, err = t.q.ExecContext(ctx, `
		INSERT INTO balances (identity, lamports) VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET lamports = lamports + excluded.lamports
	`, identity.String(), int64(lamports))
	if err != nil {
		return fmt.Errorf("credit %s: %w", identity, err)
	}
	return nil
}

// debit subtracts lamports from identity, failing with ErrInsufficientFunds
// when the balance is too small. The guard and the update are one statement.
func (t *Tx) debit(ctx context.Context, identity ir.Pubkey, lamports uint64) error {
	if lamports > math.MaxInt64 {
		return fmt.Errorf("debit %s: %w", identity, ErrInsufficientFunds)
	}

	result, err := t.q.ExecContext(ctx, `
		UPDATE balances SET lamports = lamports - ?
		WHERE identity = ? AND lamports >= ?
	`, int64(lamports), identity.String(), int64(lamports))
	if err != nil {
		return fmt.Errorf("debit %s: %w", identity, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit %s: rows affected: %w", identity, err)
	}
	if rows == 0 {
		return fmt.Errorf("debit %s: %w: need %d lamports", identity, ErrInsufficientFunds, lamports)
	}
	return nil
}

// Balance returns the committed spendable lamports of identity.
// Unknown identities have a zero balance.
func (s *Store) Balance(ctx context.Context, identity ir.Pubkey) (uint64, error) {
	return readBalance(ctx, s.db, identity)
}

func readBalance(ctx context.Context, q querier, identity ir.Pubkey) (uint64, error) {
	var lamports int64
	err := q.QueryRowContext(ctx, `
		SELECT lamports FROM balances WHERE identity = ?
	`, identity.String()).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance %s: %w", identity, err)
	}
	return uint64(lamports), nil
}
