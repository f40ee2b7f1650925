package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
)

var (
	// ErrSlotExists is returned when creating a slot at an occupied address.
	ErrSlotExists = errors.New("slot already exists")

	// ErrSlotNotFound is returned when reading an address with no slot.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrInsufficientFunds is returned when the payer cannot cover rent.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDataTooLarge is returned when data exceeds the slot's reserved space.
	ErrDataTooLarge = errors.New("data exceeds slot space")
)

// Slot is one storage account.
type Slot struct {
	Address    ir.Pubkey `json:"address"`
	Owner      ir.Pubkey `json:"owner"`
	Space      uint64    `json:"space"`
	Lamports   uint64    `json:"lamports"`
	Data       []byte    `json:"data"`
	CreatedSeq int64     `json:"created_seq"`
	UpdatedSeq int64     `json:"updated_seq"`
}

// CreateSlot reserves space bytes at addr, owned by owner, funded by payer.
// The slot starts zero-filled and holds the rent-exempt minimum, which is
// debited from payer.
//
// Fails with ErrSlotExists if addr is occupied and ErrInsufficientFunds if
// payer cannot cover rent. Call inside Atomic: on ErrInsufficientFunds the
// inserted row is only discarded by the rollback.
func (t *Tx) CreateSlot(ctx context.Context, addr, owner ir.Pubkey, space uint64, payer ir.Pubkey, seq int64) (Slot, error) {
	rent := config.RentExempt(space)
	if rent > math.MaxInt64 || space > math.MaxInt64 {
		return Slot{}, fmt.Errorf("create slot %s: space %d too large", addr, space)
	}

	slot := Slot{
		Address:    addr,
		Owner:      owner,
		Space:      space,
		Lamports:   rent,
		Data:       make([]byte, space),
		CreatedSeq: seq,
		UpdatedSeq: seq,
	}

	result, err := t.q.ExecContext(ctx, `
		INSERT INTO slots (address, owner, space, lamports, data, created_seq, updated_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`,
		addr.String(),
		owner.String(),
		int64(space),
		int64(rent),
		slot.Data,
		seq,
		seq,
	)
	if err != nil {
		return Slot{}, fmt.Errorf("create slot %s: %w", addr, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return Slot{}, fmt.Errorf("create slot %s: rows affected: %w", addr, err)
	}
	if rows == 0 {
		return Slot{}, fmt.Errorf("create slot %s: %w", addr, ErrSlotExists)
	}

	if err := t.debit(ctx, payer, rent); err != nil {
		return Slot{}, fmt.Errorf("create slot %s: %w", addr, err)
	}

	return slot, nil
}

// ReadSlot returns the slot at addr or ErrSlotNotFound.
func (t *Tx) ReadSlot(ctx context.Context, addr ir.Pubkey) (Slot, error) {
	return readSlot(ctx, t.q, addr)
}

// WriteSlotData replaces the slot's data. data may be shorter than the slot;
// the remainder is zero-filled. Longer data fails with ErrDataTooLarge.
func (t *Tx) WriteSlotData(ctx context.Context, addr ir.Pubkey, data []byte, seq int64) error {
	slot, err := readSlot(ctx, t.q, addr)
	if err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	if uint64(len(data)) > slot.Space {
		return fmt.Errorf("write slot %s: %w (%d > %d)", addr, ErrDataTooLarge, len(data), slot.Space)
	}

	padded := make([]byte, slot.Space)
	copy(padded, data)

	_, err = t.q.ExecContext(ctx, `
		UPDATE slots SET data = ?, updated_seq = ? WHERE address = ?
	`, padded, seq, addr.String())
	if err != nil {
		return fmt.Errorf("write slot %s: %w", addr, err)
	}
	return nil
}

// ReadSlot returns the committed slot at addr or ErrSlotNotFound.
func (s *Store) ReadSlot(ctx context.Context, addr ir.Pubkey) (Slot, error) {
	return readSlot(ctx, s.db, addr)
}

// SlotsByOwner returns all slots owned by owner in address order.
func (s *Store) SlotsByOwner(ctx context.Context, owner ir.Pubkey) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, owner, space, lamports, data, created_seq, updated_seq
		FROM slots
		WHERE owner = ?
		ORDER BY address COLLATE BINARY ASC
	`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("slots by owner: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("slots by owner: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("slots by owner: %w", err)
	}
	return slots, nil
}

func readSlot(ctx context.Context, q querier, addr ir.Pubkey) (Slot, error) {
	row := q.QueryRowContext(ctx, `
		SELECT address, owner, space, lamports, data, created_seq, updated_seq
		FROM slots
		WHERE address = ?
	`, addr.String())

	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, addr)
	}
	if err != nil {
		return Slot{}, fmt.Errorf("read slot %s: %w", addr, err)
	}
	return slot, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(row scanner) (Slot, error) {
	var (
		slot            Slot
		address, owner  string
		space, lamports int64
	)
	if err := row.Scan(&address, &owner, &space, &lamports, &slot.Data, &slot.CreatedSeq, &slot.UpdatedSeq); err != nil {
		return Slot{}, err
	}

	var err error
	if slot.Address, err = ir.ParsePubkey(address); err != nil {
		return Slot{}, err
	}
	if slot.Owner, err = ir.ParsePubkey(owner); err != nil {
		return Slot{}, err
	}
	slot.Space = uint64(space)
	slot.Lamports = uint64(lamports)
	return slot, nil
}
