package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/roach88/blogsol/internal/ir"
)

// StateDigest hashes every slot and balance in address order. Two stores
// that executed the same ledger have the same digest.
func (s *Store) StateDigest(ctx context.Context) (string, error) {
	var buf bytes.Buffer

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, owner, space, lamports, data
		FROM slots
		ORDER BY address COLLATE BINARY ASC
	`)
	if err != nil {
		return "", fmt.Errorf("state digest: slots: %w", err)
	}
	for rows.Next() {
		var address, owner string
		var space, lamports int64
		var data []byte
		if err := rows.Scan(&address, &owner, &space, &lamports, &data); err != nil {
			rows.Close()
			return "", fmt.Errorf("state digest: scan slot: %w", err)
		}
		buf.WriteString("slot\x00")
		buf.WriteString(address)
		buf.WriteByte(0)
		buf.WriteString(owner)
		buf.WriteByte(0)
		writeInt(&buf, space)
		writeInt(&buf, lamports)
		writeInt(&buf, int64(len(data)))
		buf.Write(data)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return "", fmt.Errorf("state digest: slots: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT identity, lamports
		FROM balances
		ORDER BY identity COLLATE BINARY ASC
	`)
	if err != nil {
		return "", fmt.Errorf("state digest: balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var identity string
		var lamports int64
		if err := rows.Scan(&identity, &lamports); err != nil {
			return "", fmt.Errorf("state digest: scan balance: %w", err)
		}
		buf.WriteString("balance\x00")
		buf.WriteString(identity)
		buf.WriteByte(0)
		writeInt(&buf, lamports)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("state digest: balances: %w", err)
	}

	return hex.EncodeToString(ir.HashWithDomain(ir.DomainState, buf.Bytes())), nil
}

func writeInt(buf *bytes.Buffer, n int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	buf.Write(b[:])
}
