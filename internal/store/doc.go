// Package store provides the SQLite-backed slot runtime that hosts blogsol
// records.
//
// The store models the external execution environment:
//   - Slots: fixed-capacity, externally addressed storage accounts
//   - Balances: lamports an identity can spend on slot rent
//   - Ledger: every executed instruction and airdrop, in seq order
//
// # Atomicity
//
// All mutations of one instruction run inside Store.Atomic. Any error
// rolls the whole transaction back, so a rejected instruction leaves no
// trace in slots or balances.
//
// # Slot creation
//
// CreateSlot inserts with ON CONFLICT(address) DO NOTHING. Zero affected
// rows means the address is occupied and the call fails with ErrSlotExists.
// This is the only mutual exclusion records need: two writers racing for
// the same derived address cannot both win.
//
// # Determinism
//
//   - Ledger order is seq (logical clock), never wall time
//   - Queries that return many rows ORDER BY a unique column
//   - StateDigest hashes slots and balances in address order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
