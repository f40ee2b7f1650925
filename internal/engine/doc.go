// Package engine is the slot runtime: it executes blog instructions one at a
// time and records each one in the ledger.
//
// ARCHITECTURE:
//
// Single-Writer Execution:
// Exactly one instruction runs at a time, from start to commit or rollback.
// Submit() queues work for the Run loop; Execute() runs work directly under
// the same writer lock. Neither interleaves with the other.
//
// Instruction Flow:
//  1. The instruction id is recomputed from its contents
//  2. An id already in the ledger is rejected as a replayed signature
//  3. The clock stamps the next seq
//  4. The program runs inside one store transaction, which also appends the
//     ledger entry on success
//  5. On failure the transaction rolls back and a failure entry is appended
//     on its own
//
// Replay:
// The ledger is the full input history. Replay() re-executes it against an
// empty store with the original seqs and trace ids, then compares every
// receipt and the final state digest.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Entries are ordered by a monotonic seq from Clock.Next(), never by wall
// time. Wall time is read only for metrics.
//
// No Cancellation Mid-Instruction:
// Work dequeued by Run executes under the loop's context, not the
// submitter's. A submitter that stops waiting does not abort its
// instruction.
package engine
