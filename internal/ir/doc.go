// Package ir provides the canonical value and instruction types for blogsol.
//
// This package contains types and pure functions only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64, counters are uint64
//   - Identities and slot addresses share one 32-byte Pubkey type
//   - Signing messages and instruction ids use RFC 8785 canonical JSON
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
