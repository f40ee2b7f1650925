// Package address derives deterministic slot addresses for blogsol records.
//
// An address is a pure function of the program id, a namespace tag and the
// seed bytes. Nothing is stored and nothing is allocated: the same inputs
// always give the same address, so records are found again by recomputing
// where they must live.
//
// The derivation follows the runtime's program-address rule:
//
//	candidate = SHA256(tag || seeds... || bump || program || "ProgramDerivedAddress")
//
// tried with bump = 255, 254, ... until the candidate is NOT a valid ed25519
// point. Addresses on the curve are reserved for keypairs, so a derived
// address can never be signed for by anyone.
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
)

// Tag is the fixed namespace seed that separates record kinds.
type Tag string

// Record namespaces.
const (
	TagUser Tag = config.UserSeed
	TagPost Tag = config.PostSeed
)

// Runtime limits on seeds.
const (
	MaxSeedLen = 32
	MaxSeeds   = 16
)

const pdaMarker = "ProgramDerivedAddress"

var (
	// ErrOnCurve is returned by CreateProgramAddress when the candidate is a
	// valid ed25519 point and so cannot be used as a derived address.
	ErrOnCurve = errors.New("derived address lies on the ed25519 curve")

	// ErrSeedTooLong is returned for a seed longer than MaxSeedLen.
	ErrSeedTooLong = errors.New("seed exceeds max length")

	// ErrTooManySeeds is returned when more than MaxSeeds seeds are given.
	ErrTooManySeeds = errors.New("too many seeds")

	// ErrIDOutOfRange is returned when a post id does not fit the encoding width.
	ErrIDOutOfRange = errors.New("post id does not fit encoding width")
)

// CreateProgramAddress hashes seeds (which must already include the bump)
// under program. It fails with ErrOnCurve when the hash is a curve point.
func CreateProgramAddress(program ir.Pubkey, seeds ...[]byte) (ir.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return ir.Pubkey{}, ErrTooManySeeds
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return ir.Pubkey{}, ErrSeedTooLong
		}
		h.Write(s)
	}
	h.Write(program[:])
	h.Write([]byte(pdaMarker))

	var out ir.Pubkey
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out[:]) {
		return ir.Pubkey{}, ErrOnCurve
	}
	return out, nil
}

// Derive returns the address and bump for tag and seed parts under program.
//
// Derive is pure. The seed parts used by this package are always within the
// runtime limits, and the chance that all 256 bumps land on the curve is
// about 2^-256, so Derive panics rather than returning an error nobody
// could handle.
func Derive(program ir.Pubkey, tag Tag, parts ...[]byte) (ir.Pubkey, uint8) {
	seeds := make([][]byte, 0, len(parts)+2)
	seeds = append(seeds, []byte(tag))
	seeds = append(seeds, parts...)
	seeds = append(seeds, nil) // bump slot

	for bump := 255; bump >= 0; bump-- {
		seeds[len(seeds)-1] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(program, seeds...)
		if err == nil {
			return addr, uint8(bump)
		}
		if !errors.Is(err, ErrOnCurve) {
			panic(fmt.Sprintf("address: invalid seeds for %q: %v", tag, err))
		}
	}
	panic(fmt.Sprintf("address: no off-curve bump for %q", tag))
}

// IsOnCurve reports whether b decodes to a valid ed25519 point.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// EncodePostID encodes id little-endian in width bytes.
func EncodePostID(id uint64, width int) ([]byte, error) {
	if !config.ValidPostIDWidth(width) {
		return nil, fmt.Errorf("unsupported post id width %d", width)
	}
	if id > config.MaxPostCounter(width) {
		return nil, fmt.Errorf("%w: %d in %d byte(s)", ErrIDOutOfRange, id, width)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	return buf[:width], nil
}
