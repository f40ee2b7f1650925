package ir

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeySize is the byte length of identities and slot addresses.
const PubkeySize = 32

// SignatureSize is the byte length of an ed25519 signature.
const SignatureSize = 64

// Pubkey is a 32-byte identity or slot address, printed in base58.
type Pubkey [PubkeySize]byte

// ParsePubkey decodes a base58 pubkey.
func ParsePubkey(s string) (Pubkey, error) {
	var p Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return p, fmt.Errorf("parse pubkey %q: %w", s, err)
	}
	if len(raw) != PubkeySize {
		return p, fmt.Errorf("parse pubkey %q: got %d bytes, want %d", s, len(raw), PubkeySize)
	}
	copy(p[:], raw)
	return p, nil
}

// MustPubkey is like ParsePubkey but panics on error.
// Use only in tests or for compiled-in constants.
func MustPubkey(s string) Pubkey {
	p, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PubkeyFromBytes copies b into a Pubkey. b must be exactly 32 bytes.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != PubkeySize {
		return p, fmt.Errorf("pubkey: got %d bytes, want %d", len(b), PubkeySize)
	}
	copy(p[:], b)
	return p, nil
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the key bytes.
func (p Pubkey) Bytes() []byte {
	return append([]byte(nil), p[:]...)
}

// IsZero reports whether p is the all-zero key.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Signature is a 64-byte ed25519 signature, printed in base58.
type Signature [SignatureSize]byte

// ParseSignature decodes a base58 signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	raw, err := base58.Decode(s)
	if err != nil {
		return sig, fmt.Errorf("parse signature: %w", err)
	}
	if len(raw) != SignatureSize {
		return sig, fmt.Errorf("parse signature: got %d bytes, want %d", len(raw), SignatureSize)
	}
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero reports whether the signature is unset.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
