// Package auth provides signer identities and the signature check the
// runtime performs on every instruction.
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/blogsol/internal/ir"
)

// Keypair is an ed25519 signing identity.
type Keypair struct {
	private ed25519.PrivateKey
	public  ir.Pubkey
}

// Generate creates a random keypair.
func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return fromPrivate(priv), nil
}

// FromSeed creates the keypair for a 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keypair seed: got %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return fromPrivate(ed25519.NewKeyFromSeed(seed)), nil
}

// Named returns a keypair derived from a label. The same label always gives
// the same identity. For scenarios and tests only: anyone who knows the
// label can sign.
func Named(label string) *Keypair {
	seed := sha256.Sum256([]byte("blogsol/keypair/v1\x00" + label))
	return fromPrivate(ed25519.NewKeyFromSeed(seed[:]))
}

func fromPrivate(priv ed25519.PrivateKey) *Keypair {
	k := &Keypair{private: priv}
	copy(k.public[:], priv.Public().(ed25519.PublicKey))
	return k
}

// Public returns the identity.
func (k *Keypair) Public() ir.Pubkey {
	return k.public
}

// Sign signs msg.
func (k *Keypair) Sign(msg []byte) ir.Signature {
	var sig ir.Signature
	copy(sig[:], ed25519.Sign(k.private, msg))
	return sig
}

// SignInstruction sets ix.Signer to this identity, signs the canonical
// message and seals the instruction id.
func (k *Keypair) SignInstruction(ix *ir.Instruction) error {
	ix.Signer = k.public
	msg, err := ir.SigningMessage(*ix)
	if err != nil {
		return fmt.Errorf("sign instruction: %w", err)
	}
	ix.Signature = k.Sign(msg)
	return ir.Seal(ix)
}

// LoadKeypair reads a keypair file: a JSON array of the 64 private key bytes.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	var raw []byte
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("parse keypair %s: got %d bytes, want %d", path, len(ints), ed25519.PrivateKeySize)
	}
	raw = make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("parse keypair %s: byte %d out of range", path, i)
		}
		raw[i] = byte(v)
	}
	k, err := FromSeed(raw[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if string(k.private) != string(raw) {
		return nil, fmt.Errorf("parse keypair %s: public half does not match seed", path)
	}
	return k, nil
}

// Save writes the keypair in the format LoadKeypair reads, mode 0600.
func (k *Keypair) Save(path string) error {
	ints := make([]int, len(k.private))
	for i, b := range k.private {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("encode keypair: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create keypair dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keypair: %w", err)
	}
	return nil
}
