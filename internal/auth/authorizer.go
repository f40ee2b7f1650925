package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/roach88/blogsol/internal/ir"
)

var (
	// ErrMissingSignature means the instruction carries no signer or signature.
	ErrMissingSignature = errors.New("missing signature")

	// ErrInvalidSignature means the signature does not verify for the signer.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Authorizer proves the signer of an instruction.
// Implemented by Ed25519Authorizer; tests may substitute their own.
type Authorizer interface {
	Authorize(ix ir.Instruction) error
}

// Ed25519Authorizer verifies ed25519 signatures over the canonical
// instruction message.
type Ed25519Authorizer struct{}

// Authorize returns nil when ix.Signature is a valid signature by ix.Signer.
func (Ed25519Authorizer) Authorize(ix ir.Instruction) error {
	if ix.Signer.IsZero() || ix.Signature.IsZero() {
		return ErrMissingSignature
	}
	msg, err := ir.SigningMessage(ix)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	if !Verify(ix.Signer, msg, ix.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Verify reports whether sig is a valid signature of msg by identity.
func Verify(identity ir.Pubkey, msg []byte, sig ir.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(identity[:]), msg, sig[:])
}
