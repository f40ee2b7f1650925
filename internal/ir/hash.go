package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainInstruction = "blogsol/instruction/v1"
	DomainMessage     = "blogsol/message/v1"
	DomainState       = "blogsol/state/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// messageBody is the signed portion of an instruction.
// ID and Signature are excluded; everything else is covered.
func messageBody(ix Instruction) IRObject {
	accounts := IRObject{}
	for name, key := range ix.Accounts {
		accounts[name] = IRString(key.String())
	}
	args := ix.Args
	if args == nil {
		args = IRObject{}
	}
	return IRObject{
		"program":     IRString(ix.Program.String()),
		"instruction": IRString(ix.Name),
		"args":        args,
		"accounts":    accounts,
		"signer":      IRString(ix.Signer.String()),
		"nonce":       IRInt(ix.Nonce),
	}
}

// SigningMessage returns the bytes a signer signs for ix.
func SigningMessage(ix Instruction) ([]byte, error) {
	canonical, err := MarshalCanonical(messageBody(ix))
	if err != nil {
		return nil, fmt.Errorf("SigningMessage: failed to marshal: %w", err)
	}
	msg := make([]byte, 0, len(DomainMessage)+1+len(canonical))
	msg = append(msg, DomainMessage...)
	msg = append(msg, 0x00)
	return append(msg, canonical...), nil
}

// InstructionID computes the content-addressed id of ix.
// The id is stable across restarts and replays given the same inputs, and
// two submissions of the same signed request share an id.
func InstructionID(ix Instruction) (string, error) {
	canonical, err := MarshalCanonical(messageBody(ix))
	if err != nil {
		return "", fmt.Errorf("InstructionID: failed to marshal: %w", err)
	}
	return hex.EncodeToString(HashWithDomain(DomainInstruction, canonical)), nil
}

// NormalizeArgs rewrites ix.Args into the form the signing message encodes,
// so execution sees exactly the signed bytes.
func NormalizeArgs(ix *Instruction) error {
	args, err := normalizeObject(ix.Args)
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}
	ix.Args = args
	return nil
}

// Seal normalizes ix.Args and sets ix.ID from its contents.
func Seal(ix *Instruction) error {
	if err := NormalizeArgs(ix); err != nil {
		return err
	}
	id, err := InstructionID(*ix)
	if err != nil {
		return err
	}
	ix.ID = id
	return nil
}
