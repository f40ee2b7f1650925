package ir

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomain(t *testing.T) {
	data := []byte("payload")
	h := HashWithDomain(DomainInstruction, data)
	assert.Len(t, h, sha256.Size)

	want := sha256.Sum256(append([]byte(DomainInstruction+"\x00"), data...))
	assert.Equal(t, want[:], h)

	assert.NotEqual(t, h, HashWithDomain(DomainState, data))
}

func testInstruction() Instruction {
	return Instruction{
		Program: MustPubkey(testProgram),
		Name:    InitUser,
		Args:    IRObject{"name": IRString("alice"), "avatar": IRString("a.png")},
		Signer:  filledKey(1),
		Nonce:   1,
	}
}

// filledKey returns a key with every byte set to b.
func filledKey(b byte) Pubkey {
	var p Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func TestSigningMessage(t *testing.T) {
	msg, err := SigningMessage(testInstruction())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(msg, []byte(DomainMessage+"\x00")))
	assert.Contains(t, string(msg), `"instruction":"init_user"`)
}

func TestInstructionIDIgnoresIDAndSignature(t *testing.T) {
	ix := testInstruction()
	id1, err := InstructionID(ix)
	require.NoError(t, err)

	ix.ID = "something"
	ix.Signature[0] = 1
	id2, err := InstructionID(ix)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestInstructionIDCoversFields(t *testing.T) {
	base, err := InstructionID(testInstruction())
	require.NoError(t, err)

	mutations := map[string]func(*Instruction){
		"nonce":    func(ix *Instruction) { ix.Nonce = 2 },
		"name":     func(ix *Instruction) { ix.Name = CreatePost },
		"args":     func(ix *Instruction) { ix.Args["name"] = IRString("bob") },
		"signer":   func(ix *Instruction) { ix.Signer = filledKey(2) },
		"program":  func(ix *Instruction) { ix.Program = filledKey(3) },
		"accounts": func(ix *Instruction) { ix.Accounts = map[string]Pubkey{AccountUser: filledKey(4)} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ix := testInstruction()
			mutate(&ix)
			id, err := InstructionID(ix)
			require.NoError(t, err)
			assert.NotEqual(t, base, id)
		})
	}
}

func TestSeal(t *testing.T) {
	ix := testInstruction()
	require.NoError(t, Seal(&ix))
	want, err := InstructionID(ix)
	require.NoError(t, err)
	assert.Equal(t, want, ix.ID)
}

func TestSeal_NormalizesArgs(t *testing.T) {
	composed := testInstruction()
	composed.Args["name"] = IRString("Jos\u00e9")
	require.NoError(t, Seal(&composed))

	decomposed := testInstruction()
	decomposed.Args["name"] = IRString("Jose\u0301")
	require.NoError(t, Seal(&decomposed))

	assert.Equal(t, composed.ID, decomposed.ID)
	name, _ := decomposed.Args.String("name")
	assert.Equal(t, "Jos\u00e9", name, "args hold the signed form")
}

func TestSeal_RejectsInvalidUTF8(t *testing.T) {
	ix := testInstruction()
	ix.Args["name"] = IRString("bad\xff")
	assert.Error(t, Seal(&ix))
	assert.Empty(t, ix.ID)

	_, err := MarshalCanonical(IRString("bad\xff"))
	assert.Error(t, err)
}
