package testutil

import (
	"testing"

	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/ir"
)

// InitUser returns an init_user instruction signed by kp.
func InitUser(t testing.TB, kp *auth.Keypair, name, avatar string, nonce int64) ir.Instruction {
	t.Helper()
	return Sign(t, kp, ir.InitUser, ir.IRObject{
		"name":   ir.IRString(name),
		"avatar": ir.IRString(avatar),
	}, nonce)
}

// CreatePost returns a create_post instruction signed by kp.
func CreatePost(t testing.TB, kp *auth.Keypair, title, content string, nonce int64) ir.Instruction {
	t.Helper()
	return Sign(t, kp, ir.CreatePost, ir.IRObject{
		"title":   ir.IRString(title),
		"content": ir.IRString(content),
	}, nonce)
}

// Sign builds an instruction for ProgramID and signs it with kp.
func Sign(t testing.TB, kp *auth.Keypair, name ir.InstructionName, args ir.IRObject, nonce int64) ir.Instruction {
	t.Helper()
	ix := ir.Instruction{
		Program: ProgramID,
		Name:    name,
		Args:    args,
		Nonce:   nonce,
	}
	if err := kp.SignInstruction(&ix); err != nil {
		t.Fatalf("sign %s: %v", name, err)
	}
	return ix
}
