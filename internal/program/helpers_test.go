package program

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogsol/internal/address"
	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/store"
)

const testFunds = 1_000_000_000

var testProgramID = ir.MustPubkey(config.DefaultProgramID)

func newTestProgram(t *testing.T, idWidth int) *Program {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d, err := address.NewDeriver(testProgramID, idWidth)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(s, d, WithLogger(logger))
}

func fund(t *testing.T, p *Program, who ir.Pubkey) {
	t.Helper()
	err := p.Store().Atomic(context.Background(), func(tx *store.Tx) error {
		return tx.Credit(context.Background(), who, testFunds)
	})
	require.NoError(t, err)
}

func balance(t *testing.T, p *Program, who ir.Pubkey) uint64 {
	t.Helper()
	b, err := p.Store().Balance(context.Background(), who)
	require.NoError(t, err)
	return b
}

func signed(t *testing.T, kp *auth.Keypair, name ir.InstructionName, args ir.IRObject, nonce int64) ir.Instruction {
	t.Helper()
	ix := ir.Instruction{
		Program: testProgramID,
		Name:    name,
		Args:    args,
		Nonce:   nonce,
	}
	require.NoError(t, kp.SignInstruction(&ix))
	return ix
}

func initUser(t *testing.T, kp *auth.Keypair, name, avatar string) ir.Instruction {
	return signed(t, kp, ir.InitUser, ir.IRObject{
		"name":   ir.IRString(name),
		"avatar": ir.IRString(avatar),
	}, 0)
}

func createPost(t *testing.T, kp *auth.Keypair, title, content string, nonce int64) ir.Instruction {
	return signed(t, kp, ir.CreatePost, ir.IRObject{
		"title":   ir.IRString(title),
		"content": ir.IRString(content),
	}, nonce)
}

// setCounters overwrites a user's counters in place.
func setCounters(t *testing.T, p *Program, authority ir.Pubkey, lastPostID, postCount uint64) {
	t.Helper()
	ctx := context.Background()
	user, err := p.User(ctx, authority)
	require.NoError(t, err)

	user.LastPostID = lastPostID
	user.PostCount = postCount
	data, err := EncodeUser(user.UserRecord)
	require.NoError(t, err)
	err = p.Store().Atomic(ctx, func(tx *store.Tx) error {
		return tx.WriteSlotData(ctx, user.Address, data, 0)
	})
	require.NoError(t, err)
}
