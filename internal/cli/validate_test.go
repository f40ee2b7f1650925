package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/testutil"
)

func writeInstruction(t *testing.T, dir string, ix ir.Instruction) string {
	t.Helper()
	data, err := json.Marshal(ix)
	require.NoError(t, err)
	path := filepath.Join(dir, "ix.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t)
	kp := auth.Named("alice")

	t.Run("valid", func(t *testing.T) {
		ix := testutil.InitUser(t, kp, "alice", "", 1)
		path := writeInstruction(t, env.dir, ix)

		out, err := env.run(t, "--format", "json", "validate", path)
		require.NoError(t, err)
		var result ValidateResult
		decodeResponse(t, out, &result)
		assert.True(t, result.Valid)
		assert.Equal(t, ir.InitUser, result.Instruction)
		assert.Len(t, result.ID, 64)
	})

	t.Run("tampered args", func(t *testing.T) {
		ix := testutil.InitUser(t, kp, "alice", "", 1)
		ix.Args["name"] = ir.IRString("mallory")
		path := writeInstruction(t, env.dir, ix)

		out, err := env.run(t, "--format", "json", "validate", path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		var result ValidateResult
		decodeResponse(t, out, &result)
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("unknown argument", func(t *testing.T) {
		ix := testutil.Sign(t, kp, ir.InitUser, ir.IRObject{
			"name":   ir.IRString("alice"),
			"avatar": ir.IRString(""),
			"admin":  ir.IRBool(true),
		}, 2)
		path := writeInstruction(t, env.dir, ix)

		out, err := env.run(t, "validate", path)
		require.Error(t, err)
		assert.Contains(t, out, "✗ init_user is invalid")
	})

	t.Run("wrong program", func(t *testing.T) {
		ix := ir.Instruction{
			Program: kp.Public(),
			Name:    ir.CreatePost,
			Args:    ir.IRObject{"title": ir.IRString("t"), "content": ir.IRString("c")},
			Nonce:   3,
		}
		require.NoError(t, kp.SignInstruction(&ix))
		path := writeInstruction(t, env.dir, ix)

		out, err := env.run(t, "--format", "json", "validate", path)
		require.Error(t, err)
		var result ValidateResult
		decodeResponse(t, out, &result)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "program")
	})

	t.Run("does not execute", func(t *testing.T) {
		out, err := env.run(t, "ledger")
		require.NoError(t, err)
		assert.Equal(t, "No ledger entries.\n", out)
	})
}

func TestIDL(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "idl")
	require.NoError(t, err)
	assert.Contains(t, out, "#InitUser")
	assert.Contains(t, out, "#CreatePost")

	out, err = env.run(t, "--format", "json", "idl")
	require.NoError(t, err)
	var result map[string]string
	decodeResponse(t, out, &result)
	assert.Contains(t, result["cue"], "strings.MaxRunes")
}
