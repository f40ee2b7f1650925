package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpaceMatchesDeployedLayout(t *testing.T) {
	assert.Equal(t, 2312+8, UserSpace)
	assert.Equal(t, 2376+8, PostSpace)
}

func TestRentExempt(t *testing.T) {
	assert.Equal(t, uint64(128*3480*2), RentExempt(0))
	assert.Equal(t, uint64((128+UserSpace)*3480*2), RentExempt(UserSpace))
}

func TestMaxPostCounter(t *testing.T) {
	assert.Equal(t, uint64(255), MaxPostCounter(1))
	assert.Equal(t, uint64(65535), MaxPostCounter(2))
	assert.Equal(t, uint64(1<<32-1), MaxPostCounter(4))
	assert.Equal(t, ^uint64(0), MaxPostCounter(8))
}

func TestValidPostIDWidth(t *testing.T) {
	for _, w := range []int{1, 2, 4, 8} {
		assert.True(t, ValidPostIDWidth(w), "width %d", w)
	}
	for _, w := range []int{0, 3, 16, -1} {
		assert.False(t, ValidPostIDWidth(w), "width %d", w)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data/blogsol.db", cfg.Database.Path)
	assert.Equal(t, DefaultProgramID, cfg.Program.ID)
	assert.Equal(t, PostIDWidthDefault, cfg.Program.PostIDWidth)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultMaxAirdrop, cfg.RPC.MaxAirdrop)
	assert.Equal(t, "data/id.json", cfg.Keypair.Path)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogsol.yaml")
	content := "database:\n  path: /tmp/x.db\nprogram:\n  postidwidth: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Program.PostIDWidth)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BLOGSOL_PROGRAM_POSTIDWIDTH", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Program.PostIDWidth)
}

func TestLoad_RejectsBadWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogsol.yaml")
	require.NoError(t, os.WriteFile(path, []byte("program:\n  postidwidth: 3\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postidwidth")
}
