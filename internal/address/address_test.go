package address

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
)

func testProgram() ir.Pubkey {
	return ir.MustPubkey(config.DefaultProgramID)
}

func identity(name string) ir.Pubkey {
	seed := sha256.Sum256([]byte(name))
	pub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)
	var p ir.Pubkey
	copy(p[:], pub)
	return p
}

func newTestDeriver(t *testing.T, width int) *Deriver {
	t.Helper()
	d, err := NewDeriver(testProgram(), width)
	require.NoError(t, err)
	return d
}

func TestDerive_Deterministic(t *testing.T) {
	d := newTestDeriver(t, config.PostIDWidthDefault)
	alice := identity("alice")

	addr1, bump1 := d.User(alice)
	for i := 0; i < 10; i++ {
		addr, bump := d.User(alice)
		assert.Equal(t, addr1, addr, "derivation must be deterministic")
		assert.Equal(t, bump1, bump)
	}
}

func TestDerive_UniqueAcrossUsers(t *testing.T) {
	d := newTestDeriver(t, config.PostIDWidthDefault)

	seen := make(map[ir.Pubkey]string)
	for i := 0; i < 64; i++ {
		name := fmt.Sprintf("user-%d", i)
		addr, _ := d.User(identity(name))
		prev, dup := seen[addr]
		require.False(t, dup, "%s collides with %s", name, prev)
		seen[addr] = name
	}
}

func TestDerive_TagSeparatesNamespaces(t *testing.T) {
	program := testProgram()
	alice := identity("alice")

	user, _ := Derive(program, TagUser, alice[:])
	post, _ := Derive(program, TagPost, alice[:])
	assert.NotEqual(t, user, post)
}

func TestDerive_ProgramSeparatesAddresses(t *testing.T) {
	alice := identity("alice")

	a, _ := Derive(testProgram(), TagUser, alice[:])
	b, _ := Derive(identity("other-program"), TagUser, alice[:])
	assert.NotEqual(t, a, b)
}

func TestDerive_OffCurve(t *testing.T) {
	d := newTestDeriver(t, config.PostIDWidthDefault)

	for i := 0; i < 32; i++ {
		addr, _ := d.User(identity(fmt.Sprintf("u%d", i)))
		assert.False(t, IsOnCurve(addr[:]), "derived address must not be a curve point")
	}
}

func TestDerive_BumpReproducesAddress(t *testing.T) {
	program := testProgram()
	alice := identity("alice")

	addr, bump := Derive(program, TagUser, alice[:])
	again, err := CreateProgramAddress(program, []byte(config.UserSeed), alice[:], []byte{bump})
	require.NoError(t, err)
	assert.Equal(t, addr, again)
}

func TestIsOnCurve_PublicKeysAreOnCurve(t *testing.T) {
	alice := identity("alice")
	assert.True(t, IsOnCurve(alice[:]))
}

func TestCreateProgramAddress_RejectsLongSeed(t *testing.T) {
	_, err := CreateProgramAddress(testProgram(), make([]byte, MaxSeedLen+1))
	assert.ErrorIs(t, err, ErrSeedTooLong)
}

func TestCreateProgramAddress_RejectsTooManySeeds(t *testing.T) {
	seeds := make([][]byte, MaxSeeds+1)
	_, err := CreateProgramAddress(testProgram(), seeds...)
	assert.ErrorIs(t, err, ErrTooManySeeds)
}

func TestPost_DistinctPerID(t *testing.T) {
	d := newTestDeriver(t, config.PostIDWidthDefault)
	alice := identity("alice")

	seen := make(map[ir.Pubkey]uint64)
	for id := uint64(0); id < 50; id++ {
		addr, _, err := d.Post(alice, id)
		require.NoError(t, err)
		prev, dup := seen[addr]
		require.False(t, dup, "post %d collides with post %d", id, prev)
		seen[addr] = id
	}
}

func TestPost_DistinctPerAuthority(t *testing.T) {
	d := newTestDeriver(t, config.PostIDWidthDefault)

	a, _, err := d.Post(identity("alice"), 0)
	require.NoError(t, err)
	b, _, err := d.Post(identity("bob"), 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPost_LegacyWidthMatchesSingleByteSeed(t *testing.T) {
	d := newTestDeriver(t, config.PostIDWidthLegacy)
	alice := identity("alice")

	addr, _, err := d.Post(alice, 7)
	require.NoError(t, err)
	want, _ := Derive(testProgram(), TagPost, alice[:], []byte{7})
	assert.Equal(t, want, addr)
}

func TestPost_WidthChangesAddress(t *testing.T) {
	alice := identity("alice")

	a, _, err := newTestDeriver(t, 1).Post(alice, 3)
	require.NoError(t, err)
	b, _, err := newTestDeriver(t, 8).Post(alice, 3)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPost_IDOutOfRange(t *testing.T) {
	d := newTestDeriver(t, 1)

	_, _, err := d.Post(identity("alice"), 256)
	assert.ErrorIs(t, err, ErrIDOutOfRange)
}

func TestEncodePostID(t *testing.T) {
	tests := []struct {
		id    uint64
		width int
		want  []byte
	}{
		{0, 1, []byte{0}},
		{255, 1, []byte{0xff}},
		{256, 2, []byte{0x00, 0x01}},
		{1, 4, []byte{1, 0, 0, 0}},
		{1, 8, []byte{1, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		got, err := EncodePostID(tt.id, tt.width)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "id=%d width=%d", tt.id, tt.width)
	}

	_, err := EncodePostID(1, 3)
	assert.Error(t, err)
	_, err = EncodePostID(65536, 2)
	assert.ErrorIs(t, err, ErrIDOutOfRange)
}

func TestNewDeriver_RejectsWidth(t *testing.T) {
	_, err := NewDeriver(testProgram(), 5)
	assert.Error(t, err)
}
