package address

import (
	"fmt"

	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
)

// Deriver binds derivation to one program and one post id width.
type Deriver struct {
	program ir.Pubkey
	idWidth int
}

// NewDeriver creates a Deriver. idWidth must be 1, 2, 4 or 8.
func NewDeriver(program ir.Pubkey, idWidth int) (*Deriver, error) {
	if !config.ValidPostIDWidth(idWidth) {
		return nil, fmt.Errorf("unsupported post id width %d", idWidth)
	}
	return &Deriver{program: program, idWidth: idWidth}, nil
}

// Program returns the program id addresses are derived under.
func (d *Deriver) Program() ir.Pubkey {
	return d.program
}

// IDWidth returns the post id encoding width in bytes.
func (d *Deriver) IDWidth() int {
	return d.idWidth
}

// User returns the UserRecord address for authority.
// Seeds: [UserSeed, authority].
func (d *Deriver) User(authority ir.Pubkey) (ir.Pubkey, uint8) {
	return Derive(d.program, TagUser, authority[:])
}

// Post returns the PostRecord address for (authority, id).
// Seeds: [PostSeed, authority, id encoded in IDWidth bytes].
func (d *Deriver) Post(authority ir.Pubkey, id uint64) (ir.Pubkey, uint8, error) {
	enc, err := EncodePostID(id, d.idWidth)
	if err != nil {
		return ir.Pubkey{}, 0, err
	}
	addr, bump := Derive(d.program, TagPost, authority[:], enc)
	return addr, bump, nil
}
