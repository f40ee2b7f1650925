package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/store"
)

// UserAccount is a UserRecord with its address.
type UserAccount struct {
	Address ir.Pubkey `json:"address"`
	Bump    uint8     `json:"bump"`
	UserRecord
}

// PostAccount is a PostRecord with its address.
type PostAccount struct {
	Address ir.Pubkey `json:"address"`
	Bump    uint8     `json:"bump"`
	PostRecord
}

// Account is a raw slot with its decoded record, if it holds one.
type Account struct {
	Address  ir.Pubkey   `json:"address"`
	Owner    ir.Pubkey   `json:"owner"`
	Space    uint64      `json:"space"`
	Lamports uint64      `json:"lamports"`
	Kind     AccountKind `json:"kind"`
	User     *UserRecord `json:"user,omitempty"`
	Post     *PostRecord `json:"post,omitempty"`
}

// User looks up the UserRecord of authority.
func (p *Program) User(ctx context.Context, authority ir.Pubkey) (UserAccount, error) {
	addr, bump := p.deriver.User(authority)
	data, err := p.readData(ctx, addr, "user")
	if err != nil {
		return UserAccount{}, err
	}
	r, err := DecodeUser(data)
	if err != nil {
		return UserAccount{}, fmt.Errorf("user %s: %w", addr, err)
	}
	return UserAccount{Address: addr, Bump: bump, UserRecord: r}, nil
}

// Post looks up post id of authority.
func (p *Program) Post(ctx context.Context, authority ir.Pubkey, id uint64) (PostAccount, error) {
	addr, bump, err := p.deriver.Post(authority, id)
	if err != nil {
		return PostAccount{}, NewError(ErrCodeInvalidArgument, err, "post id %d", id)
	}
	data, err := p.readData(ctx, addr, "post")
	if err != nil {
		return PostAccount{}, err
	}
	r, err := DecodePost(data)
	if err != nil {
		return PostAccount{}, fmt.Errorf("post %s: %w", addr, err)
	}
	return PostAccount{Address: addr, Bump: bump, PostRecord: r}, nil
}

// Posts returns every post of authority in id order, found by deriving
// ids 0 through last_post_id-1.
func (p *Program) Posts(ctx context.Context, authority ir.Pubkey) ([]PostAccount, error) {
	user, err := p.User(ctx, authority)
	if err != nil {
		return nil, err
	}
	posts := make([]PostAccount, 0, user.PostCount)
	for id := uint64(0); id < user.LastPostID; id++ {
		post, err := p.Post(ctx, authority, id)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Account returns the slot at addr and decodes its record.
func (p *Program) Account(ctx context.Context, addr ir.Pubkey) (Account, error) {
	slot, err := p.store.ReadSlot(ctx, addr)
	if errors.Is(err, store.ErrSlotNotFound) {
		return Account{}, NewError(ErrCodeAccountNotFound, err, "account %s", addr)
	}
	if err != nil {
		return Account{}, err
	}

	acct := Account{
		Address:  slot.Address,
		Owner:    slot.Owner,
		Space:    slot.Space,
		Lamports: slot.Lamports,
		Kind:     KindOf(slot.Data),
	}
	switch acct.Kind {
	case KindUser:
		r, err := DecodeUser(slot.Data)
		if err != nil {
			return Account{}, err
		}
		acct.User = &r
	case KindPost:
		r, err := DecodePost(slot.Data)
		if err != nil {
			return Account{}, err
		}
		acct.Post = &r
	}
	return acct, nil
}

func (p *Program) readData(ctx context.Context, addr ir.Pubkey, what string) ([]byte, error) {
	slot, err := p.store.ReadSlot(ctx, addr)
	if errors.Is(err, store.ErrSlotNotFound) {
		return nil, NewError(ErrCodeAccountNotFound, err, "%s account %s", what, addr)
	}
	if err != nil {
		return nil, err
	}
	return slot.Data, nil
}
