package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/blogsol/internal/address"
	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/schema"
	"github.com/roach88/blogsol/internal/store"
)

// Program executes blog instructions against a store.
type Program struct {
	store      *store.Store
	deriver    *address.Deriver
	counters   CounterAllocator
	authorizer auth.Authorizer
	schema     *schema.Schema
	log        logrus.FieldLogger
}

// Option configures a Program.
type Option func(*Program)

// WithAuthorizer replaces the ed25519 signature check.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(p *Program) { p.authorizer = a }
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Program) { p.log = l }
}

// New creates a Program over s, deriving addresses with d.
func New(s *store.Store, d *address.Deriver, opts ...Option) *Program {
	p := &Program{
		store:      s,
		deriver:    d,
		counters:   NewCounterAllocator(d.IDWidth()),
		authorizer: auth.Ed25519Authorizer{},
		schema:     schema.MustLoad(),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the program id.
func (p *Program) ID() ir.Pubkey {
	return p.deriver.Program()
}

// Deriver returns the address deriver the program uses.
func (p *Program) Deriver() *address.Deriver {
	return p.deriver
}

// Store returns the backing store.
func (p *Program) Store() *store.Store {
	return p.store
}

// Result describes the records an instruction wrote.
type Result struct {
	User   ir.Pubkey
	Post   *ir.Pubkey
	PostID *uint64
}

// Apply runs ix in its own transaction.
func (p *Program) Apply(ctx context.Context, ix ir.Instruction, seq int64) (Result, error) {
	var res Result
	err := p.store.Atomic(ctx, func(tx *store.Tx) error {
		var err error
		res, err = p.Execute(ctx, tx, ix, seq)
		return err
	})
	return res, err
}

// Execute runs ix inside tx. On error the caller must roll tx back.
func (p *Program) Execute(ctx context.Context, tx *store.Tx, ix ir.Instruction, seq int64) (Result, error) {
	if err := ir.NormalizeArgs(&ix); err != nil {
		return Result{}, NewError(ErrCodeInvalidArgument, err, "instruction cannot be encoded")
	}
	switch ix.Name {
	case ir.InitUser:
		return p.InitUser(ctx, tx, ix, seq)
	case ir.CreatePost:
		return p.CreatePost(ctx, tx, ix, seq)
	default:
		return Result{}, NewError(ErrCodeInvalidArgument, nil, "unknown instruction %q", ix.Name)
	}
}

// InitUser creates the signer's UserRecord with zeroed counters.
func (p *Program) InitUser(ctx context.Context, tx *store.Tx, ix ir.Instruction, seq int64) (Result, error) {
	if err := p.authorize(ix); err != nil {
		return Result{}, err
	}
	args, err := p.schema.DecodeInitUser(ix.Args)
	if err != nil {
		return Result{}, NewError(ErrCodeInvalidArgument, err, "init_user arguments")
	}
	if err := checkLen("name", args.Name, config.MaxNameLen); err != nil {
		return Result{}, err
	}
	if err := checkLen("avatar", args.Avatar, config.MaxAvatarLen); err != nil {
		return Result{}, err
	}

	authority := ix.Signer
	userAddr, _ := p.deriver.User(authority)
	if err := checkReference(ix, ir.AccountUser, userAddr); err != nil {
		return Result{}, err
	}
	if _, err := p.createSlot(ctx, tx, userAddr, config.UserSpace, authority, seq); err != nil {
		return Result{}, err
	}

	record := UserRecord{
		Name:      args.Name,
		Avatar:    args.Avatar,
		Authority: authority,
	}
	if err := p.writeUser(ctx, tx, userAddr, record, seq); err != nil {
		return Result{}, err
	}

	p.log.WithFields(logrus.Fields{
		"authority": authority.String(),
		"user":      userAddr.String(),
		"seq":       seq,
	}).Debug("user initialized")
	return Result{User: userAddr}, nil
}

// CreatePost appends a post at the next id of the signer's UserRecord.
func (p *Program) CreatePost(ctx context.Context, tx *store.Tx, ix ir.Instruction, seq int64) (Result, error) {
	if err := p.authorize(ix); err != nil {
		return Result{}, err
	}
	args, err := p.schema.DecodeCreatePost(ix.Args)
	if err != nil {
		return Result{}, NewError(ErrCodeInvalidArgument, err, "create_post arguments")
	}
	if err := checkLen("title", args.Title, config.MaxTitleLen); err != nil {
		return Result{}, err
	}
	if err := checkLen("content", args.Content, config.MaxContentLen); err != nil {
		return Result{}, err
	}

	authority := ix.Signer
	derivedUser, _ := p.deriver.User(authority)
	userAddr := derivedUser
	if ref, ok := ix.Accounts[ir.AccountUser]; ok {
		userAddr = ref
	}

	user, err := p.readUser(ctx, tx, userAddr)
	if err != nil {
		return Result{}, err
	}
	if user.Authority != authority {
		return Result{}, NewError(ErrCodeAuthorization, nil,
			"user %s is owned by %s, not signer %s", userAddr, user.Authority, authority)
	}
	if userAddr != derivedUser {
		return Result{}, NewError(ErrCodeAuthorization, nil,
			"user account %s does not match derived address %s", userAddr, derivedUser)
	}

	postID := user.LastPostID
	nextID, err := p.counters.Next(user.LastPostID)
	if err != nil {
		return Result{}, err
	}
	postCount, err := p.counters.Increment(user.PostCount)
	if err != nil {
		return Result{}, err
	}

	postAddr, _, err := p.deriver.Post(authority, postID)
	if err != nil {
		if errors.Is(err, address.ErrIDOutOfRange) {
			return Result{}, NewCounterOverflowError("last_post_id", postID, p.counters.Max())
		}
		return Result{}, fmt.Errorf("derive post address: %w", err)
	}
	if err := checkReference(ix, ir.AccountPost, postAddr); err != nil {
		return Result{}, err
	}
	if _, err := p.createSlot(ctx, tx, postAddr, config.PostSpace, authority, seq); err != nil {
		return Result{}, err
	}

	post := PostRecord{
		ID:        postID,
		Title:     args.Title,
		Content:   args.Content,
		User:      userAddr,
		Authority: authority,
	}
	data, err := EncodePost(post)
	if err != nil {
		return Result{}, err
	}
	if err := tx.WriteSlotData(ctx, postAddr, data, seq); err != nil {
		return Result{}, fmt.Errorf("write post: %w", err)
	}

	user.LastPostID = nextID
	user.PostCount = postCount
	if err := p.writeUser(ctx, tx, userAddr, user, seq); err != nil {
		return Result{}, err
	}

	p.log.WithFields(logrus.Fields{
		"authority": authority.String(),
		"post":      postAddr.String(),
		"post_id":   postID,
		"seq":       seq,
	}).Debug("post created")
	return Result{User: userAddr, Post: &postAddr, PostID: &postID}, nil
}

// authorize checks the program id, the signature and the authority
// reference.
func (p *Program) authorize(ix ir.Instruction) error {
	if ix.Program != p.ID() {
		return NewError(ErrCodeInvalidArgument, nil, "instruction targets program %s, not %s", ix.Program, p.ID())
	}
	if err := p.authorizer.Authorize(ix); err != nil {
		return NewError(ErrCodeAuthorization, err, "signature check failed")
	}
	return checkReference(ix, ir.AccountAuthority, ix.Signer)
}

// checkReference verifies an account reference the client supplied.
// Omitted references are derived by the program.
func checkReference(ix ir.Instruction, name string, want ir.Pubkey) error {
	got, ok := ix.Accounts[name]
	if !ok || got == want {
		return nil
	}
	return NewError(ErrCodeAuthorization, nil, "%s account %s does not match expected %s", name, got, want)
}

func checkLen(field, value string, limit int) error {
	if len(value) > limit {
		return &Error{
			Code:    ErrCodeInvalidArgument,
			Message: fmt.Sprintf("%s is %d bytes, limit %d", field, len(value), limit),
			Details: map[string]string{"field": field},
		}
	}
	return nil
}

func (p *Program) createSlot(ctx context.Context, tx *store.Tx, addr ir.Pubkey, space uint64, payer ir.Pubkey, seq int64) (store.Slot, error) {
	slot, err := tx.CreateSlot(ctx, addr, p.ID(), space, payer, seq)
	switch {
	case err == nil:
		return slot, nil
	case errors.Is(err, store.ErrSlotExists):
		return store.Slot{}, NewError(ErrCodeAddressCollision, err, "slot %s already in use", addr)
	case errors.Is(err, store.ErrInsufficientFunds):
		return store.Slot{}, NewError(ErrCodeResource, err,
			"payer %s cannot fund %d lamports of rent", payer, config.RentExempt(space))
	default:
		return store.Slot{}, fmt.Errorf("create slot %s: %w", addr, err)
	}
}

func (p *Program) readUser(ctx context.Context, tx *store.Tx, addr ir.Pubkey) (UserRecord, error) {
	slot, err := tx.ReadSlot(ctx, addr)
	if errors.Is(err, store.ErrSlotNotFound) {
		return UserRecord{}, NewError(ErrCodeAccountNotFound, err, "user account %s", addr)
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("read user %s: %w", addr, err)
	}
	if slot.Owner != p.ID() {
		return UserRecord{}, NewError(ErrCodeAuthorization, nil, "account %s is owned by %s", addr, slot.Owner)
	}
	user, err := DecodeUser(slot.Data)
	if errors.Is(err, ErrWrongAccountKind) {
		return UserRecord{}, NewError(ErrCodeInvalidArgument, err, "account %s is not a user account", addr)
	}
	return user, err
}

func (p *Program) writeUser(ctx context.Context, tx *store.Tx, addr ir.Pubkey, r UserRecord, seq int64) error {
	data, err := EncodeUser(r)
	if err != nil {
		return err
	}
	if err := tx.WriteSlotData(ctx, addr, data, seq); err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	return nil
}
