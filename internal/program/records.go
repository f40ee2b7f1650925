package program

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
)

// ErrWrongAccountKind is returned when slot data does not start with the
// expected discriminator.
var ErrWrongAccountKind = errors.New("slot holds a different account kind")

// UserRecord is the per-identity profile and post counter.
// Field order is the Borsh layout stored in the slot.
type UserRecord struct {
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar"`
	LastPostID uint64    `json:"last_post_id"`
	PostCount  uint64    `json:"post_count"`
	Authority  ir.Pubkey `json:"authority"`
}

// PostRecord is one post. User is the address of the author's UserRecord.
type PostRecord struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	User      ir.Pubkey `json:"user"`
	Authority ir.Pubkey `json:"authority"`
}

var (
	userDiscriminator = discriminator(config.UserAccountName)
	postDiscriminator = discriminator(config.PostAccountName)
)

func discriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:config.DiscriminatorSize]
}

// AccountKind names the record type held by a slot.
type AccountKind string

const (
	KindUser    AccountKind = config.UserAccountName
	KindPost    AccountKind = config.PostAccountName
	KindUnknown AccountKind = "Unknown"
)

// KindOf inspects the discriminator of slot data.
func KindOf(data []byte) AccountKind {
	switch {
	case bytes.HasPrefix(data, userDiscriminator):
		return KindUser
	case bytes.HasPrefix(data, postDiscriminator):
		return KindPost
	}
	return KindUnknown
}

// EncodeUser serializes r with its discriminator.
func EncodeUser(r UserRecord) ([]byte, error) {
	return encode(userDiscriminator, r)
}

// EncodePost serializes r with its discriminator.
func EncodePost(r PostRecord) ([]byte, error) {
	return encode(postDiscriminator, r)
}

// DecodeUser parses slot data holding a UserRecord. Trailing padding is
// ignored.
func DecodeUser(data []byte) (UserRecord, error) {
	var r UserRecord
	return r, decode(userDiscriminator, data, &r)
}

// DecodePost parses slot data holding a PostRecord.
func DecodePost(data []byte) (PostRecord, error) {
	var r PostRecord
	return r, decode(postDiscriminator, data, &r)
}

func encode(disc []byte, v any) ([]byte, error) {
	body, err := borsh.Serialize(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return append(append([]byte(nil), disc...), body...), nil
}

func decode(disc, data []byte, out any) error {
	if !bytes.HasPrefix(data, disc) {
		return ErrWrongAccountKind
	}
	if err := borsh.Deserialize(out, data[len(disc):]); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
