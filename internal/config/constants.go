package config

// Namespace tags for address derivation. These are the first seed of every
// derived address and must never change once records exist.
const (
	UserSeed = "user"
	PostSeed = "post"
)

// Account type names. The first 8 bytes of SHA-256("account:" + name)
// prefix every slot so reads can reject a slot of the wrong kind.
const (
	UserAccountName = "UserAccount"
	PostAccountName = "PostAccount"
)

// DiscriminatorSize is the byte length of the account type prefix.
const DiscriminatorSize = 8

// Text limits in bytes.
const (
	MaxNameLen    = 256
	MaxAvatarLen  = 2000
	MaxTitleLen   = 256
	MaxContentLen = 2040
)

// Fixed-width field sizes in the slot layout.
const (
	lenPrefix  = 4  // u32 length before each string
	pubkeyLen  = 32 // authority, user
	counterLen = 8  // u64 counters and post id
)

// UserSpace is the slot size reserved for a UserRecord:
// discriminator + name + avatar + last_post_id + post_count + authority.
const UserSpace = DiscriminatorSize +
	lenPrefix + MaxNameLen +
	lenPrefix + MaxAvatarLen +
	counterLen + counterLen +
	pubkeyLen

// PostSpace is the slot size reserved for a PostRecord:
// discriminator + id + title + content + user + authority.
const PostSpace = DiscriminatorSize +
	counterLen +
	lenPrefix + MaxTitleLen +
	lenPrefix + MaxContentLen +
	pubkeyLen + pubkeyLen

// Rent parameters. A slot must hold RentExempt(space) lamports, paid by the
// creating identity.
const (
	LamportsPerByteYear    = 3480
	RentExemptionYears     = 2
	AccountStorageOverhead = 128
)

// RentExempt returns the lamports a slot of the given size must hold.
func RentExempt(space uint64) uint64 {
	return (AccountStorageOverhead + space) * LamportsPerByteYear * RentExemptionYears
}

// Post id encodings. The width bounds how many posts a user can create:
// ids run from 0 to 2^(8*width)-2, because the counter holding the next id
// must itself stay representable.
const (
	PostIDWidthLegacy  = 1 // one byte, as the first deployed layout used
	PostIDWidthDefault = 8
)

// ValidPostIDWidth reports whether w is a supported encoding width.
func ValidPostIDWidth(w int) bool {
	switch w {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// MaxPostCounter returns the largest value the post counters may hold for
// the given encoding width.
func MaxPostCounter(width int) uint64 {
	if width >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(width)) - 1
}
