package ir

// InstructionName identifies a program entry point.
type InstructionName string

// The program's entry points.
const (
	InitUser   InstructionName = "init_user"
	CreatePost InstructionName = "create_post"
)

// Account reference names used in Instruction.Accounts.
const (
	AccountUser      = "user"
	AccountPost      = "post"
	AccountAuthority = "authority"
)

// Instruction is a signed request to run one program entry point.
//
// Accounts carries the slot references the client computed. Missing
// references are derived by the program; supplied ones must match the
// derived addresses.
type Instruction struct {
	ID        string            `json:"id,omitempty"` // Content-addressed, set by Seal
	Program   Pubkey            `json:"program"`
	Name      InstructionName   `json:"instruction"`
	Args      IRObject          `json:"args"`
	Accounts  map[string]Pubkey `json:"accounts,omitempty"`
	Signer    Pubkey            `json:"signer"`
	Nonce     int64             `json:"nonce"`
	Signature Signature         `json:"signature,omitzero"`
}

// Outcome values recorded on receipts.
const (
	OutcomeSuccess = "Success"
)

// Receipt is the result of executing one instruction.
// Outcome is OutcomeSuccess or the error code that rejected it.
type Receipt struct {
	InstructionID string          `json:"instruction_id"`
	Instruction   InstructionName `json:"instruction"`
	Signer        Pubkey          `json:"signer"`
	Seq           int64           `json:"seq"` // Logical clock
	Outcome       string          `json:"outcome"`
	Message       string          `json:"message,omitempty"`
	User          *Pubkey         `json:"user,omitempty"`
	Post          *Pubkey         `json:"post,omitempty"`
	PostID        *uint64         `json:"post_id,omitempty"`
	TraceID       string          `json:"trace_id,omitempty"`
}

// Succeeded reports whether the instruction committed.
func (r Receipt) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
