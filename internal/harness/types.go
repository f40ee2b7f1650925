package harness

// Trace event types.
const (
	EventAirdrop     = "airdrop"
	EventInstruction = "instruction"
)

// TraceEvent is one ledger-visible step of a scenario run.
// Identities are recorded by signer name.
type TraceEvent struct {
	Type        string  `json:"type"`
	Instruction string  `json:"instruction,omitempty"`
	Signer      string  `json:"signer,omitempty"`
	To          string  `json:"to,omitempty"`
	Lamports    uint64  `json:"lamports,omitempty"`
	Outcome     string  `json:"outcome,omitempty"`
	PostID      *uint64 `json:"post_id,omitempty"`
	Seq         int64   `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains airdrops and instructions in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Digest is the store's state digest after the flow.
	Digest string `json:"digest"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddAirdropTrace records an airdrop.
func (r *Result) AddAirdropTrace(to string, lamports uint64, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventAirdrop,
		To:       to,
		Lamports: lamports,
		Seq:      seq,
	})
}

// AddInstructionTrace records an executed or rejected instruction.
func (r *Result) AddInstructionTrace(instruction, signer, outcome string, postID *uint64, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:        EventInstruction,
		Instruction: instruction,
		Signer:      signer,
		Outcome:     outcome,
		PostID:      postID,
		Seq:         seq,
	})
}
