package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/ir"
)

// Scenario defines a run of instructions and the state it must leave.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// PostIDWidth is the post id encoding width. Zero means the default.
	PostIDWidth int `yaml:"post_id_width,omitempty"`

	// Signers lists the named identities the scenario may use.
	Signers []string `yaml:"signers"`

	// Setup funds signers before the flow. Airdrops always succeed.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Flow contains the instructions with their expected outcomes.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`

	// TracePrefix prefixes generated trace ids. Defaults to the scenario name.
	TracePrefix string `yaml:"trace_prefix,omitempty"`
}

// SetupStep credits a signer.
type SetupStep struct {
	Airdrop  string `yaml:"airdrop"`
	Lamports uint64 `yaml:"lamports"`
}

// FlowStep submits one instruction, or the same instruction shape several
// times.
type FlowStep struct {
	// Invoke is the instruction name (init_user, create_post).
	Invoke string `yaml:"invoke"`

	// Signer names the identity that signs.
	Signer string `yaml:"signer"`

	// Args contains the instruction arguments.
	Args map[string]interface{} `yaml:"args"`

	// Accounts overrides account references. Omitted ones are derived.
	Accounts map[string]string `yaml:"accounts,omitempty"`

	// Nonce pins the nonce instead of the signer's running count.
	Nonce *int64 `yaml:"nonce,omitempty"`

	// Unsigned submits the instruction with no signature.
	Unsigned bool `yaml:"unsigned,omitempty"`

	// Resubmit sends the instruction built by an earlier flow step again.
	Resubmit *int `yaml:"resubmit,omitempty"`

	// Times repeats the step with fresh nonces. Zero means once.
	Times int `yaml:"times,omitempty"`

	// Expect specifies the expected outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected receipt.
type ExpectClause struct {
	// Outcome is "Success" or an error code such as ADDRESS_COLLISION.
	Outcome string `yaml:"outcome"`

	// PostID is the expected allocated id of a create_post.
	PostID *uint64 `yaml:"post_id,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Instruction is the instruction name (trace_contains, trace_count).
	Instruction string `yaml:"instruction,omitempty"`

	// Instructions is the expected order (trace_order).
	Instructions []string `yaml:"instructions,omitempty"`

	// Signer filters trace_contains by signer name.
	Signer string `yaml:"signer,omitempty"`

	// Outcome filters trace_contains and trace_count by outcome.
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Authority names the signer whose records are checked.
	Authority string `yaml:"authority,omitempty"`

	// ID selects a post (post_state, account_absent).
	ID *uint64 `yaml:"id,omitempty"`

	// Lamports is the expected balance (balance).
	Lamports *uint64 `yaml:"lamports,omitempty"`

	// Expect contains expected record fields. Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertUserState     = "user_state"
	AssertPostState     = "post_state"
	AssertAccountAbsent = "account_absent"
	AssertBalance       = "balance"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.PostIDWidth != 0 && !config.ValidPostIDWidth(s.PostIDWidth) {
		return fmt.Errorf("post_id_width must be 1, 2, 4 or 8, got %d", s.PostIDWidth)
	}
	if len(s.Signers) == 0 {
		return fmt.Errorf("signers list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	signers := make(map[string]bool, len(s.Signers))
	for i, name := range s.Signers {
		if name == "" {
			return fmt.Errorf("signers[%d]: name is required", i)
		}
		if signers[name] {
			return fmt.Errorf("signers[%d]: duplicate signer %q", i, name)
		}
		signers[name] = true
	}

	for i, step := range s.Setup {
		if !signers[step.Airdrop] {
			return fmt.Errorf("setup[%d]: unknown signer %q", i, step.Airdrop)
		}
		if step.Lamports == 0 {
			return fmt.Errorf("setup[%d]: lamports must be positive", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step, signers); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, signers); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step FlowStep, signers map[string]bool) error {
	if step.Expect != nil && step.Expect.Outcome == "" {
		return fmt.Errorf("flow[%d].expect: outcome is required", i)
	}
	if step.Times < 0 {
		return fmt.Errorf("flow[%d]: times must be non-negative", i)
	}
	if step.Resubmit != nil {
		if *step.Resubmit < 0 || *step.Resubmit >= i {
			return fmt.Errorf("flow[%d]: resubmit must name an earlier step, got %d", i, *step.Resubmit)
		}
		return nil
	}

	switch ir.InstructionName(step.Invoke) {
	case ir.InitUser, ir.CreatePost:
	case "":
		return fmt.Errorf("flow[%d]: invoke is required", i)
	default:
		return fmt.Errorf("flow[%d]: unknown instruction %q", i, step.Invoke)
	}
	if !signers[step.Signer] {
		return fmt.Errorf("flow[%d]: unknown signer %q", i, step.Signer)
	}
	if step.Args == nil {
		return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
	}
	for name, ref := range step.Accounts {
		switch name {
		case ir.AccountUser, ir.AccountPost, ir.AccountAuthority:
		default:
			return fmt.Errorf("flow[%d]: unknown account %q", i, name)
		}
		if _, err := parseRef(ref, signers); err != nil {
			return fmt.Errorf("flow[%d].accounts.%s: %w", i, name, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, signers map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Instruction == "" {
			return fmt.Errorf("assertions[%d]: instruction is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Instructions) == 0 {
			return fmt.Errorf("assertions[%d]: instructions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Instruction == "" {
			return fmt.Errorf("assertions[%d]: instruction is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertUserState, AssertPostState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
		if a.Type == AssertPostState && a.ID == nil {
			return fmt.Errorf("assertions[%d]: id is required for post_state", index)
		}
	case AssertAccountAbsent:
	case AssertBalance:
		if a.Lamports == nil {
			return fmt.Errorf("assertions[%d]: lamports is required for balance", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	switch a.Type {
	case AssertUserState, AssertPostState, AssertAccountAbsent, AssertBalance:
		if !signers[a.Authority] {
			return fmt.Errorf("assertions[%d]: unknown authority %q", index, a.Authority)
		}
	}
	return nil
}

// accountRef is a parsed account reference expression.
type accountRef struct {
	kind   string // "user", "post" or "signer"
	signer string
	id     uint64
}

// parseRef parses "user:<signer>", "post:<signer>:<id>" or "<signer>".
func parseRef(expr string, signers map[string]bool) (accountRef, error) {
	parts := strings.Split(expr, ":")
	var ref accountRef
	switch {
	case len(parts) == 1:
		ref = accountRef{kind: "signer", signer: parts[0]}
	case len(parts) == 2 && parts[0] == "user":
		ref = accountRef{kind: "user", signer: parts[1]}
	case len(parts) == 3 && parts[0] == "post":
		id, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return accountRef{}, fmt.Errorf("invalid post id in %q", expr)
		}
		ref = accountRef{kind: "post", signer: parts[1], id: id}
	default:
		return accountRef{}, fmt.Errorf("invalid account reference %q", expr)
	}
	if !signers[ref.signer] {
		return accountRef{}, fmt.Errorf("unknown signer %q in %q", ref.signer, expr)
	}
	return ref, nil
}
