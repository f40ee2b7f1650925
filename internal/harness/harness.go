package harness

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/blogsol/internal/address"
	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
	"github.com/roach88/blogsol/internal/store"
	"github.com/roach88/blogsol/internal/testutil"
)

// Harness holds the state of one scenario run.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	program *program.Program
	signers map[string]*auth.Keypair
	names   map[ir.Pubkey]string
	nonces  map[string]int64
	built   [][]ir.Instruction // Instructions per flow step, for resubmit
	logger  logrus.FieldLogger
}

// Run executes a scenario in a fresh in-memory store and returns the
// result. An error means the run itself broke; step and assertion
// mismatches are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	width := scenario.PostIDWidth
	if width == 0 {
		width = config.PostIDWidthDefault
	}
	deriver, err := address.NewDeriver(testutil.ProgramID, width)
	if err != nil {
		return nil, err
	}

	logger := testutil.SilentLogger()
	prog := program.New(st, deriver, program.WithLogger(logger))

	prefix := scenario.TracePrefix
	if prefix == "" {
		prefix = scenario.Name
	}
	ctx := context.Background()
	eng, err := engine.New(ctx, prog,
		engine.WithLogger(logger),
		engine.WithTraceGenerator(testutil.NewCountingGenerator(prefix)),
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		engine:  eng,
		program: prog,
		signers: make(map[string]*auth.Keypair, len(scenario.Signers)),
		names:   make(map[ir.Pubkey]string, len(scenario.Signers)),
		nonces:  make(map[string]int64, len(scenario.Signers)),
		built:   make([][]ir.Instruction, len(scenario.Flow)),
		logger:  logger,
	}
	for _, name := range scenario.Signers {
		kp := auth.Named(name)
		h.signers[name] = kp
		h.names[kp.Public()] = name
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Harness: h}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	digest, err := st.StateDigest(ctx)
	if err != nil {
		return nil, fmt.Errorf("state digest: %w", err)
	}
	result.Digest = digest
	return result, nil
}

// executeSetup funds signers. Setup airdrops must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupStep, result *Result) error {
	for i, step := range setup {
		receipt, err := h.engine.Airdrop(ctx, engine.AirdropRequest{
			To:       h.signers[step.Airdrop].Public(),
			Lamports: step.Lamports,
		})
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		result.AddAirdropTrace(step.Airdrop, step.Lamports, receipt.Seq)
	}
	return nil
}

// executeFlow submits every flow step and checks its receipt.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		times := max(step.Times, 1)
		for n := 0; n < times; n++ {
			ix, err := h.buildInstruction(i, step)
			if err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			h.built[i] = append(h.built[i], ix)

			receipt, err := h.engine.Execute(ctx, ix)
			if err != nil && program.CodeOf(err) == "" {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			result.AddInstructionTrace(string(ix.Name), h.names[ix.Signer], receipt.Outcome, receipt.PostID, receipt.Seq)

			if msg := checkExpect(step.Expect, receipt); msg != "" {
				label := fmt.Sprintf("flow[%d]", i)
				if times > 1 {
					label = fmt.Sprintf("flow[%d] #%d", i, n)
				}
				result.AddError(fmt.Sprintf("%s %s: %s", label, ix.Name, msg))
			}

			h.logger.WithFields(logrus.Fields{
				"step":        i,
				"instruction": ix.Name,
				"outcome":     receipt.Outcome,
				"seq":         receipt.Seq,
			}).Debug("flow step completed")
		}
	}
	return nil
}

// buildInstruction creates, or for resubmit reuses, the instruction of a
// flow step.
func (h *Harness) buildInstruction(index int, step FlowStep) (ir.Instruction, error) {
	if step.Resubmit != nil {
		prev := h.built[*step.Resubmit]
		if len(prev) == 0 {
			return ir.Instruction{}, fmt.Errorf("step %d built no instruction", *step.Resubmit)
		}
		return prev[len(prev)-1], nil
	}

	args, err := ir.ObjectFromMap(step.Args)
	if err != nil {
		return ir.Instruction{}, fmt.Errorf("args: %w", err)
	}

	kp := h.signers[step.Signer]
	nonce := h.nonces[step.Signer]
	if step.Nonce != nil {
		nonce = *step.Nonce
	}
	h.nonces[step.Signer] = nonce + 1

	ix := ir.Instruction{
		Program: h.program.ID(),
		Name:    ir.InstructionName(step.Invoke),
		Args:    args,
		Nonce:   nonce,
	}
	if len(step.Accounts) > 0 {
		ix.Accounts = make(map[string]ir.Pubkey, len(step.Accounts))
		for name, expr := range step.Accounts {
			key, err := h.resolve(expr)
			if err != nil {
				return ir.Instruction{}, fmt.Errorf("accounts.%s: %w", name, err)
			}
			ix.Accounts[name] = key
		}
	}

	if step.Unsigned {
		ix.Signer = kp.Public()
		if err := ir.Seal(&ix); err != nil {
			return ir.Instruction{}, err
		}
		return ix, nil
	}
	if err := kp.SignInstruction(&ix); err != nil {
		return ir.Instruction{}, err
	}
	return ix, nil
}

// resolve turns an account reference expression into an address.
func (h *Harness) resolve(expr string) (ir.Pubkey, error) {
	known := make(map[string]bool, len(h.signers))
	for name := range h.signers {
		known[name] = true
	}
	ref, err := parseRef(expr, known)
	if err != nil {
		return ir.Pubkey{}, err
	}

	authority := h.signers[ref.signer].Public()
	d := h.program.Deriver()
	switch ref.kind {
	case "user":
		addr, _ := d.User(authority)
		return addr, nil
	case "post":
		addr, _, err := d.Post(authority, ref.id)
		return addr, err
	default:
		return authority, nil
	}
}

// checkExpect compares a receipt with the expect clause. A nil clause
// expects success. Returns "" on match.
func checkExpect(expect *ExpectClause, receipt ir.Receipt) string {
	want := ir.OutcomeSuccess
	if expect != nil {
		want = expect.Outcome
	}
	if receipt.Outcome != want {
		if receipt.Message != "" {
			return fmt.Sprintf("expected outcome %s, got %s (%s)", want, receipt.Outcome, receipt.Message)
		}
		return fmt.Sprintf("expected outcome %s, got %s", want, receipt.Outcome)
	}
	if expect != nil && expect.PostID != nil {
		if receipt.PostID == nil {
			return fmt.Sprintf("expected post_id %d, got none", *expect.PostID)
		}
		if *receipt.PostID != *expect.PostID {
			return fmt.Sprintf("expected post_id %d, got %d", *expect.PostID, *receipt.PostID)
		}
	}
	return ""
}
