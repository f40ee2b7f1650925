package harness

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInstruction {
				fmt.Fprintf(&buf, "  [%d] %s by %s: %s\n", i+1, event.Instruction, event.Signer, event.Outcome)
			}
		}
	}
	return buf.String()
}

// assertTraceContains checks that an instruction appears in the trace,
// filtered by signer and outcome when given.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matchEvent(event, assertion) && (assertion.Signer == "" || event.Signer == assertion.Signer) {
			return nil
		}
	}

	expected := "instruction " + assertion.Instruction
	if assertion.Signer != "" {
		expected += " by " + assertion.Signer
	}
	if assertion.Outcome != "" {
		expected += " with outcome " + assertion.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if instructions appear in the specified order.
// Intervening instructions are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Instructions) &&
			event.Type == EventInstruction && event.Instruction == assertion.Instructions[next] {
			next++
		}
	}
	if next == len(assertion.Instructions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("instructions in order: %v", assertion.Instructions),
		Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(assertion.Instructions), assertion.Instructions[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks if the instruction appears exactly the specified
// number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matchEvent(event, assertion) {
			count++
		}
	}

	if count != assertion.Count {
		what := assertion.Instruction
		if assertion.Outcome != "" {
			what += " with outcome " + assertion.Outcome
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func matchEvent(event TraceEvent, assertion Assertion) bool {
	return event.Type == EventInstruction &&
		event.Instruction == assertion.Instruction &&
		(assertion.Outcome == "" || event.Outcome == assertion.Outcome)
}

// assertUserState checks fields of a signer's UserRecord.
func (h *Harness) assertUserState(ctx context.Context, assertion Assertion) error {
	user, err := h.program.User(ctx, h.signers[assertion.Authority].Public())
	if err != nil {
		return &AssertionError{
			Type:     AssertUserState,
			Expected: fmt.Sprintf("user record of %s", assertion.Authority),
			Actual:   err.Error(),
		}
	}
	actual := map[string]string{
		"name":         user.Name,
		"avatar":       user.Avatar,
		"last_post_id": strconv.FormatUint(user.LastPostID, 10),
		"post_count":   strconv.FormatUint(user.PostCount, 10),
		"authority":    h.nameOf(user.Authority),
	}
	return compareFields(AssertUserState, actual, assertion.Expect)
}

// assertPostState checks fields of a signer's PostRecord.
func (h *Harness) assertPostState(ctx context.Context, assertion Assertion) error {
	post, err := h.program.Post(ctx, h.signers[assertion.Authority].Public(), *assertion.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertPostState,
			Expected: fmt.Sprintf("post %d of %s", *assertion.ID, assertion.Authority),
			Actual:   err.Error(),
		}
	}
	userAddr, _ := h.program.Deriver().User(post.Authority)
	user := "(foreign)"
	if post.User == userAddr {
		user = "user:" + h.nameOf(post.Authority)
	}
	actual := map[string]string{
		"id":        strconv.FormatUint(post.ID, 10),
		"title":     post.Title,
		"content":   post.Content,
		"authority": h.nameOf(post.Authority),
		"user":      user,
	}
	return compareFields(AssertPostState, actual, assertion.Expect)
}

// assertAccountAbsent checks that a user, or a post when ID is set, was
// never created.
func (h *Harness) assertAccountAbsent(ctx context.Context, assertion Assertion) error {
	authority := h.signers[assertion.Authority].Public()
	var err error
	what := "user of " + assertion.Authority
	if assertion.ID != nil {
		what = fmt.Sprintf("post %d of %s", *assertion.ID, assertion.Authority)
		_, err = h.program.Post(ctx, authority, *assertion.ID)
	} else {
		_, err = h.program.User(ctx, authority)
	}
	if program.IsAccountNotFoundError(err) {
		return nil
	}
	actual := "account exists"
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Type:     AssertAccountAbsent,
		Expected: what + " absent",
		Actual:   actual,
	}
}

// assertBalance checks a signer's lamport balance.
func (h *Harness) assertBalance(ctx context.Context, assertion Assertion) error {
	balance, err := h.store.Balance(ctx, h.signers[assertion.Authority].Public())
	if err != nil {
		return err
	}
	if balance != *assertion.Lamports {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s holds %d lamports", assertion.Authority, *assertion.Lamports),
			Actual:   fmt.Sprintf("%d lamports", balance),
		}
	}
	return nil
}

func (h *Harness) nameOf(key ir.Pubkey) string {
	if name, ok := h.names[key]; ok {
		return name
	}
	return key.String()
}

// compareFields checks expected against actual with subset semantics.
// Values are compared in their YAML text form, so 2 matches "2".
func compareFields(kind string, actual map[string]string, expected map[string]interface{}) error {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q is not a record field", key),
			}
		}
		want := fmt.Sprint(expected[key])
		if want != got {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q = %q", key, want),
				Actual:   fmt.Sprintf("field %q = %q", key, got),
			}
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx     context.Context
	Harness *Harness
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// State assertions need actx; trace assertions run without it.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertUserState, AssertPostState, AssertAccountAbsent, AssertBalance:
			if actx == nil || actx.Harness == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a harness context", i, assertion.Type)
				break
			}
			h := actx.Harness
			switch assertion.Type {
			case AssertUserState:
				err = h.assertUserState(actx.Ctx, assertion)
			case AssertPostState:
				err = h.assertPostState(actx.Ctx, assertion)
			case AssertAccountAbsent:
				err = h.assertAccountAbsent(actx.Ctx, assertion)
			default:
				err = h.assertBalance(actx.Ctx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
