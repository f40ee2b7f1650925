package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventAirdrop, To: "alice", Lamports: 10, Seq: 1},
		{Type: EventInstruction, Instruction: "init_user", Signer: "alice", Outcome: "Success", Seq: 2},
		{Type: EventInstruction, Instruction: "create_post", Signer: "bob", Outcome: "AUTHORIZATION", Seq: 3},
		{Type: EventInstruction, Instruction: "create_post", Signer: "alice", Outcome: "Success", PostID: u64(0), Seq: 4},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Instruction: "create_post"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Instruction: "create_post", Signer: "bob", Outcome: "AUTHORIZATION"}))

	err := assertTraceContains(trace, Assertion{Instruction: "create_post", Signer: "bob", Outcome: "Success"})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, err.Error(), "create_post by bob with outcome Success")
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Instructions: []string{"init_user", "create_post"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Instructions: []string{"create_post", "create_post"}}))

	err := assertTraceOrder(trace, Assertion{Instructions: []string{"create_post", "init_user"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing init_user")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Instruction: "create_post", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Instruction: "create_post", Outcome: "Success", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Instruction: "init_user", Outcome: "RESOURCE", Count: 0}))

	err := assertTraceCount(trace, Assertion{Instruction: "init_user", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestCompareFields(t *testing.T) {
	actual := map[string]string{"name": "alice", "post_count": "2"}

	assert.NoError(t, compareFields(AssertUserState, actual, map[string]interface{}{"post_count": 2}))
	assert.NoError(t, compareFields(AssertUserState, actual, map[string]interface{}{"name": "alice"}))

	err := compareFields(AssertUserState, actual, map[string]interface{}{"post_count": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "post_count" = "2"`)

	err = compareFields(AssertUserState, actual, map[string]interface{}{"email": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a record field")
}

func TestEvaluateAssertions_StateNeedsContext(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Instruction: "init_user", Count: 1},
		{Type: AssertUserState, Authority: "alice", Expect: map[string]interface{}{"name": "alice"}},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "requires a harness context")
	assert.Contains(t, errs[1], "unknown assertion type")
}

func TestStateAssertionFailures(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: state
description: "state assertions report what they found"
signers: [alice, bob]
setup:
  - airdrop: alice
    lamports: 1000000000
flow:
  - invoke: init_user
    signer: alice
    args: { name: alice, avatar: "" }
assertions:
  - type: user_state
    authority: alice
    expect: { name: bob }
  - type: user_state
    authority: bob
    expect: { name: bob }
  - type: post_state
    authority: alice
    id: 0
    expect: { title: t }
  - type: account_absent
    authority: alice
  - type: balance
    authority: bob
    lamports: 1
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], `field "name" = "alice"`)
	assert.Contains(t, result.Errors[1], "ACCOUNT_NOT_FOUND")
	assert.Contains(t, result.Errors[2], "post 0 of alice")
	assert.Contains(t, result.Errors[3], "account exists")
	assert.Contains(t, result.Errors[4], "0 lamports")
}
