// Package harness runs YAML scenarios against a fresh engine.
//
// # Scenario Format
//
//	name: alice_blog
//	description: "What this scenario validates"
//	post_id_width: 8
//	signers: [alice, bob]
//	setup:
//	  - airdrop: alice
//	    lamports: 1000000000
//	flow:
//	  - invoke: init_user
//	    signer: alice
//	    args: { name: alice, avatar: a.png }
//	  - invoke: create_post
//	    signer: bob
//	    args: { title: t, content: c }
//	    accounts: { user: "user:alice" }
//	    expect:
//	      outcome: AUTHORIZATION
//	assertions:
//	  - type: trace_count
//	    instruction: create_post
//	    count: 1
//	  - type: user_state
//	    authority: alice
//	    expect: { last_post_id: 0, post_count: 0 }
//
// Signers are deterministic keypairs derived from their names, so the same
// scenario always produces the same addresses. Account references take the
// forms "user:<signer>", "post:<signer>:<id>" or a bare signer name.
//
// # Steps
//
// A step without expect must succeed. Nonces count up per signer unless a
// step pins one. times repeats a step; resubmit sends the instruction built
// by an earlier step again; unsigned leaves the signature empty.
//
// # Assertion Types
//
//   - trace_contains: an instruction appears, optionally by signer and outcome
//   - trace_order: instructions appear in the given order
//   - trace_count: an instruction appears exactly N times
//   - user_state: fields of a signer's UserRecord
//   - post_state: fields of a signer's PostRecord by id
//   - account_absent: no user, or no post at id, exists for a signer
//   - balance: a signer's lamport balance
//
// # Deterministic Testing
//
// Each run uses an in-memory store and counting trace ids. Golden traces
// leave out addresses, instruction ids and messages, which keeps them
// readable and stable under changes to the derivation inputs.
package harness
