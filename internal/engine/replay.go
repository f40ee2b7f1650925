package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
	"github.com/roach88/blogsol/internal/store"
)

// Mismatch is a ledger entry whose replayed outcome differs from the
// recorded one.
type Mismatch struct {
	Seq      int64  `json:"seq"`
	Ref      string `json:"ref,omitempty"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	Entries      int        `json:"entries"`
	Instructions int        `json:"instructions"`
	Airdrops     int        `json:"airdrops"`
	Mismatches   []Mismatch `json:"mismatches,omitempty"`
	SourceDigest string     `json:"source_digest"`
	ReplayDigest string     `json:"replay_digest"`
}

// OK reports whether every outcome and the final state matched.
func (r ReplayReport) OK() bool {
	return len(r.Mismatches) == 0 && r.SourceDigest == r.ReplayDigest
}

// Replay re-executes the ledger of src on dst, which must be empty, keeping
// the recorded seqs and trace ids. Execution is deterministic, so a sound
// ledger reproduces every outcome and the same state digest.
func Replay(ctx context.Context, src *store.Store, dst *Engine) (ReplayReport, error) {
	var report ReplayReport

	last, err := dst.store.LastSeq(ctx)
	if err != nil {
		return report, err
	}
	if last != 0 {
		return report, ErrReplayTargetNotEmpty
	}

	entries, err := src.Entries(ctx)
	if err != nil {
		return report, fmt.Errorf("replay: read ledger: %w", err)
	}
	report.Entries = len(entries)

	dst.mu.Lock()
	defer dst.mu.Unlock()

	for _, entry := range entries {
		replayed, err := dst.replayEntry(ctx, entry)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", entry.Seq, err)
		}
		switch entry.Kind {
		case store.EntryInstruction:
			report.Instructions++
		case store.EntryAirdrop:
			report.Airdrops++
		}
		if replayed != entry.Outcome {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq:      entry.Seq,
				Ref:      entry.Ref,
				Recorded: entry.Outcome,
				Replayed: replayed,
			})
		}
	}

	if report.SourceDigest, err = src.StateDigest(ctx); err != nil {
		return report, err
	}
	if report.ReplayDigest, err = dst.store.StateDigest(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// replayEntry executes one ledger entry and returns its outcome.
// Caller holds e.mu.
func (e *Engine) replayEntry(ctx context.Context, entry store.Entry) (string, error) {
	switch entry.Kind {
	case store.EntryInstruction:
		var ix ir.Instruction
		if err := json.Unmarshal([]byte(entry.Body), &ix); err != nil {
			return "", fmt.Errorf("decode instruction: %w", err)
		}
		receipt, err := e.execute(ctx, ix, entry.Seq, entry.TraceID)
		if err != nil && program.CodeOf(err) == "" {
			return "", err
		}
		return receipt.Outcome, nil

	case store.EntryAirdrop:
		var req AirdropRequest
		if err := json.Unmarshal([]byte(entry.Body), &req); err != nil {
			return "", fmt.Errorf("decode airdrop: %w", err)
		}
		if _, err := e.airdrop(ctx, req, entry.Seq, entry.TraceID); err != nil {
			if program.CodeOf(err) == "" {
				return "", err
			}
			return string(program.CodeOf(err)), nil
		}
		return ir.OutcomeSuccess, nil

	default:
		return "", fmt.Errorf("unknown entry kind %q", entry.Kind)
	}
}
