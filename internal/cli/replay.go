package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/program"
	"github.com/roach88/blogsol/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Into string // optional - keep the replayed database at this path
}

// ReplayResult is the printed replay report.
type ReplayResult struct {
	engine.ReplayReport
	OK bool `json:"ok"`
}

// Text implements Texter.
func (r ReplayResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Replayed %d entries (%d instructions, %d airdrops)\n",
		r.Entries, r.Instructions, r.Airdrops)
	for _, m := range r.Mismatches {
		fmt.Fprintf(&b, "  ✗ seq %d: recorded %s, replayed %s\n", m.Seq, m.Recorded, m.Replayed)
	}
	fmt.Fprintf(&b, "source digest: %s\n", r.SourceDigest)
	fmt.Fprintf(&b, "replay digest: %s\n", r.ReplayDigest)
	if r.OK {
		b.WriteString("✓ deterministic\n")
	} else {
		b.WriteString("✗ replay diverged\n")
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the ledger and verify determinism",
		Long: `Re-execute every ledger entry of the database on an empty store, keeping
the recorded seqs and trace ids, then compare each outcome and the final
state digest with the source.

Exit codes:
  0 - Replay reproduced every outcome and the state digest
  1 - Replay diverged
  2 - Command error (database not found, target not empty, etc.)

Examples:
  blogsol replay --db ./blogsol.db
  blogsol replay --db ./blogsol.db --into ./replayed.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Into, "into", "", "replay into this database instead of memory (must be empty)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	log := opts.newLogger(cfg, cmd.ErrOrStderr())
	d, err := newDeriver(cfg)
	if err != nil {
		return err
	}

	if cfg.Database.Path != ":memory:" {
		if _, err := os.Stat(cfg.Database.Path); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("database %s cannot be read", cfg.Database.Path), err)
		}
	}
	src, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer src.Close()

	target := opts.Into
	if target == "" {
		target = ":memory:"
	} else if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create replay target directory", err)
		}
	}
	dst, err := store.Open(target)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open replay target", err)
	}
	defer dst.Close()

	e, err := engine.New(ctx, program.New(dst, d, program.WithLogger(log)), engine.WithLogger(log))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	report, err := engine.Replay(ctx, src, e)
	if errors.Is(err, engine.ErrReplayTargetNotEmpty) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("replay target %s is not empty", target), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{ReplayReport: report, OK: report.OK()}
	if err := opts.newFormatter(cmd).Success(result); err != nil {
		return err
	}
	if !result.OK {
		return NewExitError(ExitFailure, "replay diverged")
	}
	return nil
}
