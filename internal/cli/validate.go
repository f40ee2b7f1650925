package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/schema"
)

// ValidateResult reports the checks run on one instruction.
type ValidateResult struct {
	Valid       bool               `json:"valid"`
	Instruction ir.InstructionName `json:"instruction"`
	ID          string             `json:"id"`
	Errors      []string           `json:"errors,omitempty"`
}

// Text implements Texter.
func (r ValidateResult) Text() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ %s %s is valid\n", r.Instruction, r.ID)
		return b.String()
	}
	fmt.Fprintf(&b, "✗ %s is invalid\n", r.Instruction)
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <instruction.json | ->",
		Short: "Check a signed instruction without executing it",
		Long: `Check a signed instruction against the program interface: the program id,
the argument schema, the instruction id and the signature. Nothing is
written to the database.

Exit codes:
  0 - Instruction is valid
  1 - One or more checks failed
  2 - Command error (unreadable file, bad config)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	d, err := newDeriver(cfg)
	if err != nil {
		return err
	}
	ix, err := readInstruction(cmd, path)
	if err != nil {
		return err
	}
	sch, err := schema.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	result := ValidateResult{Instruction: ix.Name, ID: ix.ID}
	if ix.Program != d.Program() {
		result.Errors = append(result.Errors, fmt.Sprintf("program %s is not %s", ix.Program, d.Program()))
	}
	if err := sch.Validate(ix.Name, ix.Args); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	if id, err := ir.InstructionID(ix); err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else if ix.ID != "" && ix.ID != id {
		result.Errors = append(result.Errors, fmt.Sprintf("id %s does not match content id %s", ix.ID, id))
	} else {
		result.ID = id
	}
	if err := (auth.Ed25519Authorizer{}).Authorize(ix); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.Valid = len(result.Errors) == 0

	if err := opts.newFormatter(cmd).Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "instruction is invalid")
	}
	return nil
}

// NewIDLCommand creates the idl command.
func NewIDLCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "idl",
		Short:         "Print the CUE definitions of the program instructions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "json" {
				return rootOpts.newFormatter(cmd).Success(map[string]string{"cue": schema.Source()})
			}
			fmt.Fprint(cmd.OutOrStdout(), schema.Source())
			return nil
		},
	}
}
