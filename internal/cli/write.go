package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
)

// ReceiptResult is the printed form of an instruction receipt.
type ReceiptResult struct {
	ir.Receipt
}

// Text implements Texter.
func (r ReceiptResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (seq %d)\n", r.Instruction, r.Outcome, r.Seq)
	fmt.Fprintf(&b, "  id:   %s\n", r.InstructionID)
	if r.User != nil {
		fmt.Fprintf(&b, "  user: %s\n", r.User)
	}
	if r.Post != nil {
		fmt.Fprintf(&b, "  post: %s (id %d)\n", r.Post, *r.PostID)
	}
	return b.String()
}

func (r ReceiptResult) traceID() string { return r.TraceID }

// AirdropResult is the printed form of an airdrop receipt.
type AirdropResult struct {
	engine.AirdropReceipt
}

// Text implements Texter.
func (r AirdropResult) Text() string {
	return fmt.Sprintf("Credited %d lamports to %s (balance %d, seq %d)\n", r.Lamports, r.To, r.Balance, r.Seq)
}

func (r AirdropResult) traceID() string { return r.TraceID }

// NewAirdropCommand creates the airdrop command.
func NewAirdropCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airdrop <lamports> [pubkey]",
		Short: "Credit lamports to an identity",
		Long: `Credit lamports to an identity so it can pay rent for new records.
The pubkey defaults to the configured keypair.

Examples:
  blogsol airdrop 1000000000
  blogsol airdrop 1000000000 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAirdrop(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runAirdrop(opts *RootOptions, args []string, cmd *cobra.Command) error {
	lamports, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || lamports == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid lamports %q", args[0]))
	}

	rt, err := opts.openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var to ir.Pubkey
	if len(args) == 2 {
		if to, err = parseKey(args[1]); err != nil {
			return err
		}
	} else {
		kp, err := loadSigner(rt.cfg, "")
		if err != nil {
			return err
		}
		to = kp.Public()
	}

	receipt, err := rt.engine.Airdrop(commandContext(cmd), engine.AirdropRequest{To: to, Lamports: lamports})
	if err != nil {
		return WrapExitError(ExitFailure, "airdrop failed", err)
	}
	return opts.newFormatter(cmd).Success(AirdropResult{receipt})
}

// SignOptions holds the flags shared by commands that sign instructions.
type SignOptions struct {
	*RootOptions
	Keypair string
	Nonce   int64
}

func (o *SignOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Keypair, "keypair", "k", "", "signing keypair (default from config)")
	cmd.Flags().Int64Var(&o.Nonce, "nonce", 0, "instruction nonce (default: current time in ns)")
}

// NewInitUserCommand creates the init-user command.
func NewInitUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignOptions{RootOptions: rootOpts}
	var name, avatar string

	cmd := &cobra.Command{
		Use:   "init-user",
		Short: "Create the signer's user record",
		Long: `Create the user record of the signing identity. Each identity has exactly
one user record; a second init-user fails with ADDRESS_COLLISION.

Examples:
  blogsol init-user --name alice --avatar https://example.com/a.png`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSigned(opts, cmd, ir.InitUser, ir.IRObject{
				"name":   ir.IRString(name),
				"avatar": ir.IRString(avatar),
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	_ = cmd.MarkFlagRequired("name")
	opts.bind(cmd)

	return cmd
}

// NewCreatePostCommand creates the create-post command.
func NewCreatePostCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignOptions{RootOptions: rootOpts}
	var title, content string

	cmd := &cobra.Command{
		Use:   "create-post",
		Short: "Append a post to the signer's user record",
		Long: `Create a post at the next id of the signer's user record.

Examples:
  blogsol create-post --title Hello --content World`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSigned(opts, cmd, ir.CreatePost, ir.IRObject{
				"title":   ir.IRString(title),
				"content": ir.IRString(content),
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "post title (required)")
	cmd.Flags().StringVar(&content, "content", "", "post body")
	_ = cmd.MarkFlagRequired("title")
	opts.bind(cmd)

	return cmd
}

func runSigned(opts *SignOptions, cmd *cobra.Command, name ir.InstructionName, args ir.IRObject) error {
	rt, err := opts.openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	kp, err := loadSigner(rt.cfg, opts.Keypair)
	if err != nil {
		return err
	}

	nonce := opts.Nonce
	if !cmd.Flags().Changed("nonce") {
		nonce = time.Now().UnixNano()
	}
	ix := ir.Instruction{
		Program: rt.program.ID(),
		Name:    name,
		Args:    args,
		Nonce:   nonce,
	}
	if err := kp.SignInstruction(&ix); err != nil {
		return WrapExitError(ExitCommandError, "failed to sign instruction", err)
	}
	opts.newFormatter(cmd).VerboseLog("signed %s %s as %s (nonce %d)", ix.Name, ix.ID, ix.Signer, ix.Nonce)
	return execute(opts.RootOptions, cmd, rt, ix)
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke <instruction.json>",
		Short: "Execute a signed instruction from a file",
		Long: `Execute an instruction that was signed elsewhere. The file holds the
instruction as JSON, the same body POST /v1/instructions accepts. Use "-"
to read standard input.

Example:
  blogsol invoke ./ix.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := readInstruction(cmd, args[0])
			if err != nil {
				return err
			}
			rt, err := rootOpts.openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			return execute(rootOpts, cmd, rt, ix)
		},
	}
	return cmd
}

// readInstruction decodes an instruction file, or stdin for "-".
func readInstruction(cmd *cobra.Command, path string) (ir.Instruction, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return ir.Instruction{}, WrapExitError(ExitCommandError, "failed to read instruction", err)
	}

	var ix ir.Instruction
	if err := json.Unmarshal(data, &ix); err != nil {
		return ir.Instruction{}, WrapExitError(ExitCommandError, "failed to parse instruction", err)
	}
	return ix, nil
}

// execute runs ix and prints the receipt. A rejected instruction prints
// its error code and exits with ExitFailure.
func execute(opts *RootOptions, cmd *cobra.Command, rt *runtime, ix ir.Instruction) error {
	f := opts.newFormatter(cmd)

	receipt, err := rt.engine.Execute(commandContext(cmd), ix)
	if err == nil {
		return f.Success(ReceiptResult{receipt})
	}

	code := program.CodeOf(err)
	if code == "" {
		return WrapExitError(ExitCommandError, "instruction failed", err)
	}
	if ferr := f.Error(string(code), err.Error(), ReceiptResult{receipt}); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitFailure, fmt.Sprintf("%s rejected", ix.Name), err)
}
