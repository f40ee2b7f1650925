package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blogsol/internal/program"
	"github.com/roach88/blogsol/internal/store"
)

// UserResult is the printed form of a user record.
type UserResult struct {
	program.UserAccount
}

// Text implements Texter.
func (r UserResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "User %s\n", r.Address)
	fmt.Fprintf(&b, "  name:         %s\n", r.Name)
	fmt.Fprintf(&b, "  avatar:       %s\n", r.Avatar)
	fmt.Fprintf(&b, "  authority:    %s\n", r.Authority)
	fmt.Fprintf(&b, "  last_post_id: %d\n", r.LastPostID)
	fmt.Fprintf(&b, "  post_count:   %d\n", r.PostCount)
	return b.String()
}

// PostsResult is the printed form of one or more posts.
type PostsResult []program.PostAccount

// Text implements Texter.
func (r PostsResult) Text() string {
	if len(r) == 0 {
		return "No posts.\n"
	}
	var b strings.Builder
	for i, p := range r {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "#%d %s\n", p.ID, p.Title)
		fmt.Fprintf(&b, "  address: %s\n", p.Address)
		if p.Content != "" {
			fmt.Fprintf(&b, "  %s\n", p.Content)
		}
	}
	return b.String()
}

// NewUserCommand creates the user command.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "user <authority>",
		Short:         "Show an identity's user record",
		Args:          cobra.ExactArgs(1),
		Example:       `  blogsol user 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLookup(rootOpts, cmd, args[0], func(rt *runtime, f *OutputFormatter, authority string) error {
				key, err := parseKey(authority)
				if err != nil {
					return err
				}
				user, err := rt.program.User(commandContext(cmd), key)
				if err != nil {
					return lookupError(f, err)
				}
				return f.Success(UserResult{user})
			})
		},
	}
}

// NewPostCommand creates the post command.
func NewPostCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "post <authority> <id>",
		Short:         "Show one post",
		Args:          cobra.ExactArgs(2),
		Example:       `  blogsol post 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin 0`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid post id", err)
			}
			return withLookup(rootOpts, cmd, args[0], func(rt *runtime, f *OutputFormatter, authority string) error {
				key, err := parseKey(authority)
				if err != nil {
					return err
				}
				post, err := rt.program.Post(commandContext(cmd), key, id)
				if err != nil {
					return lookupError(f, err)
				}
				return f.Success(PostsResult{post})
			})
		},
	}
}

// NewPostsCommand creates the posts command.
func NewPostsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "posts <authority>",
		Short:         "List every post of an identity in id order",
		Args:          cobra.ExactArgs(1),
		Example:       `  blogsol posts 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLookup(rootOpts, cmd, args[0], func(rt *runtime, f *OutputFormatter, authority string) error {
				key, err := parseKey(authority)
				if err != nil {
					return err
				}
				posts, err := rt.program.Posts(commandContext(cmd), key)
				if err != nil {
					return lookupError(f, err)
				}
				return f.Success(PostsResult(posts))
			})
		},
	}
}

func withLookup(opts *RootOptions, cmd *cobra.Command, arg string, fn func(*runtime, *OutputFormatter, string) error) error {
	rt, err := opts.openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt, opts.newFormatter(cmd), arg)
}

// lookupError prints a program error and exits with ExitFailure. Other
// errors are command errors.
func lookupError(f *OutputFormatter, err error) error {
	code := program.CodeOf(err)
	if code == "" {
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}
	if ferr := f.Error(string(code), err.Error(), nil); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitFailure, "lookup failed", err)
}

// LedgerOptions holds flags for the ledger command.
type LedgerOptions struct {
	*RootOptions
	Trace   string // optional - one trace id
	Outcome string // optional - filter by outcome
}

// LedgerResult holds the listed ledger entries.
type LedgerResult struct {
	Entries []store.Entry `json:"entries"`
	Total   int           `json:"total"`
}

// Text implements Texter.
func (r LedgerResult) Text() string {
	if len(r.Entries) == 0 {
		return "No ledger entries.\n"
	}
	var b strings.Builder
	for _, e := range r.Entries {
		ref := e.Ref
		if len(ref) > 16 {
			ref = ref[:16]
		}
		fmt.Fprintf(&b, "[%d] %-11s %-18s %s", e.Seq, e.Kind, e.Outcome, ref)
		if e.TraceID != "" {
			fmt.Fprintf(&b, " trace=%s", e.TraceID)
		}
		b.WriteString("\n")
		if e.Message != "" {
			fmt.Fprintf(&b, "      %s\n", e.Message)
		}
	}
	fmt.Fprintf(&b, "\n%d entries\n", r.Total)
	return b.String()
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List ledger entries in seq order",
		Long: `List the ledger: every airdrop and every executed or rejected instruction
in seq order.

Examples:
  blogsol ledger
  blogsol ledger --outcome AUTHORIZATION
  blogsol ledger --trace 0192f3c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Trace, "trace", "", "show only the entry with this trace id")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter by outcome (Success or an error code)")

	return cmd
}

func runLedger(opts *LedgerOptions, cmd *cobra.Command) error {
	rt, err := opts.openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	entries, err := rt.store.Entries(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}

	filtered := make([]store.Entry, 0, len(entries))
	for _, e := range entries {
		if opts.Trace != "" && e.TraceID != opts.Trace {
			continue
		}
		if opts.Outcome != "" && e.Outcome != opts.Outcome {
			continue
		}
		filtered = append(filtered, e)
	}

	return opts.newFormatter(cmd).Success(LedgerResult{Entries: filtered, Total: len(filtered)})
}
