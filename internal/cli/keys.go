package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/blogsol/internal/auth"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Output string
	Force  bool
}

// KeygenResult is the output of keygen.
type KeygenResult struct {
	Path   string `json:"path"`
	Pubkey string `json:"pubkey"`
}

// Text implements Texter.
func (r KeygenResult) Text() string {
	return fmt.Sprintf("Wrote keypair to %s\npubkey: %s\n", r.Path, r.Pubkey)
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing keypair",
		Long: `Generate an ed25519 keypair and write it as a JSON byte array.

Examples:
  blogsol keygen
  blogsol keygen -o ./alice.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "keypair path (default from config)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing keypair")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	path := opts.Output
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Keypair.Path
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("keypair %s already exists (use --force to overwrite)", path))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return WrapExitError(ExitCommandError, "failed to check keypair path", err)
	}

	kp, err := auth.Generate()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate keypair", err)
	}
	if err := kp.Save(path); err != nil {
		return WrapExitError(ExitCommandError, "failed to save keypair", err)
	}

	return opts.newFormatter(cmd).Success(KeygenResult{Path: path, Pubkey: kp.Public().String()})
}

// AddressResult is a derived record address.
type AddressResult struct {
	Kind      string  `json:"kind"`
	Authority string  `json:"authority"`
	PostID    *uint64 `json:"post_id,omitempty"`
	Address   string  `json:"address"`
	Bump      uint8   `json:"bump"`
}

// Text implements Texter.
func (r AddressResult) Text() string {
	return fmt.Sprintf("%s (bump %d)\n", r.Address, r.Bump)
}

// NewAddressCommand creates the address command.
func NewAddressCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address user <authority> | address post <authority> <id>",
		Short: "Derive a record address",
		Long: `Derive the address of a user or post record without touching the database.

Examples:
  blogsol address user 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
  blogsol address post 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin 0`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddress(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runAddress(opts *RootOptions, args []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	d, err := newDeriver(cfg)
	if err != nil {
		return err
	}
	authority, err := parseKey(args[1])
	if err != nil {
		return err
	}

	result := AddressResult{Kind: args[0], Authority: authority.String()}
	switch {
	case args[0] == "user" && len(args) == 2:
		addr, bump := d.User(authority)
		result.Address, result.Bump = addr.String(), bump
	case args[0] == "post" && len(args) == 3:
		id, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid post id", err)
		}
		addr, bump, err := d.Post(authority, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot derive post address", err)
		}
		result.Address, result.Bump, result.PostID = addr.String(), bump, &id
	default:
		return NewExitError(ExitCommandError, "usage: address user <authority> | address post <authority> <id>")
	}

	return opts.newFormatter(cmd).Success(result)
}
