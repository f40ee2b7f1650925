package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/blogsol/internal/address"
	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/config"
	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
	"github.com/roach88/blogsol/internal/store"
)

// loadConfig reads configuration and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	return cfg, nil
}

// newLogger returns a logrus logger writing to w. Verbose forces debug.
func (o *RootOptions) newLogger(cfg config.Config, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if o.Verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	return log
}

// newFormatter builds the formatter for cmd's output streams.
func (o *RootOptions) newFormatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newDeriver builds the configured address deriver.
func newDeriver(cfg config.Config) (*address.Deriver, error) {
	programID, err := ir.ParsePubkey(cfg.Program.ID)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid program id", err)
	}
	d, err := address.NewDeriver(programID, cfg.Program.PostIDWidth)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid program config", err)
	}
	return d, nil
}

// runtime is an opened database with the program and engine over it.
type runtime struct {
	cfg     config.Config
	log     *logrus.Logger
	store   *store.Store
	program *program.Program
	engine  *engine.Engine
}

// openRuntime opens the configured database, creating its directory.
func (o *RootOptions) openRuntime(cmd *cobra.Command, opts ...engine.Option) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log := o.newLogger(cfg, cmd.ErrOrStderr())

	d, err := newDeriver(cfg)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	p := program.New(st, d, program.WithLogger(log))
	opts = append([]engine.Option{engine.WithLogger(log)}, opts...)
	e, err := engine.New(commandContext(cmd), p, opts...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	return &runtime{cfg: cfg, log: log, store: st, program: p, engine: e}, nil
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// loadSigner reads the keypair at path, or the configured one when empty.
func loadSigner(cfg config.Config, path string) (*auth.Keypair, error) {
	if path == "" {
		path = cfg.Keypair.Path
	}
	kp, err := auth.LoadKeypair(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load keypair %s", path), err)
	}
	return kp, nil
}

// parseKey parses a base58 identity given on the command line.
func parseKey(s string) (ir.Pubkey, error) {
	key, err := ir.ParsePubkey(s)
	if err != nil {
		return ir.Pubkey{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid key %q", s), err)
	}
	return key, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
