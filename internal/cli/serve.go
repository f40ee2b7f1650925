package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/metrics"
	"github.com/roach88/blogsol/internal/rpc"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string // optional - overrides rpc.addr
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON RPC API",
		Long: `Run the single-writer engine and serve the JSON RPC API over HTTP.
Instructions from all clients are executed one at a time in arrival order.
Prometheus metrics are exposed on /metrics.

Examples:
  blogsol serve
  blogsol serve --addr 127.0.0.1:8899 --db ./blogsol.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.NewRecorder()
	rt, err := opts.openRuntime(cmd, engine.WithObserver(rec))
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := rt.cfg.RPC.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	gin.SetMode(gin.ReleaseMode)
	handler := rpc.NewHandler(rt.engine, rt.program, rec.Handler(), rt.cfg.RPC.MaxAirdrop, rt.log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           rpc.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := rt.engine.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		rt.log.WithField("addr", addr).Info("rpc listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		rt.log.Info("rpc shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}
