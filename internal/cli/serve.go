package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pagecheck/internal/refapp"
)

// shutdownTimeout bounds graceful shutdown of the reference app.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Faults refapp.Faults

	// onListen is called with the bound address once the listener is up.
	onListen func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	cfg := &opts.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reference application",
		Long: `Start the bundled reference application: login form, cookie sessions,
the protected distance-to-sun and nearest-sea pages, and logout.

The fault flags break one behaviour each, to see the checker catch it.

Examples:
  pagecheck serve --addr 127.0.0.1:3000
  pagecheck serve --variant static
  pagecheck serve --skip-range-check`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	cmd.Flags().StringVar(&cfg.Variant, "variant", cfg.Variant, "application variant (react|static)")
	cmd.Flags().BoolVar(&opts.Faults.SkipRangeCheck, "skip-range-check", false, "accept out-of-range coordinates")
	cmd.Flags().BoolVar(&opts.Faults.KeepSessionOnLogout, "keep-session-on-logout", false, "leave the session valid after logout")
	cmd.Flags().BoolVar(&opts.Faults.AllowAnonymous, "allow-anonymous", false, "serve protected pages without a session")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger(formatter.GetErrWriter())

	app, err := refapp.New(
		refapp.WithVariant(refapp.Variant(opts.Config.Variant)),
		refapp.WithFaults(opts.Faults),
		refapp.WithLogger(log),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build reference app", err)
	}

	ln, err := net.Listen("tcp", opts.Config.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	addr := ln.Addr().String()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s app on http://%s\n", app.Variant(), addr)
	if opts.onListen != nil {
		opts.onListen(addr)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return WrapExitError(ExitCommandError, "server error", err)
	case <-ctx.Done():
		log.Info("shutting down reference app")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown error", err)
	}
	return nil
}
