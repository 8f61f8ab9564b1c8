package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/nixxel-company-limited/escpos-spool-bridge/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the command dispatch socket and the raw passthrough port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve runs the servers until ctx is done. If any server fails to start the others are stopped.
func (a *app) serve(ctx context.Context) error {
	svc, s, err := a.service()
	if err != nil {
		return err
	}

	dispatchLog := a.log.With().Str("component", "dispatch").Logger()
	servers := []*server.Server{
		server.NewWithLogger(server.NewDispatcher(svc, dispatchLog), a.cfg.ListenAddress, dispatchLog),
	}

	switch {
	case a.cfg.RawAddress == "":
		a.log.Info().Msg("raw passthrough disabled")
	case a.cfg.Printer == "":
		a.log.Warn().Msg("raw passthrough disabled: no default printer configured")
	default:
		rawLog := a.log.With().Str("component", "raw").Logger()
		servers = append(servers, server.NewWithLogger(
			server.NewRawHandler(s, a.cfg.Printer, rawLog),
			a.cfg.RawAddress,
			rawLog,
		))
	}

	for i, srv := range servers {
		if err := srv.StartAsync(); err != nil {
			stopAll(servers[:i])
			return err
		}
	}

	<-ctx.Done()
	a.log.Info().Msg("shutting down")
	return stopAll(servers)
}

// stopAll stops servers concurrently and returns the first error
func stopAll(servers []*server.Server) error {
	var g errgroup.Group
	for _, srv := range servers {
		g.Go(srv.Stop)
	}
	return g.Wait()
}
