package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eduvane/api/internal/handle"
	"eduvane/api/internal/httpserver"
)

func newServeCmd() *cobra.Command {
	var withBot bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serves the JSON API on $PORT. When the model configuration is invalid the
server still starts, answers /healthz and reports the problem on /readyz and
every other path with 503.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServe(ctx, a, withBot)
		},
	}
	cmd.Flags().BoolVar(&withBot, "bot", false, "also run the Telegram bot in this process")
	return cmd
}

func runServe(ctx context.Context, a *app, withBot bool) error {
	addr := ":" + a.cfg.Port
	orch, err := a.pipeline()
	if err != nil {
		a.log.Error("configuration invalid, serving health endpoints only", zap.Error(err))
		return httpserver.Run(ctx, addr, handle.Unavailable(err), a.log)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, addr, handle.New(orch, a.store, a.log).Routes(), a.log)
	})
	if withBot {
		g.Go(func() error { return runBot(gctx, a, orch) })
	}
	return g.Wait()
}
