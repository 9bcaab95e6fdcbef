package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ferrylabs/ferry/pkg/logger"
	"github.com/ferrylabs/ferry/proxy"
)

const rootLongDesc string = `ferry is a pass-through relay for OpenAI-style chat completions.

It accepts requests on /v1/chat/completions, translates them into the
configured upstream provider's API call, and relays the response back,
including streamed output. Configuration comes from the environment
(optionally via a .env file):

  PORT              listening port (default 8080)
  UPSTREAM_URL      upstream provider base URL
  UPSTREAM_API_KEY  bearer credential for the upstream (required)
  UPSTREAM_TIMEOUT  upstream timeout in seconds (default 120)
  DEFAULT_MODEL     model substituted when the caller omits one
  FERRY_ENV         "production" hides upstream error details

Examples:
  UPSTREAM_API_KEY=sk-... ferry
  ferry --listen :9090 --debug`

type rootCommander struct {
	listenAddr  string
	upstreamURL string
	debug       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmder := &rootCommander{}

	cmd := &cobra.Command{
		Use:           "ferry",
		Short:         "Relay proxy for OpenAI-style chat completions",
		Long:          rootLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (overrides PORT)")
	cmd.Flags().StringVarP(&cmder.upstreamURL, "upstream", "u", "", "Upstream provider base URL (overrides UPSTREAM_URL)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (r *rootCommander) run(ctx context.Context) error {
	log := logger.NewLogger(r.debug)
	defer log.Sync()

	config, err := proxy.FromEnv()
	if err != nil {
		// Fatal: the relay must not start without a valid configuration.
		log.Fatal("configuration error", zap.Error(err))
	}

	// Flags override the environment.
	if r.listenAddr != "" {
		config.ListenAddr = r.listenAddr
	}
	if r.upstreamURL != "" {
		config.UpstreamURL = r.upstreamURL
	}

	p := proxy.New(config, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		log.Error("relay server failed", zap.Error(err))
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
			return err
		}
		log.Info("relay server stopped")
		return nil
	}
}
