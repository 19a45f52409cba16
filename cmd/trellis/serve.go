package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	config "github.com/hanpama/trellis/internal/config"
	executor "github.com/hanpama/trellis/internal/executor"
	metrics "github.com/hanpama/trellis/internal/metrics"
	otel "github.com/hanpama/trellis/internal/otel"
	server "github.com/hanpama/trellis/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over HTTP",
		Long: `Serve queries over HTTP.

  POST /query    {"query": "...", "arguments": {...}}
  GET  /schema   the schema SDL
  GET  /healthz
  GET  /metrics  when server.metrics is enabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				root.cfg.Server.Addr = addr
			}
			return runServe(cmd, root)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// newHandler builds the HTTP handler described by cfg. The returned func
// detaches the metrics subscribers.
func newHandler(cfg *config.Config, exec *executor.Executor) (http.Handler, func()) {
	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if cfg.Server.CORS {
		opts = append(opts, server.WithCORS("*"))
	}
	if cfg.Server.RateLimit > 0 {
		opts = append(opts, server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst))
	}
	release := func() {}
	if cfg.Server.Metrics {
		m := metrics.New()
		release = m.Subscribe()
		opts = append(opts, server.WithMetrics(m.Handler()))
	}
	return server.New(exec, opts...), release
}

func runServe(cmd *cobra.Command, root *rootOptions) error {
	cfg := root.cfg
	exec, err := root.engine()
	if err != nil {
		return err
	}

	shutdownTracing, err := otel.Setup(cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	h, release := newHandler(cfg, exec)
	defer release()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.String("addr", cfg.Server.Addr), slog.String("adapter", cfg.Adapter.Kind))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
