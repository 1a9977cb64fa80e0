package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/lettergraph"
	"github.com/aretw0/lettergraph/internal/cli"
	"github.com/aretw0/lettergraph/internal/presentation/tui"
	"github.com/aretw0/lettergraph/internal/telemetry"
	httpAdapter "github.com/aretw0/lettergraph/pkg/adapters/http"
	"github.com/aretw0/lettergraph/pkg/batch"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP evaluation server",
	Long: `Starts the stateless evaluation API (POST /v1/evaluate, /v1/batch,
/v1/graphs/validate, GET /v1/node-types) with /health and Prometheus /metrics.
Content blocks are reloaded when the content directory changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		shutdownTracing, err := telemetry.Setup(sc, "lettergraph", lettergraph.Version, cfg.OTelEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := cli.WatchContent(sc, app.Engine, logger, nil); err != nil {
			logger.Warn("content watch disabled", "error", err)
		}

		handler := httpAdapter.NewHandler(app.Engine,
			httpAdapter.WithBatchRunner(batch.New(app.Engine, batch.WithWorkers(cfg.BatchWorkers), batch.WithLogger(logger))),
			httpAdapter.WithRedactor(redactor),
			httpAdapter.WithMetrics(app.Registry),
			httpAdapter.WithHealthCheck(app.Health),
			httpAdapter.WithVersion(lettergraph.Version),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if term.IsTerminal(int(os.Stderr.Fd())) {
			tui.PrintBanner(os.Stderr)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("lettergraph server listening", "addr", srv.Addr, "graphs", cfg.GraphDir, "version", lettergraph.Version)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sc.Done():
			logger.Info("shutting down", "signal", sc.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			logger.Info("lettergraph server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Listen address (LETTERGRAPH_ADDR)")
}
