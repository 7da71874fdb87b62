package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	httpAdapter "github.com/aretw0/statecraft/internal/adapters/http"
	"github.com/aretw0/statecraft/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the machines and exposes them as a JSON API over HTTP, with
per-machine SSE streams, Mermaid graphs and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		simulated, _ := cmd.Flags().GetBool("simulate")

		rt, cfg, err := newRuntime(cmd, os.Stderr, simulated)
		if err != nil {
			return err
		}
		defer rt.Close()

		addr := cfg.HTTP.Addr
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			addr = v
		}

		handler := httpAdapter.NewHandler(rt.System,
			httpAdapter.WithMetrics(rt.Metrics.Handler()),
			httpAdapter.WithLogger(rt.Logger),
		)
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		rt.System.Start(sigCtx)

		srv := &http.Server{
			Addr:    addr,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			rt.Logger.Info("Starting Statecraft Server", "address", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			rt.Logger.Info("Start shutdown", "signal", sigCtx.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				rt.Logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			rt.Logger.Info("Statecraft Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
	serveCmd.Flags().Bool("simulate", false, "Run the remote-edit and sync simulators")
}
