package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/semtweets/cli/cmd/semtweets/cli/collector"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCollectCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Accept tweets over HTTP and append them to the store",
		Long: `Start the collector, an HTTP listener that appends tweets to the store.

Endpoints:
  POST /api/v1/tweets         One tweet object, a JSON array, or NDJSON
  GET  /api/v1/tweets/count   Number of stored tweets
  POST /api/v1/clusters       Cluster the stored tweets, JSON report
  GET  /health                Liveness
  GET  /metrics               Prometheus metrics

Duplicate texts are skipped. Stops on SIGINT or SIGTERM.`,
		Example: `  semtweets collect --addr 127.0.0.1:8470
  curl -d '{"text": "hello world"}' http://127.0.0.1:8470/api/v1/tweets`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, d, err := preamble(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			if cmd.Flags().Changed("addr") {
				cfg.Collector.Addr = addr
			}
			logger, err := newLogger(cfg.Debug)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := collector.NewServer(d, cfg, logger)
			ready := make(chan string, 1)
			done := make(chan error, 1)
			go func() { done <- srv.Start(ready) }()

			select {
			case bound := <-ready:
				fmt.Fprintf(cmd.ErrOrStderr(), "collecting on http://%s (Ctrl-C to stop)\n", bound)
			case err := <-done:
				return fmt.Errorf("start collector: %w", err)
			}

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Warn("collector shutdown", zap.Error(err))
			}
			if err := <-done; err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "collector stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8470)")
	return cmd
}
