package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/gtminspect/internal/inspector"
	"github.com/ajitpratap0/gtminspect/internal/server"
	"github.com/ajitpratap0/gtminspect/pkg/config"
	"github.com/ajitpratap0/gtminspect/pkg/logger"
	"github.com/ajitpratap0/gtminspect/pkg/metrics"
)

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inspection HTTP API",
		Long: `Serve the inspection HTTP API.

Endpoints:
  GET  /api/health   liveness
  POST /api/inspect  flatten an uploaded export (raw JSON or multipart "file")
  GET  /api/columns  report column order
  GET  /metrics      Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile, map[string]string{
				"server.addr": "addr",
				"log.level":   "log-level",
			})
			if err != nil {
				return err
			}
			done, err := setup(cfg)
			if err != nil {
				return err
			}
			defer done()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	var (
		collector *metrics.Collector
		gatherer  prometheus.Gatherer
	)
	if cfg.Observability.EnableMetrics {
		collector = metrics.Default()
		gatherer = prometheus.DefaultGatherer
	}

	svc := inspector.NewService(log, collector, storageOptions(cfg, nil))
	srv := server.NewHTTPServer(svc, server.Options{
		Parse:      cfg.ParseOptions(),
		CORSOrigin: cfg.Server.CORSOrigin,
		Gatherer:   gatherer,
	}, log)

	return srv.Serve(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout)
}
