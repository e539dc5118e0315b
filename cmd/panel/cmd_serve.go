package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-panel/infrastructure/httpapi"
	"github.com/ahrav/go-panel/infrastructure/middleware"
)

func newServeCommand(env *cliEnv) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Endpoints:
  POST /feedback_processor/process_feedback  aggregate scores and analyze
  POST /real_time_feedback/submit_feedback   quick strengths/weaknesses analysis
  POST /report/generate_summary              per-category report summary
  POST /summarize_feedback                   summary of free-form feedback
  GET  /healthz                              liveness and active model
  GET  /metrics                              Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := env.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := middleware.NewPrometheusMetrics(reg)

			orchestrator, err := env.orchestrator(metrics)
			if err != nil {
				return err
			}

			srv := httpapi.New(orchestrator, httpapi.Config{
				Addr:            cfg.Addr,
				ReadTimeout:     cfg.ReadTimeout,
				WriteTimeout:    cfg.WriteTimeout,
				ShutdownTimeout: cfg.ShutdownTimeout,
				MaxBodyBytes:    cfg.MaxBodyBytes,
				CORSOrigins:     cfg.CORSOrigins,
				Logger:          env.logger,
				Metrics:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}
