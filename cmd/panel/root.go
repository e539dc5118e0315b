package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/internal/application"
	"github.com/ahrav/go-panel/internal/ports"
)

var version = "dev"

// clientFactory builds the completion client from configuration.
type clientFactory func(cfg application.LLMConfig, metrics *middleware.PrometheusMetrics, logger *slog.Logger, getenv func(string) string) (ports.LLMClient, error)

// deps are the process level collaborators, replaced in tests.
type deps struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	getenv    func(string) string
	newClient clientFactory
}

func defaultDeps() deps {
	return deps{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		getenv:    os.Getenv,
		newClient: buildClient,
	}
}

// cliEnv is the state shared by every subcommand once flags are parsed.
type cliEnv struct {
	deps

	configPath string
	debug      bool

	cfg    *application.Config
	logger *slog.Logger
}

func newRootCommand(d deps) *cobra.Command {
	env := &cliEnv{deps: d}

	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Judge feedback aggregation and analysis",
		Long: `panel aggregates the scores and comments a panel of judges gave a startup
and asks a completion service for a written analysis of strengths,
weaknesses and recommendations.

Run "panel serve" for the HTTP API, or "panel analyze" and "panel summarize"
for one-shot use.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(d.stdin)
	cmd.SetOut(d.stdout)
	cmd.SetErr(d.stderr)

	cmd.PersistentFlags().StringVar(&env.configPath, "config", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().BoolVar(&env.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error { return env.load() }

	cmd.AddCommand(newServeCommand(env))
	cmd.AddCommand(newAnalyzeCommand(env))
	cmd.AddCommand(newSummarizeCommand(env))

	return cmd
}

// load reads the configuration and builds the logger.
func (e *cliEnv) load() error {
	cfg, err := application.LoadConfig(e.configPath, e.getenv)
	if err != nil {
		return err
	}
	if e.debug {
		cfg.Log.Level = "debug"
	}

	logger, err := newLogger(cfg.Log, e.stderr)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logger
	return nil
}

// orchestrator wires the completion client and the analysis settings.
func (e *cliEnv) orchestrator(metrics *middleware.PrometheusMetrics) (*application.Orchestrator, error) {
	client, err := e.newClient(e.cfg.LLM, metrics, e.logger, e.getenv)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	opts, err := e.cfg.Analysis.OrchestratorOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		application.WithLogger(e.logger),
		application.WithMetrics(metrics),
		application.WithObserver(middleware.NewOTelAnalysisObserver(nil, metrics)),
	)

	e.logger.Debug("orchestrator ready",
		"provider", e.cfg.LLM.Provider,
		"model", client.GetModel(),
		"aggregation", e.cfg.Analysis.Aggregation,
	)
	return application.NewOrchestrator(client, opts...), nil
}

// openInput opens path, or stdin for "-".
func (e *cliEnv) openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(e.stdin), nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}
