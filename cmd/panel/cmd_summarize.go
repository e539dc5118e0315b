package main

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/internal/domain"
)

func newSummarizeCommand(env *cliEnv) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize per-category report feedback from a file",
		Long: `Summarize per-category report feedback from a file.

The input is a JSON object with a "high_level" comment and optional comments
keyed by rubric category, for example:

  {"high_level": "Promising team", "team": "Strong founders", "Business Model": "Unclear"}

Category labels are matched loosely against the rubric.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orchestrator, err := env.orchestrator(middleware.NewPrometheusMetrics(prometheus.NewRegistry()))
			if err != nil {
				return err
			}

			rc, err := env.openInput(input)
			if err != nil {
				return err
			}
			defer rc.Close() //nolint:errcheck

			var feedback domain.CategoryFeedback
			if err := json.NewDecoder(rc).Decode(&feedback); err != nil {
				return fmt.Errorf("failed to parse input: %w", err)
			}

			summary, err := orchestrator.Summarize(cmd.Context(), feedback)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file, or - for stdin")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
