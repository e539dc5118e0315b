package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/internal/domain"
)

// analyzeInput mirrors the process_feedback request body.
type analyzeInput struct {
	Subject       *domain.SubjectMetadata `json:"subject"`
	StartupData   *domain.SubjectMetadata `json:"startup_data"`
	JudgeFeedback []domain.JudgeRecord    `json:"judge_feedback"`
}

func (in analyzeInput) subject() domain.SubjectMetadata {
	if in.Subject != nil {
		return *in.Subject
	}
	if in.StartupData != nil {
		return *in.StartupData
	}
	return domain.SubjectMetadata{}
}

func newAnalyzeCommand(env *cliEnv) *cobra.Command {
	var (
		input string
		quick bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze judge feedback from a file",
		Long: `Analyze judge feedback from a file and print the result.

The input is a JSON document {"subject": {"name": ...}, "judge_feedback": [...]}
and the output is the analysis result as JSON. With --quick the input is plain
text, one feedback item per non-blank line, and only the analysis is printed.
Use "-" to read from stdin.`,
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

			out := cmd.OutOrStdout()

			if quick {
				var lines []string
				scanner := bufio.NewScanner(rc)
				for scanner.Scan() {
					if line := strings.TrimSpace(scanner.Text()); line != "" {
						lines = append(lines, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}

				analysis, err := orchestrator.QuickAnalyze(cmd.Context(), lines)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, analysis)
				return err
			}

			var in analyzeInput
			if err := json.NewDecoder(rc).Decode(&in); err != nil {
				return fmt.Errorf("failed to parse input: %w", err)
			}

			result, err := orchestrator.Analyze(cmd.Context(), in.subject(), in.JudgeFeedback)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file, or - for stdin")
	cmd.Flags().BoolVar(&quick, "quick", false, "Run the quick analysis on plain text feedback")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
