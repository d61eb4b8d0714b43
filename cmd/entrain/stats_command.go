package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"entrain/internal/pipeline"
	"entrain/internal/report"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var study string
	var stimulus string
	var segment string
	var statistics []string
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Export descriptive statistics per respondent and band",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunEnv(func(env *runEnv) error {
				req := pipeline.StatsRequest{
					Study:       env.cfg.Study.StudyID,
					Segment:     env.cfg.Study.Segment,
					Statistics:  env.cfg.Stats.Statistics,
					Bands:       env.cfg.Analysis.Bands,
					Parallelism: env.cfg.Analysis.Parallelism,
				}
				if study != "" {
					req.Study = study
				}
				req.Stimulus = stimulus
				if cmd.Flags().Changed("segment") {
					req.Segment = segment
				}
				if len(statistics) > 0 {
					req.Statistics = statistics
				}
				req.OutputPath = strings.TrimSpace(output)

				job := pipeline.NewStatsJob(env.cfg, env.store, env.platform, env.notifier, env.logger)
				outcome, err := job.Run(cmd.Context(), req)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s completed in %s\n", outcome.RunID, outcome.Elapsed.Round(time.Millisecond))
				fmt.Fprintln(out, report.StatsTable(outcome.Table, styleFor(out)))
				if outcome.CSVPath != "" {
					fmt.Fprintf(out, "Result written to %s\n", outcome.CSVPath)
				}
				if banner := report.Warnings(outcome.Warnings); banner != "" {
					fmt.Fprintln(out, banner)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study identifier (defaults to study.study_id)")
	cmd.Flags().StringVar(&stimulus, "stimulus", "", "Restrict the export to one stimulus")
	cmd.Flags().StringVar(&segment, "segment", "", "Recording segment (defaults to study.segment)")
	cmd.Flags().StringSliceVar(&statistics, "statistics", nil, "Comma-separated statistics (overrides stats.statistics)")
	cmd.Flags().StringVar(&output, "output", "", "CSV output path (defaults to the export directory)")
	return cmd
}
