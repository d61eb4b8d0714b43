package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"entrain/internal/pipeline"
	"entrain/internal/report"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var study string
	var stimulus string
	var segment string
	var windowSize int
	var overlap float64
	var threshold float64
	var upload bool
	var writeEDF bool
	var output string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an intersubject-correlation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunEnv(func(env *runEnv) error {
				req := pipeline.ISCRequest{
					Study:            env.cfg.Study.StudyID,
					Segment:          env.cfg.Study.Segment,
					WindowSize:       env.cfg.Analysis.WindowSize,
					OverlapPercent:   env.cfg.Analysis.OverlapPercent,
					QualityThreshold: env.cfg.Analysis.QualityThreshold,
					Bands:            env.cfg.Analysis.Bands,
					Parallelism:      env.cfg.Analysis.Parallelism,
					Upload:           env.cfg.Analysis.Upload,
				}
				if study != "" {
					req.Study = study
				}
				req.Stimulus = stimulus
				if cmd.Flags().Changed("segment") {
					req.Segment = segment
				}
				if cmd.Flags().Changed("window-size") {
					req.WindowSize = windowSize
				}
				if cmd.Flags().Changed("overlap") {
					req.OverlapPercent = overlap
				}
				if cmd.Flags().Changed("quality-threshold") {
					req.QualityThreshold = threshold
				}
				if cmd.Flags().Changed("upload") {
					req.Upload = upload
				}
				req.WriteEDF = writeEDF
				req.OutputPath = strings.TrimSpace(output)

				job := pipeline.NewISCJob(env.cfg, env.store, env.platform, env.notifier, env.logger)
				outcome, err := job.Run(cmd.Context(), req)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				style := styleFor(out)
				fmt.Fprintf(out, "Run %s completed in %s\n", outcome.RunID, outcome.Elapsed.Round(time.Millisecond))
				if len(outcome.Quality.Scores) > 0 {
					fmt.Fprintln(out, report.QualityTable(outcome.Quality, style))
				}
				fmt.Fprintln(out, report.ISCSummary(outcome.Result, style))
				if outcome.CSVPath != "" {
					fmt.Fprintf(out, "Result written to %s\n", outcome.CSVPath)
				}
				if outcome.EDFPath != "" {
					fmt.Fprintf(out, "EDF archive written to %s\n", outcome.EDFPath)
				}
				if outcome.Uploaded {
					fmt.Fprintln(out, "Aggregated metrics uploaded")
				}
				if banner := report.Warnings(outcome.Warnings); banner != "" {
					fmt.Fprintln(out, banner)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study identifier (defaults to study.study_id)")
	cmd.Flags().StringVar(&stimulus, "stimulus", "", "Restrict the run to one stimulus")
	cmd.Flags().StringVar(&segment, "segment", "", "Recording segment (defaults to study.segment)")
	cmd.Flags().IntVar(&windowSize, "window-size", 0, "Sliding window length in samples")
	cmd.Flags().Float64Var(&overlap, "overlap", 0, "Window overlap percentage (0-100)")
	cmd.Flags().Float64Var(&threshold, "quality-threshold", 0, "Missing-data exclusion threshold percentage")
	cmd.Flags().BoolVar(&upload, "upload", true, "Upload the aggregated series to the study platform")
	cmd.Flags().BoolVar(&writeEDF, "edf", false, "Also write an EDF archive next to the CSV")
	cmd.Flags().StringVar(&output, "output", "", "CSV output path (defaults to the export directory)")
	return cmd
}
