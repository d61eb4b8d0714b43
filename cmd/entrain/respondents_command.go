package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"entrain/internal/logging"
	"entrain/internal/report"
)

func newRespondentsCommand(ctx *commandContext) *cobra.Command {
	var study string
	var stimulus string
	var segment string

	cmd := &cobra.Command{
		Use:   "respondents",
		Short: "List a study's respondents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if study == "" {
				study = cfg.Study.StudyID
			}
			if !cmd.Flags().Changed("segment") {
				segment = cfg.Study.Segment
			}

			client := newStudyClient(cfg, logging.NewNop())
			list, err := client.ListRespondents(cmd.Context(), study, stimulus, segment)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No respondents found")
				return nil
			}
			fmt.Fprintln(out, report.Respondents(list, styleFor(out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study identifier (defaults to study.study_id)")
	cmd.Flags().StringVar(&stimulus, "stimulus", "", "Restrict the listing to one stimulus")
	cmd.Flags().StringVar(&segment, "segment", "", "Recording segment (defaults to study.segment)")
	return cmd
}
