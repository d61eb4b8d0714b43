package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"entrain/internal/config"
	"entrain/internal/logging"
	"entrain/internal/preflight"
	"entrain/internal/report"
	"entrain/internal/runs"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "preflight",
		Short:       "Check directories, the study API, and the runs database",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			// Load without creating directories so missing ones are
			// reported as check results instead of a startup failure.
			cfg, _, _, err := config.Load(ctx.configPath())
			if err != nil {
				results := []preflight.Result{{Name: "Configuration", Detail: err.Error()}}
				fmt.Fprintln(out, report.Preflight(results, styleFor(out)))
				return errors.New("preflight checks failed")
			}

			client := newStudyClient(cfg, logging.NewNop())

			var store *runs.Store
			if opened, err := runs.Open(cfg.RunsDatabasePath()); err == nil {
				store = opened
				defer store.Close()
			}

			results := preflight.Run(cmd.Context(), cfg, client, store)
			fmt.Fprintln(out, report.Preflight(results, styleFor(out)))
			if !preflight.Passed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
