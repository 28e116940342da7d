package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fabula/internal/project"
	"fabula/internal/recovery"
)

func newCheckpointsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints",
		Short: "List saved checkpoints and their recovery options",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := project.Open(cfg.Paths.StateDir)
			if err != nil {
				return err
			}
			defer store.Close()

			checkpoints, err := recovery.NewCheckpointStore(cfg.Paths.CheckpointDir)
			if err != nil {
				return err
			}

			projects, err := store.Resumable(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(projects))
			for _, proj := range projects {
				checkpoint, found, err := checkpoints.Load(proj.ID)
				if err != nil {
					return err
				}
				if !found {
					continue
				}
				rows = append(rows, []string{
					shortID(checkpoint.ProjectID),
					truncate(proj.Title, 32),
					checkpoint.Stage,
					fmt.Sprintf("%d/8", len(checkpoint.CompletedStages)),
					formatTimestamp(checkpoint.SavedAt),
					strings.Join(checkpoint.RecoveryOptions, "; "),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No checkpoints saved.")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Stage", "Done", "Saved", "Recovery options"}, rows, 3,
			))
			return nil
		},
	}
}
