package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fabula/internal/notifications"
	"fabula/internal/pipeline"
	"fabula/internal/project"
	"fabula/internal/recovery"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var purgeFailed bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove leftover state for finished projects",
		Long: "Cleanup removes pipeline state and checkpoint files left behind by completed " +
			"and failed projects. With --purge-failed the failed project records are deleted too. " +
			"Paused and partial projects are never touched, so anything resumable stays resumable.",
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

			states, err := pipeline.NewStateStore(cfg.Paths.StateDir)
			if err != nil {
				return err
			}
			checkpoints, err := recovery.NewCheckpointStore(cfg.Paths.CheckpointDir)
			if err != nil {
				return err
			}

			removed := 0
			for _, status := range []project.Status{project.StatusCompleted, project.StatusFailed} {
				projects, err := store.List(cmd.Context(), status)
				if err != nil {
					return err
				}
				for _, proj := range projects {
					if err := states.Remove(proj.ID); err != nil {
						return err
					}
					if err := checkpoints.Remove(proj.ID); err != nil {
						return err
					}
					if purgeFailed && status == project.StatusFailed {
						if err := store.Delete(cmd.Context(), proj.ID); err != nil {
							return err
						}
					}
					removed++
				}
			}

			out := cmd.OutOrStdout()
			if removed == 0 {
				fmt.Fprintln(out, "Nothing to clean up.")
				return nil
			}
			if err := notifications.NewService(cfg).NotifyCleanup(cmd.Context(), removed); err != nil {
				return fmt.Errorf("notify cleanup: %w", err)
			}
			fmt.Fprintf(out, "Cleaned up state for %d project(s).\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purgeFailed, "purge-failed", false, "Also delete failed project records")
	return cmd
}
