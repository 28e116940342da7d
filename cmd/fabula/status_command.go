package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fabula/internal/project"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show projects and their stage progress",
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

			projects, err := store.List(cmd.Context(), project.Status(statusFilter))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects yet. Start one with: fabula generate \"<idea>\"")
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, proj := range projects {
				rows = append(rows, projectRow(proj))
			}
			fmt.Fprintln(out, renderTable(projectTableHeaders, rows, 4, 5))
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "filter", "f", "", "Only show projects with this status")
	return cmd
}
