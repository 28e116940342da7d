package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume [project-id]",
		Short: "Resume a paused or partial generation",
		Long: "Resume picks up a generation from its last saved checkpoint. " +
			"Stages that already completed are skipped, so paid-for assets are never regenerated. " +
			"Without an argument it lists the projects that can be resumed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer eng.close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				projects, err := eng.store.Resumable(cmd.Context())
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Fprintln(out, "No resumable projects.")
					return nil
				}
				rows := make([][]string, 0, len(projects))
				for _, proj := range projects {
					rows = append(rows, projectRow(proj))
				}
				fmt.Fprintln(out, renderTable(projectTableHeaders, rows, 4, 5))
				fmt.Fprintln(out, "Resume one with: fabula resume <project-id>")
				return nil
			}

			if err := eng.acquireLock(); err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := eng.controller.ResumeProject(runCtx, strings.TrimSpace(args[0]))
			if result != nil {
				printResult(out, result)
			}
			return err
		},
	}
}
