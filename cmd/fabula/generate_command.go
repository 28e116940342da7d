package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var scenes int

	cmd := &cobra.Command{
		Use:   "generate <idea>",
		Short: "Generate a story video from an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			idea := strings.TrimSpace(args[0])
			if idea == "" {
				return fmt.Errorf("idea must not be empty")
			}
			if scenes > 0 {
				cfg.Generation.MaxScenes = scenes
			}

			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer eng.close()
			if err := eng.acquireLock(); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resolvedTitle := strings.TrimSpace(title)
			if resolvedTitle == "" {
				resolvedTitle = idea
			}

			result, err := eng.controller.Start(runCtx, resolvedTitle, idea)
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Project title (defaults to the idea)")
	cmd.Flags().IntVarP(&scenes, "scenes", "n", 0, "Scene count override")
	return cmd
}
