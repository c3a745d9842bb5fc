package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sketchctl",
		Short: "Work with sketch scenes offline",
		Long: `sketchctl renders scene files, generates component code from them
and browses the built-in UI templates.

Scene files are the JSON documents stored as a project's canvas.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		buildRenderCmd(),
		buildGenerateCmd(),
		buildTemplatesCmd(),
	)
	return rootCmd
}
