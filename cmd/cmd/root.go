package cmd

import (
	"github.com/ostafen/zipsniff/internal/env"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     env.AppName,
		Short:   env.AppName + " - ZIP container media type detection",
		Version: env.Version,
	}

	rootCmd.PersistentFlags().String("log-level", "info", "minimum log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		DefineDetectCommand(),
		DefineFormatsCommand(),
		DefineSummaryCommand(),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCommand().Execute()
}
