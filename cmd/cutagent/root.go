package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cutagent/internal/services"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "cutagent",
		Short:         "Declarative video editing driven by JSON edit decision lists",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			if _, err := ctx.ensureConfig(); err != nil {
				return fail(cmd, fmt.Errorf("load config: %w", err), services.ExitSystem)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newCapabilitiesCommand())
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newKeyframesCommand(ctx))
	for _, cmd := range newAnalysisCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newExecuteCommand(ctx))
	for _, cmd := range newOperationCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// run executes cmd and maps the outcome to a process exit code. Errors that
// carry an exit code were already reported on stdout; anything else (usage
// mistakes, mostly) is printed to stderr.
func run(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	return exitCode(err, cmd.ErrOrStderr())
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return services.ExitSuccess
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	return services.ExitValidation
}
