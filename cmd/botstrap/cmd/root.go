package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"botstrap/internal/config"
	"botstrap/internal/logger"
	"botstrap/internal/service/bootstrap"
	"botstrap/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// logLevel is the minimum level for console logs.
	logLevel string

	// noPause disables the acknowledgment prompts for non-interactive runs.
	noPause bool

	// rootCmd represents the base command: install dependencies and launch the bot.
	rootCmd = &cobra.Command{
		Use:   "botstrap",
		Short: "Install bot dependencies and launch it",
		Long: "Upgrade the package installer, install dependencies from the manifest, " +
			"install the automation runtime's browser binary and start the bot. " +
			"Only the dependency installation halts the sequence on failure.",
		Args: cobra.NoArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &bootstrap.Options{
				ConfigPath: configPath,
				NoPause:    noPause,
			}

			return bootstrap.Run(ctx, options)
		},
	}
)

// Execute runs the botstrap CLI and exits with non-zero status on error.
// A fatal bootstrap step propagates its own exit code to the caller.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		var stepErr *bootstrap.StepError
		if errors.As(err, &stepErr) && stepErr.ExitCode > 0 {
			os.Exit(stepErr.ExitCode)
		}

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&noPause, "no-pause", false, "do not wait for Enter before the console closes")
}
