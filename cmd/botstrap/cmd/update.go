package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"botstrap/internal/service/selfupdate"
)

// updateCmd downloads and applies a launcher update from the configured folder.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download and apply a launcher update",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return selfupdate.Run(ctx, &selfupdate.Options{ConfigPath: configPath})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(updateCmd)
}
