package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"botstrap/internal/service/doctor"
)

// doctorCmd probes the host environment before a bootstrap run.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment the bootstrap sequence depends on",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return doctor.Run(ctx, &doctor.Options{ConfigPath: configPath})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(doctorCmd)
}
