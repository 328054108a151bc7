package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"botstrap/internal/service/proxy"
)

// proxyConcurrency bounds parallel proxy checks.
var proxyConcurrency int

// proxiesCmd fetches free proxies and reports the ones that relay traffic.
var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "Fetch free proxies and report the working ones",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := &proxy.Options{
			ConfigPath:  configPath,
			Concurrency: proxyConcurrency,
		}

		return proxy.Run(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	proxiesCmd.Flags().IntVar(&proxyConcurrency, "concurrency", 0, "parallel proxy checks (0 uses the default)")
	rootCmd.AddCommand(proxiesCmd)
}
