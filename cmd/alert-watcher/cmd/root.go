package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/service/watcher"
	"github.com/oshokin/alert-relay/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// interval overrides the configured poll interval.
	interval time.Duration
	// ignoreDevice keeps notifying while alert-device runs.
	ignoreDevice bool

	// rootCmd represents the base command for watching the alert in the background.
	rootCmd = &cobra.Command{
		Use:   "alert-watcher",
		Short: "Show desktop notifications for alerts in the background.",
		Long: `Background companion of alert-device.

Polls the shared alert document on the configured interval (3 seconds by default).
When an alert is raised it shows a desktop notification, or a quiet one when
silent mode is on in the device settings. When the alert ends it says so.
While alert-device is running the watcher stays quiet and leaves the alert to it.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return watcher.Run(ctx, &watcher.Options{
				ConfigPath:   configPath,
				PollInterval: interval,
				IgnoreDevice: ignoreDevice,
			})
		},
	}
)

// Execute runs the alert-watcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", 0, "override the poll interval")

	// Hidden flag to test notifications next to a running device.
	rootCmd.Flags().BoolVar(&ignoreDevice, "ignore-device", false, "notify even while alert-device runs")

	err := rootCmd.Flags().MarkHidden("ignore-device")
	if err != nil {
		panic(err)
	}
}
