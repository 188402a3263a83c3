package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/service/device"
	"github.com/oshokin/alert-relay/internal/version"
)

var (
	// configPath stores the configuration file path.
	configPath string

	// rootCmd represents the base command for the interactive device runtime.
	rootCmd = &cobra.Command{
		Use:   "alert-device",
		Short: "Raise, receive and resolve alerts from this device.",
		Long: `Interactive runtime of one participant in the alert system.

Every device has a fixed profile: the sender profile may raise alerts under the
configured policy name, receiver profiles only confirm them. Select it once with
"alert-device profile sender" or "alert-device profile receiver <name>".

Without a subcommand the device connects to the shared alert document, polls it
every few seconds and reads commands from stdin: raise, stop, mute, silent on|off,
history, status and quit.`,
		Args: cobra.NoArgs,
		RunE: runDevice,
	}

	// runCmd starts the runtime explicitly.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Start the device runtime and its console.",
		Args:  cobra.NoArgs,
		RunE:  runDevice,
	}
)

// Execute runs the alert-device CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDevice(cmd *cobra.Command, _ []string) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return device.Run(ctx, options(cmd))
}

func options(cmd *cobra.Command) *device.Options {
	return &device.Options{
		ConfigPath: configPath,
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	rootCmd.AddCommand(runCmd, profileCmd, historyCmd, silentCmd)
}
