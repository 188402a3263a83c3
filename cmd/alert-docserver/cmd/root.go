package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/service/docserver"
	"github.com/oshokin/alert-relay/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// grpcListenAddress enables the gRPC DocumentService.
	grpcListenAddress string
	// dataFile path where the documents are persisted.
	dataFile string

	// rootCmd represents the base command for running the document server.
	rootCmd = &cobra.Command{
		Use:   "alert-docserver [http-listen-address]",
		Short: "Serve the shared alert document and history.",
		Long: `Starts the document server every alert-device and alert-watcher talks to.

It keeps JSON documents addressed by path: GET /alerta.json reads the alert,
PATCH merges its fields, PUT replaces it and POST /istoric.json appends a history
entry under a generated key. The same documents are served over gRPC when a
gRPC listen address is set. Metrics are exposed on /metrics.
Documents are persisted to a JSON file for recovery across restarts.
Without a configuration file the server runs on defaults (:8080).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &docserver.Options{
				ConfigPath:        configPath,
				HTTPListenAddress: listenAddress,
				GRPCListenAddress: grpcListenAddress,
				DataFile:          dataFile,
			}

			return docserver.Run(ctx, options)
		},
	}
)

// Execute runs the alert-docserver CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&grpcListenAddress, "grpc", "g", "", "gRPC listen address, e.g. :50051")
	rootCmd.Flags().StringVarP(&dataFile, "data-file", "d", "", "path to persist documents")
}
