package docserver

import (
	"context"
	"fmt"

	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/logger"
)

// Options controls the alert-docserver process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// HTTPListenAddress overrides the REST listen address.
	HTTPListenAddress string
	// GRPCListenAddress overrides the gRPC listen address.
	GRPCListenAddress string
	// DataFile overrides the path of the persisted documents.
	DataFile string
}

// Run starts the document server and blocks until ctx is canceled or a listener fails.
// A missing default settings file is not an error: the server then runs on defaults.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alert-docserver")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Command line options override the settings file.
	if opts.HTTPListenAddress != "" {
		cfg.Server.HTTPListenAddress = opts.HTTPListenAddress
	}

	if opts.GRPCListenAddress != "" {
		cfg.Server.GRPCListenAddress = opts.GRPCListenAddress
	}

	if opts.DataFile != "" {
		cfg.Server.DataFile = opts.DataFile
	}

	server, err := NewServer(ctx, cfg)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Serving documents", "data_file", cfg.Server.DataFile)

	return server.Serve(ctx)
}
