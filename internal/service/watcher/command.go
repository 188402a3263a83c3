package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/repository/remote"
	"github.com/oshokin/alert-relay/internal/repository/settings"
	"github.com/oshokin/alert-relay/internal/service/profile"
)

// Options controls the watcher polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// PollInterval overrides the configured interval between checks.
	PollInterval time.Duration
	// IgnoreDevice notifies even while alert-device is running.
	IgnoreDevice bool
}

// Run polls the alert document and notifies on alert edges until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alert-watcher")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = config.Validate(cfg); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Command line interval overrides the configured one.
	if opts.PollInterval > 0 {
		cfg.PollInterval = opts.PollInterval
	}

	client, err := remote.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	// Silent mode is shared with alert-device through its settings file.
	store := profile.NewStore(settings.NewFileRepository(cfg.SettingsFile), cfg.SenderName)

	presence := DeviceRunning
	if opts.IgnoreDevice {
		presence = nil
	}

	w, err := New(client, NewDesktopNotifier(), store, presence)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Watching alert document", "transport", cfg.Transport, "interval", cfg.PollInterval.String())

	return w.Run(ctx, cfg.PollInterval)
}

// Run checks immediately and then every interval until ctx is canceled.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Check(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WarnKV(ctx, "Check failed", "reason", remote.Reason(err), "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
		}
	}
}
