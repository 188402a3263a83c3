package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/repository/remote"
	"github.com/oshokin/alert-relay/internal/repository/settings"
	"github.com/oshokin/alert-relay/internal/service/history"
	"github.com/oshokin/alert-relay/internal/service/playback"
	"github.com/oshokin/alert-relay/internal/service/profile"
)

// Role names accepted by SelectProfile.
const (
	RoleSender   = "sender"
	RoleReceiver = "receiver"
)

// Options controls the alert-device process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// In is the console input; stdin when nil.
	In io.Reader
	// Out is the console output; stdout when nil.
	Out io.Writer
}

// errNoProfile is returned by Run before a profile has been selected.
var errNoProfile = errors.New(
	`select a profile first with "alert-device profile sender" or "alert-device profile receiver <name>"`)

// Run starts the device runtime and serves the console until quit or ctx cancellation.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alert-device")

	cfg, err := loadConfig(opts, true)
	if err != nil {
		return err
	}

	store := newStore(cfg)

	// Load the fixed identity of this device.
	p, err := store.Profile(ctx)
	if err != nil {
		if errors.Is(err, alert.ErrProfileNotSelected) {
			return fmt.Errorf("%w: %w", err, errNoProfile)
		}

		return err
	}

	silent, err := store.SilentMode(ctx)
	if err != nil {
		return err
	}

	client, err := remote.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	out := output(opts)

	d, err := New(&Params{
		Profile:      p,
		Remote:       client,
		Settings:     store,
		SilentMode:   silent,
		Alarm:        playback.New(cfg.AlarmSound, out),
		PollInterval: cfg.PollInterval,
		StopGrace:    cfg.StopGrace,
		HistoryLimit: cfg.HistoryLimit,
		Out:          out,
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Device started",
		"profile", p.String(),
		"transport", cfg.Transport,
		"silent_mode", silent,
	)

	in := opts.In
	if in == nil {
		in = os.Stdin
	}

	return d.Run(ctx, in)
}

// SelectProfile stores the sender profile or a receiver profile named name.
func SelectProfile(ctx context.Context, opts *Options, role, name string) (*alert.Profile, error) {
	cfg, err := loadConfig(opts, false)
	if err != nil {
		return nil, err
	}

	store := newStore(cfg)

	switch role {
	case RoleSender:
		return store.SelectSender(ctx)
	case RoleReceiver:
		return store.SelectReceiver(ctx, name)
	default:
		return nil, fmt.Errorf("%q: %w", role, alert.ErrUnknownRole)
	}
}

// ShowProfile returns the stored profile.
func ShowProfile(ctx context.Context, opts *Options) (*alert.Profile, error) {
	cfg, err := loadConfig(opts, false)
	if err != nil {
		return nil, err
	}

	return newStore(cfg).Profile(ctx)
}

// ResetProfile forgets the stored profile so a new one can be selected.
func ResetProfile(ctx context.Context, opts *Options) error {
	cfg, err := loadConfig(opts, false)
	if err != nil {
		return err
	}

	return newStore(cfg).Reset(ctx)
}

// SetSilentMode persists the silent-mode flag for the next alert.
func SetSilentMode(ctx context.Context, opts *Options, enabled bool) error {
	cfg, err := loadConfig(opts, false)
	if err != nil {
		return err
	}

	return newStore(cfg).SetSilentMode(ctx, enabled)
}

// PrintHistory writes the most recent resolutions to opts.Out.
func PrintHistory(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alert-device")

	cfg, err := loadConfig(opts, true)
	if err != nil {
		return err
	}

	client, err := remote.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	entries, err := history.NewRecorder(client, cfg.HistoryLimit).Recent(ctx, 0)
	if err != nil {
		return err
	}

	_, err = io.WriteString(output(opts), formatHistory(entries))

	return err
}

// loadConfig reads the settings file. Commands that talk to the remote
// document need a valid transport; local-only commands run on defaults.
func loadConfig(opts *Options, remoteRequired bool) (*config.Config, error) {
	if !remoteRequired {
		cfg, err := config.LoadOrDefault(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}

		return cfg, nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	return cfg, nil
}

func newStore(cfg *config.Config) *profile.Store {
	return profile.NewStore(settings.NewFileRepository(cfg.SettingsFile), cfg.SenderName)
}

func output(opts *Options) io.Writer {
	if opts.Out != nil {
		return opts.Out
	}

	return os.Stdout
}
