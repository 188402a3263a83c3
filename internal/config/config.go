package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the alert-relay binaries.
type Config struct {
	// Transport selects the remote document client: "http" or "grpc".
	Transport string `yaml:"transport"`
	// DocumentURL is the alert document endpoint for the HTTP transport.
	DocumentURL string `yaml:"document_url"`
	// HistoryURL is the history collection endpoint for the HTTP transport.
	// It defaults to istoric.json next to DocumentURL.
	HistoryURL string `yaml:"history_url"`
	// ServerAddress is the doc-server gRPC address for the gRPC transport.
	ServerAddress string `yaml:"server_addr"`
	// Timeout bounds every remote call.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the fixed delay between polls of the alert document.
	PollInterval time.Duration `yaml:"poll_interval"`
	// StopGrace is how long reconcile stays suppressed after a stop resolves.
	StopGrace time.Duration `yaml:"stop_grace"`
	// HistoryLimit caps the history view.
	HistoryLimit int `yaml:"history_limit"`
	// SenderName is the fixed policy name of the sender-capable profile.
	SenderName string `yaml:"sender_name"`
	// SettingsFile stores the device profile and silent mode.
	SettingsFile string `yaml:"settings_file"`
	// AlarmSound is an optional audio file looped during a full alarm.
	AlarmSound string `yaml:"alarm_sound"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Server configures alert-docserver.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds alert-docserver settings.
type ServerConfig struct {
	// HTTPListenAddress is where the JSON REST endpoints listen.
	HTTPListenAddress string `yaml:"http_listen_addr"`
	// GRPCListenAddress is where the gRPC DocumentService listens; empty disables it.
	GRPCListenAddress string `yaml:"grpc_listen_addr"`
	// DataFile persists the documents between restarts.
	DataFile string `yaml:"data_file"`
}

// Transport names.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

const (
	// DefaultConfigFilename is the default filename for settings shared by all binaries.
	DefaultConfigFilename = "alert-relay.yaml"

	// DefaultSettingsFilename is the default filename for the device-local settings.
	DefaultSettingsFilename = "alert-relay-device.yaml"

	// DefaultDataFilename is the default filename for doc-server persistence.
	DefaultDataFilename = "alert-relay-data.json"

	// DefaultHistoryDocument is the collection name used when HistoryURL is derived.
	DefaultHistoryDocument = "istoric.json"

	// DefaultTimeout bounds every remote call.
	DefaultTimeout = 10 * time.Second

	// DefaultPollInterval is the fixed poll cadence.
	DefaultPollInterval = 3 * time.Second

	// DefaultStopGrace absorbs one in-flight poll after a stop.
	DefaultStopGrace = 1 * time.Second

	// DefaultHistoryLimit caps the history view.
	DefaultHistoryLimit = 50

	// DefaultSenderName is the policy name of the sender-capable profile.
	DefaultSenderName = "SALA MINIMIS"

	// DefaultHTTPListenAddress is the doc-server REST listen address.
	DefaultHTTPListenAddress = ":8080"

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDocumentURLRequired is returned when the HTTP transport has no document URL.
	errDocumentURLRequired = errors.New("document url must be provided")
	// errServerAddressRequired is returned when the gRPC transport has no address.
	errServerAddressRequired = errors.New("server address must be provided")
	// errUnknownTransport is returned for transports other than http and grpc.
	errUnknownTransport = errors.New("unknown transport")
	// errListenAddressRequired is returned when the doc server has nothing to listen on.
	errListenAddressRequired = errors.New("http listen address must be provided")
)

// Load reads configuration from the provided path and fills defaults.
// Callers validate the part they use with Validate or ValidateServer.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	cfg.SetDefaults()

	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing default settings file yields
// the defaults instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if (path == "" || path == DefaultConfigFilename) && errors.Is(err, fs.ErrNotExist) {
		cfg = new(Config)
		cfg.SetDefaults()

		return cfg, nil
	}

	return nil, err
}

// Save validates cfg and writes it to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	cfg.SetDefaults()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// SetDefaults fills every unset field that has a default.
func (c *Config) SetDefaults() {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}

	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}

	if strings.TrimSpace(c.SenderName) == "" {
		c.SenderName = DefaultSenderName
	}

	if c.SettingsFile == "" {
		c.SettingsFile = DefaultSettingsFilename
	}

	if c.HistoryURL == "" && c.DocumentURL != "" {
		c.HistoryURL = siblingURL(c.DocumentURL, DefaultHistoryDocument)
	}

	if c.Server.HTTPListenAddress == "" {
		c.Server.HTTPListenAddress = DefaultHTTPListenAddress
	}

	if c.Server.DataFile == "" {
		c.Server.DataFile = DefaultDataFilename
	}
}

// Validate checks the client-side settings used by alert-device and alert-watcher.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.SetDefaults()

	switch cfg.Transport {
	case TransportHTTP:
		if cfg.DocumentURL == "" {
			return errDocumentURLRequired
		}

		if _, err := url.ParseRequestURI(cfg.DocumentURL); err != nil {
			return fmt.Errorf("invalid document url: %w", err)
		}

		if _, err := url.ParseRequestURI(cfg.HistoryURL); err != nil {
			return fmt.Errorf("invalid history url: %w", err)
		}
	case TransportGRPC:
		if cfg.ServerAddress == "" {
			return errServerAddressRequired
		}

		if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
			return fmt.Errorf("invalid server address: %w", err)
		}
	default:
		return fmt.Errorf("%q: %w", cfg.Transport, errUnknownTransport)
	}

	return nil
}

// ValidateServer checks the settings used by alert-docserver.
func ValidateServer(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.SetDefaults()

	if cfg.Server.HTTPListenAddress == "" {
		return errListenAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Server.HTTPListenAddress); err != nil {
		return fmt.Errorf("invalid http listen address: %w", err)
	}

	if cfg.Server.GRPCListenAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Server.GRPCListenAddress); err != nil {
		return fmt.Errorf("invalid grpc listen address: %w", err)
	}

	return nil
}

// siblingURL replaces the last path element of raw with name,
// e.g. ".../alerta.json" -> ".../istoric.json".
func siblingURL(raw, name string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	u.Path = path.Join(path.Dir(u.Path), name)

	return u.String()
}
