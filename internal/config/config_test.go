package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations per transport.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing document url.
	err := Validate(new(Config))
	require.ErrorIs(t, err, errDocumentURLRequired)

	// Bad document url.
	err = Validate(&Config{DocumentURL: "not a url"})
	require.Error(t, err)

	// Okay with derived history url.
	cfg := &Config{DocumentURL: "https://example.firebaseio.com/alerta.json"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, "https://example.firebaseio.com/istoric.json", cfg.HistoryURL)

	// gRPC requires a resolvable address.
	err = Validate(&Config{Transport: "grpc"})
	require.ErrorIs(t, err, errServerAddressRequired)

	err = Validate(&Config{Transport: "grpc", ServerAddress: "bad:address"})
	require.Error(t, err)

	require.NoError(t, Validate(&Config{Transport: "GRPC", ServerAddress: "127.0.0.1:50051"}))

	err = Validate(&Config{Transport: "carrier-pigeon"})
	require.ErrorIs(t, err, errUnknownTransport)

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSetDefaults verifies the design values of the coordination core.
func TestSetDefaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	cfg.SetDefaults()

	require.Equal(t, TransportHTTP, cfg.Transport)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.Equal(t, 3*time.Second, cfg.PollInterval)
	require.Equal(t, time.Second, cfg.StopGrace)
	require.Equal(t, 50, cfg.HistoryLimit)
	require.Equal(t, "SALA MINIMIS", cfg.SenderName)
	require.Equal(t, DefaultSettingsFilename, cfg.SettingsFile)
	require.Equal(t, DefaultDataFilename, cfg.Server.DataFile)
}

// TestValidateServer checks the doc-server listen addresses.
func TestValidateServer(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateServer(new(Config)))

	cfg := &Config{Server: ServerConfig{GRPCListenAddress: "bad:address"}}
	require.Error(t, ValidateServer(cfg))

	cfg = &Config{Server: ServerConfig{HTTPListenAddress: "127.0.0.1:0", GRPCListenAddress: ":50051"}}
	require.NoError(t, ValidateServer(cfg))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		DocumentURL:  "http://127.0.0.1:8080/alerta.json",
		PollInterval: 500 * time.Millisecond,
		SenderName:   "DISPECERAT",
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.DocumentURL, loaded.DocumentURL)
	require.Equal(t, "http://127.0.0.1:8080/istoric.json", loaded.HistoryURL)
	require.Equal(t, 500*time.Millisecond, loaded.PollInterval)
	require.Equal(t, "DISPECERAT", loaded.SenderName)
	require.NoError(t, Validate(loaded))

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestLoadOrDefault falls back to defaults only for the default settings file.
func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	require.Equal(t, DefaultHTTPListenAddress, cfg.Server.HTTPListenAddress)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
