package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alert-relay/internal/config"
)

// Settings is the device-local state that survives restarts.
type Settings struct {
	// Profile is the selected identity; nil until the first selection.
	Profile *StoredProfile `yaml:"profile,omitempty"`
	// SilentMode suppresses sound and vibration for incoming alerts.
	SilentMode bool `yaml:"silent_mode"`
}

// StoredProfile is the on-disk form of a profile.
type StoredProfile struct {
	// Role is "sender" or "receiver".
	Role string `yaml:"role"`
	// Name is the display name.
	Name string `yaml:"name"`
}

// Repository defines persistence operations for device settings.
type Repository interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
}

// FileRepository persists device settings to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the settings file.
	path string
	// mu protects concurrent access to the settings file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the settings file does not exist yet.
	ErrNotFound = errors.New("settings not found")
	// errSettingsRequired is returned when Save gets nil.
	errSettingsRequired = errors.New("settings must be provided")
)

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the settings from disk.
func (r *FileRepository) Load(_ context.Context) (*Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var settings Settings
	if err = yaml.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("decode settings file: %w", err)
	}

	return &settings, nil
}

// Save writes the settings to disk.
func (r *FileRepository) Save(_ context.Context, settings *Settings) error {
	if settings == nil {
		return errSettingsRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}
