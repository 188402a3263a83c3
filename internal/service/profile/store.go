package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/repository/settings"
)

// ErrAlreadySelected is returned when a different profile is already stored.
var ErrAlreadySelected = errors.New("profile already selected, reset it first")

// Store keeps the device profile and the silent-mode flag.
// A profile is chosen once and stays fixed until Reset.
type Store struct {
	// repo persists the settings file.
	repo settings.Repository
	// senderName is the policy name every sender-capable profile uses.
	senderName string
	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// NewStore returns a Store over repo.
func NewStore(repo settings.Repository, senderName string) *Store {
	return &Store{
		repo:       repo,
		senderName: senderName,
	}
}

// Profile returns the stored profile or alert.ErrProfileNotSelected.
func (s *Store) Profile(ctx context.Context) (*alert.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return toProfile(current.Profile)
}

// SelectSender stores the sender-capable profile under the policy name.
func (s *Store) SelectSender(ctx context.Context) (*alert.Profile, error) {
	p, err := alert.NewSenderProfile(s.senderName)
	if err != nil {
		return nil, err
	}

	if err = s.set(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// SelectReceiver stores a receiver-only profile with the given display name.
func (s *Store) SelectReceiver(ctx context.Context, name string) (*alert.Profile, error) {
	p, err := alert.NewReceiverProfile(name)
	if err != nil {
		return nil, err
	}

	if err = s.set(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Reset forgets the stored profile. Silent mode is kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}

	if current.Profile == nil {
		return nil
	}

	current.Profile = nil

	if err = s.repo.Save(ctx, current); err != nil {
		return fmt.Errorf("reset profile: %w", err)
	}

	logger.Info(ctx, "Profile reset")

	return nil
}

// SilentMode reports whether incoming alerts should stay silent.
func (s *Store) SilentMode(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	return current.SilentMode, nil
}

// SetSilentMode persists the silent-mode flag.
func (s *Store) SetSilentMode(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}

	current.SilentMode = enabled

	if err = s.repo.Save(ctx, current); err != nil {
		return fmt.Errorf("save silent mode: %w", err)
	}

	logger.InfoKV(ctx, "Silent mode changed", "enabled", enabled)

	return nil
}

func (s *Store) set(ctx context.Context, p *alert.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}

	if existing, err := toProfile(current.Profile); err == nil {
		if *existing == *p {
			return nil
		}

		return fmt.Errorf("%s: %w", existing, ErrAlreadySelected)
	}

	current.Profile = &settings.StoredProfile{
		Role: p.Role.String(),
		Name: p.Name,
	}

	if err = s.repo.Save(ctx, current); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	logger.InfoKV(ctx, "Profile selected", "profile", p.String())

	return nil
}

// load returns the stored settings, or empty settings on first run.
func (s *Store) load(ctx context.Context) (*settings.Settings, error) {
	current, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			return new(settings.Settings), nil
		}

		return nil, fmt.Errorf("load settings: %w", err)
	}

	return current, nil
}

func toProfile(stored *settings.StoredProfile) (*alert.Profile, error) {
	if stored == nil {
		return nil, alert.ErrProfileNotSelected
	}

	role, err := alert.ParseRole(stored.Role)
	if err != nil {
		return nil, fmt.Errorf("stored profile: %w", err)
	}

	p := &alert.Profile{
		Role: role,
		Name: stored.Name,
	}

	if err = p.Validate(); err != nil {
		return nil, fmt.Errorf("stored profile: %w", err)
	}

	return p, nil
}
