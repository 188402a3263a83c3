package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/repository/settings"
)

// memoryRepo is an in-memory settings.Repository.
type memoryRepo struct {
	stored *settings.Settings
	saves  int
}

func (m *memoryRepo) Load(context.Context) (*settings.Settings, error) {
	if m.stored == nil {
		return nil, settings.ErrNotFound
	}

	copied := *m.stored

	return &copied, nil
}

func (m *memoryRepo) Save(_ context.Context, s *settings.Settings) error {
	copied := *s
	m.stored = &copied
	m.saves++

	return nil
}

func TestStore_ProfileNotSelected(t *testing.T) {
	t.Parallel()

	store := NewStore(new(memoryRepo), "SALA MINIMIS")

	_, err := store.Profile(context.Background())
	require.ErrorIs(t, err, alert.ErrProfileNotSelected)
}

func TestStore_SelectSenderUsesPolicyName(t *testing.T) {
	t.Parallel()

	store := NewStore(new(memoryRepo), "SALA MINIMIS")

	p, err := store.SelectSender(context.Background())
	require.NoError(t, err)
	require.True(t, p.CanRaise())

	loaded, err := store.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, &alert.Profile{Role: alert.RoleSenderCapable, Name: "SALA MINIMIS"}, loaded)
}

func TestStore_ProfileIsImmutableUntilReset(t *testing.T) {
	t.Parallel()

	repo := new(memoryRepo)
	store := NewStore(repo, "SALA MINIMIS")
	ctx := context.Background()

	p, err := store.SelectReceiver(ctx, "etaj 2")
	require.NoError(t, err)
	require.Equal(t, "ETAJ 2", p.Name)

	// Selecting the same profile again is a no-op.
	_, err = store.SelectReceiver(ctx, "ETAJ 2")
	require.NoError(t, err)
	require.Equal(t, 1, repo.saves)

	_, err = store.SelectSender(ctx)
	require.ErrorIs(t, err, ErrAlreadySelected)

	require.NoError(t, store.Reset(ctx))

	_, err = store.Profile(ctx)
	require.ErrorIs(t, err, alert.ErrProfileNotSelected)

	_, err = store.SelectSender(ctx)
	require.NoError(t, err)
}

func TestStore_SelectReceiverRejectsEmptyName(t *testing.T) {
	t.Parallel()

	store := NewStore(new(memoryRepo), "SALA MINIMIS")

	_, err := store.SelectReceiver(context.Background(), "   ")
	require.ErrorIs(t, err, alert.ErrEmptyName)
}

func TestStore_SilentModeSurvivesReset(t *testing.T) {
	t.Parallel()

	store := NewStore(new(memoryRepo), "SALA MINIMIS")
	ctx := context.Background()

	silent, err := store.SilentMode(ctx)
	require.NoError(t, err)
	require.False(t, silent)

	_, err = store.SelectReceiver(ctx, "hol")
	require.NoError(t, err)
	require.NoError(t, store.SetSilentMode(ctx, true))
	require.NoError(t, store.Reset(ctx))

	silent, err = store.SilentMode(ctx)
	require.NoError(t, err)
	require.True(t, silent)
}

func TestStore_CorruptStoredRole(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{stored: &settings.Settings{
		Profile: &settings.StoredProfile{Role: "admin", Name: "X"},
	}}
	store := NewStore(repo, "SALA MINIMIS")

	_, err := store.Profile(context.Background())
	require.ErrorIs(t, err, alert.ErrUnknownRole)
}
