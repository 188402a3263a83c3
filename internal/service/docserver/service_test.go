package docserver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alert-relay/internal/domain/document"
	repo "github.com/oshokin/alert-relay/internal/repository/store"
)

var (
	errTestLoad = errors.New("test load error")
	errTestSave = errors.New("test save error")
)

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	// root is the tree returned by Load.
	root *structpb.Struct
	// loadErr is the error returned by Load.
	loadErr error
	// saveErr is the error returned by Save.
	saveErr error
	// saved is the last tree passed to Save.
	saved *structpb.Struct
}

func (m *memoryRepository) Load(context.Context) (*structpb.Struct, error) {
	return m.root, m.loadErr
}

func (m *memoryRepository) Save(_ context.Context, root *structpb.Struct) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.saved = root

	return nil
}

func TestNewService_LoadsOrStartsEmpty(t *testing.T) {
	t.Parallel()

	root, err := structpb.NewStruct(map[string]any{"alerta": map[string]any{"status": true}})
	require.NoError(t, err)

	s, err := newService(context.Background(), &memoryRepository{root: root})
	require.NoError(t, err)

	value, err := s.Get(context.Background(), "alerta/status")
	require.NoError(t, err)
	require.True(t, value.GetBoolValue())

	s, err = newService(context.Background(), &memoryRepository{loadErr: repo.ErrNotFound})
	require.NoError(t, err)
	require.Empty(t, s.tree.Root().GetFields())

	s, err = newService(context.Background(), &memoryRepository{loadErr: errTestLoad})
	require.ErrorIs(t, err, errTestLoad)
	require.Nil(t, s)
}

func TestService_PatchPersists(t *testing.T) {
	t.Parallel()

	repository := new(memoryRepository)

	s, err := newService(context.Background(), repository)
	require.NoError(t, err)

	fields, err := structpb.NewStruct(map[string]any{"status": true, "cine": "SALA MINIMIS"})
	require.NoError(t, err)

	merged, err := s.Patch(context.Background(), "/alerta.json", fields)
	require.NoError(t, err)
	require.Equal(t, "SALA MINIMIS", merged.GetStructValue().GetFields()["cine"].GetStringValue())

	require.NotNil(t, repository.saved)
	require.True(t, repository.saved.GetFields()["alerta"].GetStructValue().GetFields()["status"].GetBoolValue())
}

func TestService_FailedSaveRollsBack(t *testing.T) {
	t.Parallel()

	repository := &memoryRepository{saveErr: errTestSave}

	s, err := newService(context.Background(), repository)
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "alerta", structpb.NewBoolValue(true))
	require.ErrorIs(t, err, errTestSave)

	value, err := s.Get(context.Background(), "alerta")
	require.NoError(t, err)

	_, isNull := value.GetKind().(*structpb.Value_NullValue)
	require.True(t, isNull)
}

func TestService_AppendGeneratesDistinctKeys(t *testing.T) {
	t.Parallel()

	s, err := newService(context.Background(), nil)
	require.NoError(t, err)

	first, err := s.Append(context.Background(), "istoric", structpb.NewStringValue("a"))
	require.NoError(t, err)

	second, err := s.Append(context.Background(), "istoric", structpb.NewStringValue("b"))
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Less(t, first, second)

	collection, err := s.Get(context.Background(), "istoric")
	require.NoError(t, err)
	require.Len(t, collection.GetStructValue().GetFields(), 2)
}

func TestService_InvalidPath(t *testing.T) {
	t.Parallel()

	s, err := newService(context.Background(), nil)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "a//b")
	require.ErrorIs(t, err, domain.ErrInvalidPath)

	_, err = s.Put(context.Background(), "", structpb.NewStringValue("scalar root"))
	require.ErrorIs(t, err, domain.ErrNotObject)
}
