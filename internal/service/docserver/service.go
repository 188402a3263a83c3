package docserver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alert-relay/internal/domain/document"
	"github.com/oshokin/alert-relay/internal/logger"
	repo "github.com/oshokin/alert-relay/internal/repository/store"
)

// service keeps the document tree in memory and persists every change.
// It is unexported to keep the transports decoupled from the implementation.
type service struct {
	// repo handles persistent storage of the tree.
	repo repo.Repository
	// tree is the current in-memory document tree.
	tree *domain.Tree
	// newKey generates collection keys for Append.
	newKey func() string
	// mu protects concurrent access to the tree.
	mu sync.RWMutex
}

// newService creates a service backed by the provided repository.
func newService(ctx context.Context, repository repo.Repository) (*service, error) {
	s := &service{
		repo:   repository,
		tree:   domain.NewTree(nil),
		newKey: newKey,
	}

	if repository == nil {
		return s, nil
	}

	root, err := repository.Load(ctx)
	switch {
	case err == nil:
		s.tree = domain.NewTree(root)
	case errors.Is(err, repo.ErrNotFound):
		// Start empty.
	default:
		return nil, fmt.Errorf("load documents: %w", err)
	}

	return s, nil
}

// Get returns the value at path, or JSON null.
func (s *service) Get(ctx context.Context, path string) (*structpb.Value, error) {
	segments, err := domain.ParsePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	logger.DebugKV(ctx, "Document requested", "path", path)

	return s.tree.Get(segments), nil
}

// Put replaces the value at path and returns it.
func (s *service) Put(ctx context.Context, path string, value *structpb.Value) (*structpb.Value, error) {
	segments, err := domain.ParsePath(path)
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, func(tree *domain.Tree) error {
		return tree.Set(segments, value)
	})
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Document replaced", "path", path)

	return value, nil
}

// Patch merges fields into the object at path and returns the merged object.
func (s *service) Patch(ctx context.Context, path string, fields *structpb.Struct) (*structpb.Value, error) {
	segments, err := domain.ParsePath(path)
	if err != nil {
		return nil, err
	}

	var merged *structpb.Value

	err = s.mutate(ctx, func(tree *domain.Tree) error {
		merged = tree.Patch(segments, fields)

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Document updated", "path", path, "fields", len(fields.GetFields()))

	return merged, nil
}

// Append stores value under a generated key of the collection at path.
func (s *service) Append(ctx context.Context, path string, value *structpb.Value) (string, error) {
	segments, err := domain.ParsePath(path)
	if err != nil {
		return "", err
	}

	key := s.newKey()

	err = s.mutate(ctx, func(tree *domain.Tree) error {
		tree.Append(segments, key, value)

		return nil
	})
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Document appended", "path", path, "key", key)

	return key, nil
}

// mutate applies fn and persists the tree. The in-memory tree is restored
// when persisting fails.
func (s *service) mutate(ctx context.Context, fn func(tree *domain.Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := proto.Clone(s.tree.Root()).(*structpb.Struct) //nolint:forcetypeassert // proto.Clone keeps the message type.

	if err := fn(s.tree); err != nil {
		s.tree = domain.NewTree(backup)

		return err
	}

	if s.repo == nil {
		return nil
	}

	if err := s.repo.Save(ctx, s.tree.Root()); err != nil {
		logger.Errorf(ctx, "Failed to persist documents: %v", err)

		s.tree = domain.NewTree(backup)

		return fmt.Errorf("persist documents: %w", err)
	}

	return nil
}

// newKey returns a time-ordered unique key, so collection keys sort by
// insertion time like realtime-database push IDs.
func newKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
