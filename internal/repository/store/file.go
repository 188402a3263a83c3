package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alert-relay/internal/config"
)

// Repository defines persistence operations for the document tree.
type Repository interface {
	Load(ctx context.Context) (*structpb.Struct, error)
	Save(ctx context.Context, root *structpb.Struct) error
}

// FileRepository persists the document tree to a JSON file on disk.
// JSON is produced and consumed via protojson so the file holds exactly
// the documents clients read.
type FileRepository struct {
	// path is the filesystem location of the JSON data file.
	path string
	// mu protects concurrent access to the data file.
	mu sync.Mutex
}

// ErrNotFound is returned when the data file does not exist yet.
var ErrNotFound = errors.New("documents not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the document tree from disk.
func (r *FileRepository) Load(_ context.Context) (*structpb.Struct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read data file: %w", err)
	}

	root := new(structpb.Struct)
	if err = protojson.Unmarshal(contents, root); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}

	return root, nil
}

// Save writes the document tree next to the data file and renames it into
// place, so a crash never leaves a truncated file behind.
func (r *FileRepository) Save(_ context.Context, root *structpb.Struct) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(root)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	return nil
}
