package document

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// JSONSuffix is the optional suffix of REST document paths.
const JSONSuffix = ".json"

var (
	// ErrInvalidPath is returned for paths with empty or reserved segments.
	ErrInvalidPath = errors.New("invalid document path")
	// ErrNotObject is returned when an object is required but another value was given.
	ErrNotObject = errors.New("value is not an object")
)

// ParsePath splits a slash-separated document path into segments.
// Leading and trailing slashes and a trailing ".json" are ignored; an empty
// path addresses the root.
func ParsePath(raw string) ([]string, error) {
	trimmed := strings.Trim(strings.TrimSuffix(strings.Trim(raw, "/"), JSONSuffix), "/")
	if trimmed == "" {
		return nil, nil
	}

	segments := strings.Split(trimmed, "/")
	for _, segment := range segments {
		if segment == "" || strings.ContainsAny(segment, ".$#[]") {
			return nil, fmt.Errorf("%q: %w", raw, ErrInvalidPath)
		}
	}

	return segments, nil
}

// Tree is a JSON document tree rooted in an object.
// It is not safe for concurrent use.
type Tree struct {
	root *structpb.Struct
}

// NewTree wraps root; a nil root starts an empty tree.
func NewTree(root *structpb.Struct) *Tree {
	if root == nil {
		root = new(structpb.Struct)
	}

	if root.Fields == nil {
		root.Fields = make(map[string]*structpb.Value)
	}

	return &Tree{root: root}
}

// Root returns the underlying root object.
func (t *Tree) Root() *structpb.Struct {
	return t.root
}

// Get returns a copy of the value at segments, or JSON null when nothing is stored there.
func (t *Tree) Get(segments []string) *structpb.Value {
	current := structpb.NewStructValue(t.root)

	for _, segment := range segments {
		object := current.GetStructValue()
		if object == nil {
			return structpb.NewNullValue()
		}

		next, ok := object.GetFields()[segment]
		if !ok {
			return structpb.NewNullValue()
		}

		current = next
	}

	return cloneValue(current)
}

// Set replaces the value at segments. A null value removes it.
// The root can only be replaced by an object or reset with null.
func (t *Tree) Set(segments []string, value *structpb.Value) error {
	if len(segments) == 0 {
		if isNull(value) {
			t.root = &structpb.Struct{Fields: make(map[string]*structpb.Value)}

			return nil
		}

		object := value.GetStructValue()
		if object == nil {
			return fmt.Errorf("root: %w", ErrNotObject)
		}

		t.root = NewTree(cloneStruct(object)).root

		return nil
	}

	parent := t.ensureObject(segments[:len(segments)-1])
	leaf := segments[len(segments)-1]

	if isNull(value) {
		delete(parent.Fields, leaf)

		return nil
	}

	parent.Fields[leaf] = cloneValue(value)

	return nil
}

// Patch merges the top-level fields into the object at segments, creating it
// when needed, and returns a copy of the merged object. Null fields are removed.
func (t *Tree) Patch(segments []string, fields *structpb.Struct) *structpb.Value {
	object := t.ensureObject(segments)

	for key, value := range fields.GetFields() {
		if isNull(value) {
			delete(object.Fields, key)
			continue
		}

		object.Fields[key] = cloneValue(value)
	}

	return structpb.NewStructValue(cloneStruct(object))
}

// Append stores value under key in the collection object at segments.
func (t *Tree) Append(segments []string, key string, value *structpb.Value) {
	object := t.ensureObject(segments)
	object.Fields[key] = cloneValue(value)
}

// ensureObject walks segments, replacing missing or non-object values with
// empty objects, and returns the object at the end of the walk.
func (t *Tree) ensureObject(segments []string) *structpb.Struct {
	current := t.root

	for _, segment := range segments {
		next := current.Fields[segment].GetStructValue()
		if next == nil {
			next = &structpb.Struct{Fields: make(map[string]*structpb.Value)}
			current.Fields[segment] = structpb.NewStructValue(next)
		}

		if next.Fields == nil {
			next.Fields = make(map[string]*structpb.Value)
		}

		current = next
	}

	return current
}

func isNull(value *structpb.Value) bool {
	if value == nil {
		return true
	}

	_, ok := value.GetKind().(*structpb.Value_NullValue)

	return ok || value.GetKind() == nil
}

func cloneValue(value *structpb.Value) *structpb.Value {
	return proto.Clone(value).(*structpb.Value) //nolint:forcetypeassert // proto.Clone keeps the message type.
}

func cloneStruct(object *structpb.Struct) *structpb.Struct {
	return proto.Clone(object).(*structpb.Struct) //nolint:forcetypeassert // proto.Clone keeps the message type.
}
