package document

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/alert-relay/internal/domain/document"
)

// Service abstracts the document operations the transport layer depends on.
type Service interface {
	Get(ctx context.Context, path string) (*structpb.Value, error)
	Patch(ctx context.Context, path string, fields *structpb.Struct) (*structpb.Value, error)
	Append(ctx context.Context, path string, value *structpb.Value) (string, error)
}

// Server implements the DocumentService gRPC API.
type Server struct {
	// service provides the document tree operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Get returns the value stored at the requested path.
func (s *Server) Get(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Value, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	value, err := s.service.Get(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	return value, nil
}

// Patch merges the request fields into the object at the requested path.
func (s *Server) Patch(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	path, err := requestPath(req)
	if err != nil {
		return nil, err
	}

	fields := req.GetFields()[fieldFields].GetStructValue()
	if fields == nil {
		return nil, status.Error(codes.InvalidArgument, "fields must be an object")
	}

	value, err := s.service.Patch(ctx, path, fields)
	if err != nil {
		return nil, toStatus(err)
	}

	return value, nil
}

// Append stores the request value under a generated key and returns the key.
func (s *Server) Append(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	path, err := requestPath(req)
	if err != nil {
		return nil, err
	}

	value, ok := req.GetFields()[fieldValue]
	if !ok || value == nil {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}

	key, err := s.service.Append(ctx, path, value)
	if err != nil {
		return nil, toStatus(err)
	}

	return wrapperspb.String(key), nil
}

// requestPath extracts the document path from a Patch or Append request.
func requestPath(req *structpb.Struct) (string, error) {
	if req == nil {
		return "", status.Error(codes.InvalidArgument, "request is required")
	}

	path, ok := req.GetFields()[fieldPath].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Error(codes.InvalidArgument, "path is required")
	}

	return path.StringValue, nil
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidPath), errors.Is(err, domain.ErrNotObject):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "unable to persist documents")
	}
}
