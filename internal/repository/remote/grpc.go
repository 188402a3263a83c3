package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/alert-relay/internal/api/grpc/document"
	"github.com/oshokin/alert-relay/internal/domain/alert"
)

// Default document paths on alert-docserver.
const (
	DefaultDocumentPath = "alerta"
	DefaultHistoryPath  = "istoric"
)

// GRPCRepository talks to alert-docserver over its DocumentService.
type GRPCRepository struct {
	options

	// conn is the underlying gRPC connection.
	conn *grpc.ClientConn
	// api is the DocumentService client.
	api api.DocumentServiceClient
	// documentPath addresses the alert document.
	documentPath string
	// historyPath addresses the history collection.
	historyPath string
}

// DialGRPC establishes a gRPC connection to alert-docserver.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func DialGRPC(address string, opts ...Option) (*GRPCRepository, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial document server: %w", err)
	}

	return NewGRPCRepository(conn, api.NewDocumentServiceClient(conn), opts...), nil
}

// NewGRPCRepository wraps an existing client. conn may be nil when the
// caller owns the connection.
func NewGRPCRepository(conn *grpc.ClientConn, client api.DocumentServiceClient, opts ...Option) *GRPCRepository {
	return &GRPCRepository{
		options:      newOptions(opts),
		conn:         conn,
		api:          client,
		documentPath: DefaultDocumentPath,
		historyPath:  DefaultHistoryPath,
	}
}

// Close releases the underlying gRPC connection.
func (r *GRPCRepository) Close() error {
	if r == nil || r.conn == nil {
		return nil
	}

	return r.conn.Close()
}

// Fetch reads the alert document.
func (r *GRPCRepository) Fetch(ctx context.Context) (*alert.RemoteState, error) {
	const op = "fetch alert"

	body, err := r.get(ctx, op, r.documentPath)
	if err != nil {
		return nil, err
	}

	state, err := alert.DecodeDocument(body)
	if err != nil {
		return nil, serverError(op, err)
	}

	return state, nil
}

// Write merges state into the alert document.
func (r *GRPCRepository) Write(ctx context.Context, state *alert.RemoteState) error {
	const op = "write alert"

	fields, err := toStruct(alert.DocumentFromState(state))
	if err != nil {
		return serverError(op, err)
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	if _, err = r.api.Patch(callCtx, api.NewPatchRequest(r.documentPath, fields)); err != nil {
		return wrap(op, err)
	}

	return nil
}

// AppendHistory adds one entry to the history collection.
func (r *GRPCRepository) AppendHistory(ctx context.Context, entry *alert.HistoryEntry) error {
	const op = "append history"

	record, err := toStruct(alert.RecordFromEntry(entry))
	if err != nil {
		return serverError(op, err)
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	request := api.NewAppendRequest(r.historyPath, structpb.NewStructValue(record))
	if _, err = r.api.Append(callCtx, request); err != nil {
		return wrap(op, err)
	}

	return nil
}

// ListHistory reads the whole history collection.
func (r *GRPCRepository) ListHistory(ctx context.Context) ([]*alert.HistoryEntry, int, error) {
	const op = "list history"

	body, err := r.get(ctx, op, r.historyPath)
	if err != nil {
		return nil, 0, err
	}

	entries, skipped, err := alert.DecodeHistory(body, r.location)
	if err != nil {
		return nil, 0, serverError(op, err)
	}

	return entries, skipped, nil
}

// get reads the value at path as JSON.
func (r *GRPCRepository) get(ctx context.Context, op, path string) ([]byte, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	value, err := r.api.Get(callCtx, wrapperspb.String(path))
	if err != nil {
		return nil, wrap(op, err)
	}

	body, err := protojson.Marshal(value)
	if err != nil {
		return nil, serverError(op, err)
	}

	return body, nil
}

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	result := new(structpb.Struct)
	if err := protojson.Unmarshal(data, result); err != nil {
		return nil, err
	}

	return result, nil
}
