package document

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "alertrelay.v1.DocumentService"

// Full method names.
const (
	GetMethod    = "/" + ServiceName + "/Get"
	PatchMethod  = "/" + ServiceName + "/Patch"
	AppendMethod = "/" + ServiceName + "/Append"
)

// Request field names used on top of structpb.Struct.
const (
	fieldPath   = "path"
	fieldFields = "fields"
	fieldValue  = "value"
)

// DocumentServiceServer is the server API for DocumentService.
// Messages are protobuf well-known types, so any JSON document fits.
type DocumentServiceServer interface {
	// Get returns the value stored at the path in the request, or a null value.
	Get(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Value, error)
	// Patch merges top-level fields into the object at a path and returns the result.
	Patch(ctx context.Context, in *structpb.Struct) (*structpb.Value, error)
	// Append stores a value under a generated key of the collection at a path.
	Append(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error)
}

// DocumentServiceClient is the client API for DocumentService.
type DocumentServiceClient interface {
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Value, error)
	Patch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Value, error)
	Append(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

// documentServiceClient invokes DocumentService methods over a connection.
type documentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDocumentServiceClient returns a client bound to cc.
//
//nolint:ireturn,nolintlint // Mirrors the shape of generated gRPC clients.
func NewDocumentServiceClient(cc grpc.ClientConnInterface) DocumentServiceClient {
	return &documentServiceClient{cc: cc}
}

// Get implements DocumentServiceClient.
func (c *documentServiceClient) Get(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, GetMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Patch implements DocumentServiceClient.
func (c *documentServiceClient) Patch(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, PatchMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Append implements DocumentServiceClient.
func (c *documentServiceClient) Append(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, AppendMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// RegisterDocumentServiceServer registers srv on the registrar.
func RegisterDocumentServiceServer(registrar grpc.ServiceRegistrar, srv DocumentServiceServer) {
	registrar.RegisterService(&serviceDesc, srv)
}

// NewPatchRequest builds the Patch request for the object at path.
func NewPatchRequest(path string, fields *structpb.Struct) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldPath:   structpb.NewStringValue(path),
			fieldFields: structpb.NewStructValue(fields),
		},
	}
}

// NewAppendRequest builds the Append request for the collection at path.
func NewAppendRequest(path string, value *structpb.Value) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldPath:  structpb.NewStringValue(path),
			fieldValue: value,
		},
	}
}

//nolint:gochecknoglobals // Service descriptors are package-level in generated code too.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Get",
			Handler:    getHandler,
		},
		{
			MethodName: "Patch",
			Handler:    patchHandler,
		},
		{
			MethodName: "Append",
			Handler:    appendHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alertrelay/v1/document.proto",
}

func getHandler(
	srv any,
	ctx context.Context, //nolint:revive // Argument order is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DocumentServiceServer).Get(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).Get(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

func patchHandler(
	srv any,
	ctx context.Context, //nolint:revive // Argument order is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DocumentServiceServer).Patch(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PatchMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).Patch(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func appendHandler(
	srv any,
	ctx context.Context, //nolint:revive // Argument order is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DocumentServiceServer).Append(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AppendMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).Append(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}
