// Package document implements the gRPC transport for the document store.
//
// The DocumentService speaks protobuf well-known types only: paths travel as
// StringValue and documents as Struct/Value, so the service descriptor and
// client stub are declared by hand in service.go. The Server adapts those
// messages to a provided business-service interface.
package document
