// Package remote is the client for the shared alert document and the
// history collection.
//
// Two transports implement Repository: HTTPRepository speaks the JSON REST
// dialect of a realtime database (GET, PATCH, POST on ".json" URLs) and
// GRPCRepository speaks the DocumentService of alert-docserver. Every call is
// bounded by a timeout and every failure comes back as a *NetworkError whose
// kind is one of timeout, connection lost or server error.
package remote
