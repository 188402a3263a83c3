// Package docserver runs alert-docserver, a small self-hosted stand-in for
// the realtime database the devices share. It keeps a JSON document tree in
// memory, persists every change to a data file, and serves the tree over a
// JSON REST API and, optionally, the gRPC DocumentService.
package docserver
