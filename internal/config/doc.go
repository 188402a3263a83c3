// Package config defines the settings shared by the alert-relay binaries and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the remote document endpoints (HTTP URLs or a gRPC
// address), the coordination timings and the doc-server listen settings.
package config
