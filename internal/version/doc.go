// Package version holds the build metadata shared by every alert-relay binary.
//
// Version, Commit and BuildTime are injected with -ldflags "-X ..." and keep
// their defaults in local builds. The metadata is printed by the version
// subcommand, sent as the HTTP user agent and exported by the doc server as
// the alert_relay_build_info metric.
package version
