package version

import "fmt"

// Product prefixes every component name in user agents.
const Product = "alert-relay"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Product, Version, Commit, BuildTime)
}

// UserAgent identifies a component in outgoing requests, e.g. "alert-relay/1.0.0 (commit abc1234)".
func UserAgent() string {
	return fmt.Sprintf("%s/%s (commit %s)", Product, Version, Commit)
}
