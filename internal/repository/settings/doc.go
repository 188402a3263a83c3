// Package settings persists device-local settings: the selected profile and
// the silent-mode flag. They are kept in a small YAML file next to the
// shared configuration.
package settings
