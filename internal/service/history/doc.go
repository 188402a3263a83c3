// Package history records alert resolutions in the shared history
// collection and reads the most recent ones back, newest first.
package history
