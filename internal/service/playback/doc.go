// Package playback plays the full alarm: a sound file looped through the
// operating system's command-line player, or the terminal bell when no file
// is configured or it cannot be played.
package playback
