// Package device implements alert-device, the interactive runtime of one
// participant. It wires the stored profile, the remote document client, the
// history recorder, the state machine and the poller, and drives them from a
// line-oriented console on stdin.
//
// The package also carries the one-shot helpers behind the profile, silent
// and history subcommands.
package device
