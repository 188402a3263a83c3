// Package poller reads the shared alert document on a fixed cadence and
// feeds the results to the state machine: every success as a reconcile and
// every failure as a connection change. It can be paused while the history
// view is open.
package poller
