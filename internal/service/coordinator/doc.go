// Package coordinator implements the per-device alert state machine.
//
// A Machine owns the local view of the shared alert. User actions (raise,
// stop, mute) and poll results (reconcile, connection changes) are messages
// to a single goroutine, so they are applied one at a time in arrival order.
// Remote writes run on short-lived workers whose results come back as
// messages too.
//
// Stopping an alert arms a guard that drops every reconcile until the stop
// has resolved locally and a grace period has passed. That keeps a poll read
// issued before the stop from bringing the alert back.
package coordinator
