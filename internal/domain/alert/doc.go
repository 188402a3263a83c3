// Package alert contains the core domain types of the alert relay.
//
// It defines the device Profile (a tagged union over sender-capable and
// receiver-only roles), the shared RemoteState document, the per-device
// LocalState of the coordination state machine, the derived ConnectionStatus
// and the immutable HistoryEntry audit record, together with the JSON wire
// format every participant uses for the shared document and history.
package alert
