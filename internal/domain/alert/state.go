package alert

import "fmt"

// UnknownRaiser is recorded when an active document carries no raiser name.
const UnknownRaiser = "UNKNOWN"

// RemoteState is the single shared alert document.
type RemoteState struct {
	// Active is true while an alert is in flight system-wide.
	Active bool
	// RaisedBy is the display name of the raiser; ignored when Active is false.
	RaisedBy string
}

// Inactive returns the cleared document every stop writes.
func Inactive() *RemoteState {
	return &RemoteState{}
}

// Raised returns an active document attributed to name.
func Raised(name string) *RemoteState {
	return &RemoteState{
		Active:   true,
		RaisedBy: name,
	}
}

// Raiser returns the raiser name, falling back to UnknownRaiser for active
// documents without one and to an empty string for inactive documents.
func (s *RemoteState) Raiser() string {
	if s == nil || !s.Active {
		return ""
	}

	if s.RaisedBy == "" {
		return UnknownRaiser
	}

	return s.RaisedBy
}

// Clone returns a normalized copy: RaisedBy is cleared when the alert is inactive.
func (s *RemoteState) Clone() *RemoteState {
	if s == nil {
		return Inactive()
	}

	cloned := *s
	if !cloned.Active {
		cloned.RaisedBy = ""
	}

	return &cloned
}

// Phase is the state of the per-device coordination state machine.
type Phase int

const (
	// PhaseInitializing lasts until the first successful poll.
	PhaseInitializing Phase = iota
	// PhaseConnectedIdle means no alert is in flight.
	PhaseConnectedIdle
	// PhaseAlertPendingConfirm is the sender's view of its own alert.
	PhaseAlertPendingConfirm
	// PhaseAlertActive is a receiver's full alarm with sound and vibration.
	PhaseAlertActive
	// PhaseAlertActiveSilent is a receiver's alarm while silent mode is on.
	PhaseAlertActiveSilent
	// PhaseResolving is the short window between a stop and ConnectedIdle.
	PhaseResolving
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseConnectedIdle:
		return "connected-idle"
	case PhaseAlertPendingConfirm:
		return "alert-pending-confirm"
	case PhaseAlertActive:
		return "alert-active"
	case PhaseAlertActiveSilent:
		return "alert-active-silent"
	case PhaseResolving:
		return "resolving"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// IsAlert reports whether the phase is one of the alert phases stop() accepts.
func (p Phase) IsAlert() bool {
	return p == PhaseAlertPendingConfirm || p == PhaseAlertActive || p == PhaseAlertActiveSilent
}

// Connectivity is the coarse connection state derived from poll outcomes.
type Connectivity int

const (
	// ConnectivityUnknown is reported before the first poll completes.
	ConnectivityUnknown Connectivity = iota
	// ConnectivityConnected follows a successful poll.
	ConnectivityConnected
	// ConnectivityDisconnected follows any failed poll.
	ConnectivityDisconnected
)

// ConnectionStatus is the overlay shown next to the alert phase.
type ConnectionStatus struct {
	// State is the coarse connectivity.
	State Connectivity
	// Reason explains the last failure; empty unless disconnected.
	Reason string
	// ConsecutiveFailures counts failed polls since the last success.
	ConsecutiveFailures int
}

// Connected returns the status reported after a successful poll.
func Connected() ConnectionStatus {
	return ConnectionStatus{State: ConnectivityConnected}
}

// Disconnected returns the status reported after a failed poll.
func Disconnected(reason string, failures int) ConnectionStatus {
	return ConnectionStatus{
		State:               ConnectivityDisconnected,
		Reason:              reason,
		ConsecutiveFailures: failures,
	}
}

// String renders the status for the console.
func (c ConnectionStatus) String() string {
	switch c.State {
	case ConnectivityConnected:
		return "connected"
	case ConnectivityDisconnected:
		if c.Reason == "" {
			return "disconnected"
		}

		return "disconnected: " + c.Reason
	default:
		return "connecting"
	}
}

// LocalState is one device's view of the alert. It is owned by a single
// goroutine and handed out only as a copy.
type LocalState struct {
	// Phase is the state machine phase.
	Phase Phase
	// IsSender is true only if this device raised the current alert.
	IsSender bool
	// CurrentRaiser is the raiser of the alert in flight.
	CurrentRaiser string
	// SuppressReconcile is the stop-guard: reconcile is ignored while it is set.
	SuppressReconcile bool
	// IsMuted silences a full alarm locally; reset when the alert ends.
	IsMuted bool
	// Connection is the overlay driven by poll outcomes.
	Connection ConnectionStatus
}
