package alert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRemoteStateClone verifies that inactive states drop the raiser.
func TestRemoteStateClone(t *testing.T) {
	t.Parallel()

	s := &RemoteState{Active: false, RaisedBy: "SALA"}
	c := s.Clone()

	require.False(t, c.Active)
	require.Empty(t, c.RaisedBy)
	require.NotSame(t, s, c)

	require.Equal(t, Inactive(), (*RemoteState)(nil).Clone())
	require.Equal(t, "SALA", Raised("SALA").Clone().RaisedBy)
}

// TestRemoteStateRaiser covers the unknown-raiser fallback.
func TestRemoteStateRaiser(t *testing.T) {
	t.Parallel()

	require.Equal(t, "SALA", Raised("SALA").Raiser())
	require.Equal(t, UnknownRaiser, Raised("").Raiser())
	require.Empty(t, Inactive().Raiser())
	require.Empty(t, (*RemoteState)(nil).Raiser())
}

// TestPhaseIsAlert lists exactly the phases stop() accepts.
func TestPhaseIsAlert(t *testing.T) {
	t.Parallel()

	alerts := map[Phase]bool{
		PhaseInitializing:        false,
		PhaseConnectedIdle:       false,
		PhaseAlertPendingConfirm: true,
		PhaseAlertActive:         true,
		PhaseAlertActiveSilent:   true,
		PhaseResolving:           false,
	}

	for phase, want := range alerts {
		require.Equal(t, want, phase.IsAlert(), phase.String())
	}
}

// TestConnectionStatusString checks the console rendering of the overlay.
func TestConnectionStatusString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "connecting", ConnectionStatus{}.String())
	require.Equal(t, "connected", Connected().String())
	require.Equal(t, "disconnected: timeout", Disconnected("timeout", 2).String())
	require.Equal(t, "disconnected", Disconnected("", 1).String())
}

// TestResolutionFor checks attribution of who stopped the alert.
func TestResolutionFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, KindCancelled, ResolutionFor(true))
	require.Equal(t, KindConfirmed, ResolutionFor(false))
}
