package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alert-relay/internal/domain/alert"
)

// memoryRemote is an in-memory shared document and history collection.
type memoryRemote struct {
	mu      sync.Mutex
	state   *alert.RemoteState
	entries []*alert.HistoryEntry
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{state: alert.Inactive()}
}

func (m *memoryRemote) Fetch(context.Context) (*alert.RemoteState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Clone(), nil
}

func (m *memoryRemote) Write(_ context.Context, state *alert.RemoteState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state.Clone()

	return nil
}

func (m *memoryRemote) AppendHistory(_ context.Context, entry *alert.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := *entry
	m.entries = append(m.entries, &cloned)

	return nil
}

func (m *memoryRemote) ListHistory(context.Context) ([]*alert.HistoryEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*alert.HistoryEntry(nil), m.entries...), 0, nil
}

func (m *memoryRemote) current() *alert.RemoteState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Clone()
}

func (m *memoryRemote) history() []*alert.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*alert.HistoryEntry(nil), m.entries...)
}

type fakeSettings struct {
	mu     sync.Mutex
	silent []bool
}

func (f *fakeSettings) SetSilentMode(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.silent = append(f.silent, enabled)

	return nil
}

func (f *fakeSettings) values() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]bool(nil), f.silent...)
}

type fakeAlarm struct {
	mu            sync.Mutex
	starts, stops int
	pulses        int
}

func (f *fakeAlarm) StartAlarm(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.starts++
}

func (f *fakeAlarm) StopAlarm(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++
}

func (f *fakeAlarm) VibratePulse(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pulses++
}

func (f *fakeAlarm) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.starts, f.stops
}

// lockedBuffer is a bytes.Buffer safe for the console and machine goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// session runs a Device inside a synctest bubble and feeds it console lines.
type session struct {
	t      *testing.T
	remote *memoryRemote
	out    *lockedBuffer
	in     *io.PipeWriter
	done   chan error
}

func startSession(t *testing.T, p *alert.Profile, remote *memoryRemote, settings *fakeSettings, alarm *fakeAlarm) *session {
	t.Helper()

	out := new(lockedBuffer)
	params := &Params{
		Profile:      p,
		Remote:       remote,
		Settings:     settings,
		PollInterval: 3 * time.Second,
		HistoryLimit: 10,
		Out:          out,
	}

	if alarm != nil {
		params.Alarm = alarm
	}

	d, err := New(params)
	require.NoError(t, err)

	in, w := io.Pipe()
	s := &session{t: t, remote: remote, out: out, in: w, done: make(chan error, 1)}

	go func() {
		s.done <- d.Run(context.Background(), in)
	}()

	synctest.Wait()

	return s
}

func (s *session) send(line string) {
	s.t.Helper()

	_, err := fmt.Fprintln(s.in, line)
	require.NoError(s.t, err)
	synctest.Wait()
}

func (s *session) quit() {
	s.t.Helper()

	s.send("quit")
	require.NoError(s.t, <-s.done)
	require.NoError(s.t, s.in.Close())
	synctest.Wait()
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, errRemoteRequired)

	_, err = New(&Params{Remote: newMemoryRemote()})
	require.ErrorIs(t, err, errSettingsRequired)

	_, err = New(&Params{Remote: newMemoryRemote(), Settings: new(fakeSettings)})
	require.Error(t, err)
}

func TestDevice_SenderRaisesAndCancels(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		sender, err := alert.NewSenderProfile("SALA MINIMIS")
		require.NoError(t, err)

		remote := newMemoryRemote()
		s := startSession(t, sender, remote, new(fakeSettings), new(fakeAlarm))

		require.Contains(t, s.out.String(), "No active alert.")

		s.send("raise")
		require.Equal(t, alert.Raised("SALA MINIMIS"), remote.current())
		require.Contains(t, s.out.String(), "Alert sent. Waiting for confirmation...")

		// The next poll echoes the own alert back without changing anything.
		time.Sleep(3 * time.Second)
		synctest.Wait()

		s.send("stop")
		require.Equal(t, alert.Inactive(), remote.current())

		entries := remote.history()
		require.Len(t, entries, 1)
		require.Equal(t, alert.KindCancelled, entries[0].Kind)
		require.Equal(t, "SALA MINIMIS", entries[0].ResolvedBy)

		s.send("history")
		require.Contains(t, s.out.String(), "Alert from SALA MINIMIS - CANCELLED by SALA MINIMIS")

		s.quit()
	})
}

func TestDevice_ReceiverConfirmsIncomingAlert(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		receiver, err := alert.NewReceiverProfile("poarta")
		require.NoError(t, err)

		remote := newMemoryRemote()
		alarm := new(fakeAlarm)
		s := startSession(t, receiver, remote, new(fakeSettings), alarm)

		s.send("raise")
		require.Contains(t, s.out.String(), "Cannot raise now.")
		require.Equal(t, alert.Inactive(), remote.current())

		require.NoError(t, remote.Write(context.Background(), alert.Raised("SALA MINIMIS")))
		time.Sleep(3 * time.Second)
		synctest.Wait()

		require.Contains(t, s.out.String(), "!!! ALERT from SALA MINIMIS !!!")

		starts, _ := alarm.counts()
		require.Equal(t, 1, starts)

		s.send("mute")
		require.Contains(t, s.out.String(), "!!! ALERT from SALA MINIMIS !!! (muted)")

		s.send("stop")
		require.Equal(t, alert.Inactive(), remote.current())

		entries := remote.history()
		require.Len(t, entries, 1)
		require.Equal(t, alert.KindConfirmed, entries[0].Kind)
		require.Equal(t, "POARTA", entries[0].ResolvedBy)

		s.send("status")
		require.Contains(t, s.out.String(), "Profile: POARTA (receiver)")

		s.quit()
	})
}

func TestDevice_SilentModeToggle(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		receiver, err := alert.NewReceiverProfile("POARTA")
		require.NoError(t, err)

		remote := newMemoryRemote()
		settings := new(fakeSettings)
		alarm := new(fakeAlarm)
		s := startSession(t, receiver, remote, settings, alarm)

		s.send("silent")
		require.Contains(t, s.out.String(), "Usage: silent on|off")

		s.send("silent on")
		require.Contains(t, s.out.String(), "Silent mode on.")
		require.Equal(t, []bool{true}, settings.values())

		require.NoError(t, remote.Write(context.Background(), alert.Raised("SALA MINIMIS")))
		time.Sleep(3 * time.Second)
		synctest.Wait()

		require.Contains(t, s.out.String(), "Alert from SALA MINIMIS (silent mode)")

		starts, _ := alarm.counts()
		require.Zero(t, starts)

		s.quit()
	})
}

func TestDevice_ConsoleHelpAndUnknown(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		sender, err := alert.NewSenderProfile("SALA MINIMIS")
		require.NoError(t, err)

		s := startSession(t, sender, newMemoryRemote(), new(fakeSettings), nil)

		s.send("")
		s.send("help")
		require.Contains(t, s.out.String(), "silent on    keep incoming alerts quiet")

		s.send("dance")
		require.Contains(t, s.out.String(), `Unknown command "dance"`)

		s.send("history")
		require.Contains(t, s.out.String(), "No alerts recorded yet.")

		s.quit()
	})
}

func TestDevice_EndOfInputStops(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		sender, err := alert.NewSenderProfile("SALA MINIMIS")
		require.NoError(t, err)

		d, err := New(&Params{
			Profile:  sender,
			Remote:   newMemoryRemote(),
			Settings: new(fakeSettings),
			Out:      new(lockedBuffer),
		})
		require.NoError(t, err)

		require.NoError(t, d.Run(context.Background(), strings.NewReader("")))
	})
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state alert.LocalState
		want  string
	}{
		{
			name:  "initializing",
			state: alert.LocalState{Phase: alert.PhaseInitializing},
			want:  "Connecting...",
		},
		{
			name:  "idle",
			state: alert.LocalState{Phase: alert.PhaseConnectedIdle, Connection: alert.Connected()},
			want:  "No active alert.",
		},
		{
			name: "active muted",
			state: alert.LocalState{
				Phase:         alert.PhaseAlertActive,
				CurrentRaiser: "SALA MINIMIS",
				IsMuted:       true,
			},
			want: "!!! ALERT from SALA MINIMIS !!! (muted)",
		},
		{
			name: "silent while disconnected",
			state: alert.LocalState{
				Phase:         alert.PhaseAlertActiveSilent,
				CurrentRaiser: "SALA MINIMIS",
				Connection:    alert.Disconnected("timeout", 3),
			},
			want: "Alert from SALA MINIMIS (silent mode) [disconnected: timeout, 3 failed polls]",
		},
		{
			name:  "resolving",
			state: alert.LocalState{Phase: alert.PhaseResolving},
			want:  "Stopping alert...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, describe(tt.state))
		})
	}
}

func TestFormatHistory(t *testing.T) {
	t.Parallel()

	entries := []*alert.HistoryEntry{
		{
			Timestamp:  time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
			RaisedBy:   "SALA MINIMIS",
			ResolvedBy: "POARTA",
			Kind:       alert.KindConfirmed,
		},
	}

	require.Equal(t,
		"2026-03-01 10:30:00  Alert from SALA MINIMIS - CONFIRMED by POARTA\n",
		formatHistory(entries))
}
