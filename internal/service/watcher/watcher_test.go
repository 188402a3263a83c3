package watcher

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alert-relay/internal/domain/alert"
)

type fakeFetcher struct {
	mu    sync.Mutex
	state *alert.RemoteState
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context) (*alert.RemoteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.state.Clone(), nil
}

func (f *fakeFetcher) set(state *alert.RemoteState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state, f.err = state, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// fakeNotifier records notifications as "alert:X", "silent:X" and "clear".
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakeNotifier) ShowAlert(_ context.Context, raiser string) error {
	return f.record("alert:" + raiser)
}

func (f *fakeNotifier) ShowSilent(_ context.Context, raiser string) error {
	return f.record("silent:" + raiser)
}

func (f *fakeNotifier) Clear(context.Context) error {
	return f.record("clear")
}

func (f *fakeNotifier) record(event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.events = append(f.events, event)

	return nil
}

func (f *fakeNotifier) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.events...)
}

type fakeSilent struct {
	mu      sync.Mutex
	enabled bool
	reads   int
}

func (f *fakeSilent) SilentMode(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++

	return f.enabled, nil
}

func (f *fakeSilent) set(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.enabled = enabled
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, new(fakeNotifier), new(fakeSilent), nil)
	require.ErrorIs(t, err, errFetcherRequired)

	_, err = New(new(fakeFetcher), nil, new(fakeSilent), nil)
	require.ErrorIs(t, err, errNotifierRequired)

	_, err = New(new(fakeFetcher), new(fakeNotifier), nil, nil)
	require.ErrorIs(t, err, errSilentRequired)
}

func TestWatcher_NotifiesOnEdgesOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{state: alert.Inactive()}
	notifier := new(fakeNotifier)

	w, err := New(fetcher, notifier, new(fakeSilent), nil)
	require.NoError(t, err)

	require.NoError(t, w.Check(ctx))
	require.Empty(t, notifier.snapshot())

	fetcher.set(alert.Raised("SALA MINIMIS"), nil)
	require.NoError(t, w.Check(ctx))
	require.NoError(t, w.Check(ctx))
	require.Equal(t, []string{"alert:SALA MINIMIS"}, notifier.snapshot())

	fetcher.set(alert.Inactive(), nil)
	require.NoError(t, w.Check(ctx))
	require.NoError(t, w.Check(ctx))
	require.Equal(t, []string{"alert:SALA MINIMIS", "clear"}, notifier.snapshot())
}

func TestWatcher_ReadsSilentModeOnEveryRisingEdge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{state: alert.Raised("")}
	notifier := new(fakeNotifier)
	silent := &fakeSilent{enabled: true}

	w, err := New(fetcher, notifier, silent, nil)
	require.NoError(t, err)

	require.NoError(t, w.Check(ctx))

	fetcher.set(alert.Inactive(), nil)
	require.NoError(t, w.Check(ctx))

	silent.set(false)
	fetcher.set(alert.Raised("POARTA"), nil)
	require.NoError(t, w.Check(ctx))

	require.Equal(t, []string{"silent:UNKNOWN", "clear", "alert:POARTA"}, notifier.snapshot())
	require.Equal(t, 2, silent.reads)
}

func TestWatcher_FetchErrorKeepsEdgeState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{state: alert.Raised("POARTA")}
	notifier := new(fakeNotifier)

	w, err := New(fetcher, notifier, new(fakeSilent), nil)
	require.NoError(t, err)

	require.NoError(t, w.Check(ctx))

	fetcher.set(nil, errors.New("connection refused"))
	require.Error(t, w.Check(ctx))

	fetcher.set(alert.Raised("POARTA"), nil)
	require.NoError(t, w.Check(ctx))

	require.Equal(t, []string{"alert:POARTA"}, notifier.snapshot())
}

func TestWatcher_QuietWhileDeviceRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{state: alert.Raised("POARTA")}
	notifier := new(fakeNotifier)
	running := false

	w, err := New(fetcher, notifier, new(fakeSilent), func() (bool, error) { return running, nil })
	require.NoError(t, err)

	require.NoError(t, w.Check(ctx))

	// The device takes over: the notification is withdrawn and nothing is fetched.
	running = true
	require.NoError(t, w.Check(ctx))
	require.Equal(t, 1, fetcher.callCount())

	// The device exits while the alert is still active: announce it again.
	running = false
	require.NoError(t, w.Check(ctx))

	require.Equal(t, []string{"alert:POARTA", "clear", "alert:POARTA"}, notifier.snapshot())
}

func TestWatcher_FailedNotificationIsNotCleared(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{state: alert.Raised("POARTA")}
	notifier := &fakeNotifier{err: errors.New("notify-send: not found")}

	w, err := New(fetcher, notifier, new(fakeSilent), nil)
	require.NoError(t, err)

	require.NoError(t, w.Check(ctx))

	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()

	fetcher.set(alert.Inactive(), nil)
	require.NoError(t, w.Check(ctx))
	require.Empty(t, notifier.snapshot())
}

func TestWatcher_RunPollsOnInterval(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		fetcher := &fakeFetcher{state: alert.Inactive()}

		w, err := New(fetcher, new(fakeNotifier), new(fakeSilent), nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			done <- w.Run(ctx, 3*time.Second)
		}()

		synctest.Wait()
		require.Equal(t, 1, fetcher.callCount())

		time.Sleep(9 * time.Second)
		synctest.Wait()
		require.Equal(t, 4, fetcher.callCount())

		cancel()
		require.NoError(t, <-done)
	})
}

func TestIsDeviceExecutable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{name: "alert-device", want: true},
		{name: "alert-device.exe", want: true},
		{name: "ALERT-DEVICE.EXE", want: true},
		{name: "alert-watcher", want: false},
		{name: "alert-device-old", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, isDeviceExecutable(tt.name))
		})
	}
}

func TestQuoting(t *testing.T) {
	t.Parallel()

	require.Equal(t, `"Alert from \"A\" \\ B"`, appleScriptQuote(`Alert from "A" \ B`))
	require.Equal(t, `'Alert from O''Neil'`, powerShellQuote("Alert from O'Neil"))
}

func TestDesktopNotifier_CommandError(t *testing.T) {
	t.Parallel()

	n := &DesktopNotifier{
		command: func(context.Context, string, string, bool) (*exec.Cmd, error) {
			return nil, ErrUnsupportedOS
		},
	}

	require.ErrorIs(t, n.ShowAlert(context.Background(), "POARTA"), ErrUnsupportedOS)
}
