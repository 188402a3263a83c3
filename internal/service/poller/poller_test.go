package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/repository/remote"
)

// fakeFetcher returns the configured state or error and counts calls.
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	state *alert.RemoteState
	err   error
	block chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*alert.RemoteState, error) {
	f.mu.Lock()
	f.calls++
	block, state, err := f.block, f.state, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	return state, nil
}

func (f *fakeFetcher) set(state *alert.RemoteState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state, f.err = state, err
}

func (f *fakeFetcher) setBlock(block chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.block = block
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// fakeSink records what the poller delivered.
type fakeSink struct {
	mu         sync.Mutex
	reconciled []*alert.RemoteState
	statuses   []alert.ConnectionStatus
}

func (f *fakeSink) Reconcile(_ context.Context, state *alert.RemoteState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reconciled = append(f.reconciled, state)

	return nil
}

func (f *fakeSink) ConnectionChanged(_ context.Context, status alert.ConnectionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statuses = append(f.statuses, status)

	return nil
}

func (f *fakeSink) snapshot() ([]*alert.RemoteState, []alert.ConnectionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*alert.RemoteState(nil), f.reconciled...),
		append([]alert.ConnectionStatus(nil), f.statuses...)
}

func startPoller(t *testing.T, fetcher *fakeFetcher, sink *fakeSink) (*Poller, context.CancelFunc) {
	t.Helper()

	p, err := New(fetcher, sink, 3*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_ = p.Run(ctx)
	}()

	return p, cancel
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, new(fakeSink), 0)
	require.ErrorIs(t, err, errFetcherRequired)

	_, err = New(new(fakeFetcher), nil, 0)
	require.ErrorIs(t, err, errSinkRequired)

	p, err := New(new(fakeFetcher), new(fakeSink), 0)
	require.NoError(t, err)
	require.Equal(t, DefaultInterval, p.interval)
}

func TestPoller_PollsImmediatelyThenOnCadence(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		fetcher := &fakeFetcher{state: alert.Raised("SALA MINIMIS")}
		sink := new(fakeSink)

		_, cancel := startPoller(t, fetcher, sink)
		defer cancel()

		synctest.Wait()
		require.Equal(t, 1, fetcher.callCount())

		reconciled, statuses := sink.snapshot()
		require.Equal(t, []*alert.RemoteState{alert.Raised("SALA MINIMIS")}, reconciled)
		require.Equal(t, []alert.ConnectionStatus{alert.Connected()}, statuses)

		time.Sleep(7 * time.Second)
		synctest.Wait()

		require.Equal(t, 3, fetcher.callCount())

		// Connected is only reported on transitions.
		reconciled, statuses = sink.snapshot()
		require.Len(t, reconciled, 3)
		require.Len(t, statuses, 1)
	})
}

func TestPoller_FailuresCountUntilSuccess(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		timeout := &remote.NetworkError{Kind: remote.KindTimeout, Op: "fetch alert", Err: context.DeadlineExceeded}
		fetcher := &fakeFetcher{err: timeout}
		sink := new(fakeSink)

		_, cancel := startPoller(t, fetcher, sink)
		defer cancel()

		time.Sleep(4 * time.Second)
		synctest.Wait()

		reconciled, statuses := sink.snapshot()
		require.Empty(t, reconciled)
		require.Equal(t, []alert.ConnectionStatus{
			alert.Disconnected("timeout", 1),
			alert.Disconnected("timeout", 2),
		}, statuses)

		fetcher.set(alert.Inactive(), nil)

		time.Sleep(3 * time.Second)
		synctest.Wait()

		reconciled, statuses = sink.snapshot()
		require.Len(t, reconciled, 1)
		require.Equal(t, alert.Connected(), statuses[len(statuses)-1])

		fetcher.set(nil, errors.New("connection reset"))

		time.Sleep(3 * time.Second)
		synctest.Wait()

		_, statuses = sink.snapshot()
		require.Equal(t, alert.Disconnected("connection lost", 1), statuses[len(statuses)-1])
	})
}

func TestPoller_SkipsTickWhileFetchInFlight(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		block := make(chan struct{})
		fetcher := &fakeFetcher{state: alert.Inactive(), block: block}
		sink := new(fakeSink)

		_, cancel := startPoller(t, fetcher, sink)
		defer cancel()

		time.Sleep(10 * time.Second)
		synctest.Wait()
		require.Equal(t, 1, fetcher.callCount())

		fetcher.setBlock(nil)
		close(block)
		synctest.Wait()

		reconciled, _ := sink.snapshot()
		require.Len(t, reconciled, 1)
	})
}

func TestPoller_PauseDropsInFlightResult(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		fetcher := &fakeFetcher{state: alert.Inactive()}
		sink := new(fakeSink)

		p, cancel := startPoller(t, fetcher, sink)
		defer cancel()

		synctest.Wait()

		block := make(chan struct{})
		fetcher.setBlock(block)
		fetcher.set(alert.Raised("SALA MINIMIS"), nil)

		require.NoError(t, p.PollNow(context.Background()))
		synctest.Wait()
		require.Equal(t, 2, fetcher.callCount())

		require.NoError(t, p.Pause(context.Background()))

		fetcher.setBlock(nil)
		close(block)
		synctest.Wait()

		reconciled, _ := sink.snapshot()
		require.Equal(t, []*alert.RemoteState{alert.Inactive()}, reconciled)

		// Nothing is fetched while paused.
		time.Sleep(10 * time.Second)
		synctest.Wait()
		require.Equal(t, 2, fetcher.callCount())

		require.NoError(t, p.PollNow(context.Background()))
		synctest.Wait()
		require.Equal(t, 2, fetcher.callCount())

		// Resume polls right away.
		require.NoError(t, p.Resume(context.Background()))
		synctest.Wait()
		require.Equal(t, 3, fetcher.callCount())

		reconciled, _ = sink.snapshot()
		require.Equal(t, alert.Raised("SALA MINIMIS"), reconciled[len(reconciled)-1])
	})
}

func TestPoller_CommandsAfterStop(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		p, cancel := startPoller(t, &fakeFetcher{state: alert.Inactive()}, new(fakeSink))

		synctest.Wait()
		cancel()
		synctest.Wait()

		require.ErrorIs(t, p.Pause(context.Background()), ErrStopped)
		require.ErrorIs(t, p.Run(context.Background()), errAlreadyRunning)
	})
}
