package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/repository/remote"
)

// DefaultInterval is the fixed delay between polls.
const DefaultInterval = 3 * time.Second

// Fetcher reads the shared alert document.
type Fetcher interface {
	Fetch(ctx context.Context) (*alert.RemoteState, error)
}

// Sink receives poll outcomes. The coordinator implements it.
type Sink interface {
	Reconcile(ctx context.Context, remote *alert.RemoteState) error
	ConnectionChanged(ctx context.Context, status alert.ConnectionStatus) error
}

var (
	// ErrStopped is returned by commands sent after Run has returned.
	ErrStopped = errors.New("poller is not running")

	errFetcherRequired = errors.New("fetcher must be provided")
	errSinkRequired    = errors.New("sink must be provided")
	errAlreadyRunning  = errors.New("poller is already running")
)

type command int

const (
	commandPause command = iota
	commandResume
	commandPollNow
)

// fetchResult is the outcome of one fetch started under a generation.
type fetchResult struct {
	generation uint64
	remote     *alert.RemoteState
	err        error
}

// Poller fetches the alert document on a fixed cadence and forwards each
// result to the sink in completion order. A tick that finds a fetch still in
// flight is skipped. Pausing drops the result of a fetch already in flight.
type Poller struct {
	fetcher  Fetcher
	sink     Sink
	interval time.Duration

	commands chan command
	done     chan struct{}
	running  atomic.Bool

	// Owned by the Run goroutine.
	paused      bool
	generation  uint64
	inFlight    bool
	inFlightGen uint64
	failures    int
	connected   bool
}

// New returns a Poller; an interval of zero or less uses DefaultInterval.
func New(fetcher Fetcher, sink Sink, interval time.Duration) (*Poller, error) {
	if fetcher == nil {
		return nil, errFetcherRequired
	}

	if sink == nil {
		return nil, errSinkRequired
	}

	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		fetcher:  fetcher,
		sink:     sink,
		interval: interval,
		commands: make(chan command),
		done:     make(chan struct{}),
	}, nil
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	ctx = logger.WithName(ctx, "poller")
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	results := make(chan fetchResult)

	logger.DebugKV(ctx, "Poller started", "interval", p.interval)
	p.poll(ctx, results)

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Poller stopped")

			return nil
		case <-ticker.C:
			if !p.paused {
				p.poll(ctx, results)
			}
		case cmd := <-p.commands:
			p.apply(ctx, cmd, results)
		case result := <-results:
			p.handle(ctx, result)
		}
	}
}

// Pause stops polling; the result of a fetch in flight is discarded.
func (p *Poller) Pause(ctx context.Context) error {
	return p.send(ctx, commandPause)
}

// Resume restarts polling with an immediate poll.
func (p *Poller) Resume(ctx context.Context) error {
	return p.send(ctx, commandResume)
}

// PollNow polls immediately unless paused or a fetch is in flight.
func (p *Poller) PollNow(ctx context.Context) error {
	return p.send(ctx, commandPollNow)
}

func (p *Poller) apply(ctx context.Context, cmd command, results chan<- fetchResult) {
	switch cmd {
	case commandPause:
		if p.paused {
			return
		}

		p.paused = true
		p.generation++
		logger.Debug(ctx, "Polling paused")
	case commandResume:
		if !p.paused {
			return
		}

		p.paused = false
		logger.Debug(ctx, "Polling resumed")
		p.poll(ctx, results)
	case commandPollNow:
		if !p.paused {
			p.poll(ctx, results)
		}
	}
}

// poll starts one fetch unless a fetch of the current generation is in flight.
func (p *Poller) poll(ctx context.Context, results chan<- fetchResult) {
	if p.inFlight && p.inFlightGen == p.generation {
		logger.Debug(ctx, "Previous poll still in flight, skipping")

		return
	}

	p.inFlight = true
	p.inFlightGen = p.generation
	generation := p.generation

	go func() {
		state, err := p.fetcher.Fetch(ctx)

		select {
		case results <- fetchResult{generation: generation, remote: state, err: err}:
		case <-p.done:
		}
	}()
}

func (p *Poller) handle(ctx context.Context, result fetchResult) {
	if result.generation == p.inFlightGen {
		p.inFlight = false
	}

	if result.generation != p.generation || p.paused {
		logger.Debug(ctx, "Discarded poll result from before a pause")

		return
	}

	if result.err != nil {
		if ctx.Err() != nil {
			return
		}

		p.failures++
		p.connected = false

		reason := remote.Reason(result.err)
		logger.WarnKV(ctx, "Poll failed", "reason", reason, "failures", p.failures, "error", result.err)
		p.notify(ctx, p.sink.ConnectionChanged(ctx, alert.Disconnected(reason, p.failures)))

		return
	}

	if !p.connected {
		p.connected = true
		p.failures = 0
		p.notify(ctx, p.sink.ConnectionChanged(ctx, alert.Connected()))
	}

	p.notify(ctx, p.sink.Reconcile(ctx, result.remote))
}

func (p *Poller) notify(ctx context.Context, err error) {
	if err != nil && ctx.Err() == nil {
		logger.WarnKV(ctx, "Poll result not delivered", "error", err)
	}
}

func (p *Poller) send(ctx context.Context, cmd command) error {
	select {
	case p.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrStopped
	}
}
