package watcher

import (
	"context"
	"errors"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
)

// Fetcher reads the shared alert document.
type Fetcher interface {
	Fetch(ctx context.Context) (*alert.RemoteState, error)
}

// Notifier shows and withdraws alert notifications.
type Notifier interface {
	ShowAlert(ctx context.Context, raiser string) error
	ShowSilent(ctx context.Context, raiser string) error
	Clear(ctx context.Context) error
}

// SilentModeSource reports the device silent-mode flag.
// The profile store implements it.
type SilentModeSource interface {
	SilentMode(ctx context.Context) (bool, error)
}

// PresenceFunc reports whether the interactive runtime is running.
type PresenceFunc func() (bool, error)

var (
	errFetcherRequired  = errors.New("fetcher must be provided")
	errNotifierRequired = errors.New("notifier must be provided")
	errSilentRequired   = errors.New("silent mode source must be provided")
)

// Watcher tracks the last seen alert state and notifies on edges.
// It is not safe for concurrent use; Run drives it from one goroutine.
type Watcher struct {
	fetcher  Fetcher
	notifier Notifier
	silent   SilentModeSource
	presence PresenceFunc

	// active is the alert state seen by the previous check.
	active bool
	// shown is true while a notification is on screen.
	shown bool
}

// New returns a Watcher. A nil presence func means the device is never running.
func New(fetcher Fetcher, notifier Notifier, silent SilentModeSource, presence PresenceFunc) (*Watcher, error) {
	if fetcher == nil {
		return nil, errFetcherRequired
	}

	if notifier == nil {
		return nil, errNotifierRequired
	}

	if silent == nil {
		return nil, errSilentRequired
	}

	if presence == nil {
		presence = func() (bool, error) { return false, nil }
	}

	return &Watcher{
		fetcher:  fetcher,
		notifier: notifier,
		silent:   silent,
		presence: presence,
	}, nil
}

// Check polls once and notifies on a rising or falling edge.
// A failed fetch leaves the edge state unchanged.
func (w *Watcher) Check(ctx context.Context) error {
	running, err := w.presence()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
	}

	// The device shows the alert itself; forget the edge so an alert
	// still active after it exits is announced again.
	if running {
		if w.shown {
			w.clear(ctx)
		}

		w.active = false

		return nil
	}

	state, err := w.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	switch {
	case state.Active && !w.active:
		w.active = true
		w.rise(ctx, state.Raiser())
	case !state.Active && w.active:
		w.active = false
		logger.Info(ctx, "Alert ended")

		if w.shown {
			w.clear(ctx)
		}
	}

	return nil
}

func (w *Watcher) rise(ctx context.Context, raiser string) {
	// Silent mode is read on every edge; alert-device may have changed it.
	silent, err := w.silent.SilentMode(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Unable to read silent mode, assuming off", "error", err)
	}

	if silent {
		logger.InfoKV(ctx, "Alert raised, silent mode on", "raised_by", raiser)
		err = w.notifier.ShowSilent(ctx, raiser)
	} else {
		logger.WarnKV(ctx, "ALERT raised", "raised_by", raiser)
		err = w.notifier.ShowAlert(ctx, raiser)
	}

	if err != nil {
		logger.WarnKV(ctx, "Unable to show notification", "error", err)

		return
	}

	w.shown = true
}

func (w *Watcher) clear(ctx context.Context) {
	w.shown = false

	if err := w.notifier.Clear(ctx); err != nil {
		logger.WarnKV(ctx, "Unable to clear notification", "error", err)
	}
}
