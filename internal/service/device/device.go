package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/repository/remote"
	"github.com/oshokin/alert-relay/internal/service/coordinator"
	"github.com/oshokin/alert-relay/internal/service/history"
	"github.com/oshokin/alert-relay/internal/service/poller"
)

// SilentModeSetter persists the silent-mode flag. The profile store implements it.
type SilentModeSetter interface {
	SetSilentMode(ctx context.Context, enabled bool) error
}

// Params hold the collaborators of a Device.
type Params struct {
	// Profile is the device identity. Required.
	Profile *alert.Profile
	// Remote is the shared document and history client. Required.
	Remote remote.Repository
	// Settings persists silent mode. Required.
	Settings SilentModeSetter
	// SilentMode is the stored flag at startup.
	SilentMode bool
	// Alarm plays the full alarm; nil disables output.
	Alarm coordinator.Alarm
	// PollInterval defaults to poller.DefaultInterval.
	PollInterval time.Duration
	// StopGrace defaults to coordinator.DefaultStopGrace.
	StopGrace time.Duration
	// VibrateInterval defaults to coordinator.DefaultVibrateInterval.
	VibrateInterval time.Duration
	// HistoryLimit caps the history view.
	HistoryLimit int
	// Out receives console output; stdout when nil.
	Out io.Writer
}

var (
	errRemoteRequired   = errors.New("remote repository must be provided")
	errSettingsRequired = errors.New("settings store must be provided")
)

// Device is one running participant: state machine, poller and console.
type Device struct {
	machine  *coordinator.Machine
	poller   *poller.Poller
	recorder *history.Recorder
	settings SilentModeSetter
	limit    int

	out      io.Writer
	outMu    sync.Mutex
	lastLine string
}

// New wires a Device from params.
func New(params *Params) (*Device, error) {
	if params == nil || params.Remote == nil {
		return nil, errRemoteRequired
	}

	if params.Settings == nil {
		return nil, errSettingsRequired
	}

	d := &Device{
		recorder: history.NewRecorder(params.Remote, params.HistoryLimit),
		settings: params.Settings,
		limit:    params.HistoryLimit,
		out:      params.Out,
	}

	if d.out == nil {
		d.out = os.Stdout
	}

	machine, err := coordinator.New(&coordinator.Options{
		Profile:         params.Profile,
		Remote:          params.Remote,
		History:         d.recorder,
		Alarm:           params.Alarm,
		SilentMode:      params.SilentMode,
		StopGrace:       params.StopGrace,
		VibrateInterval: params.VibrateInterval,
		OnChange:        d.showState,
	})
	if err != nil {
		return nil, fmt.Errorf("create state machine: %w", err)
	}

	d.machine = machine

	d.poller, err = poller.New(params.Remote, machine, params.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("create poller: %w", err)
	}

	return d, nil
}

// Run starts the state machine and the poller and serves console commands
// read from in until quit, end of input or ctx cancellation.
func (d *Device) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Go(func() {
		if err := d.machine.Run(ctx); err != nil {
			logger.ErrorKV(ctx, "State machine stopped", "error", err)
		}
	})

	wg.Go(func() {
		if err := d.poller.Run(ctx); err != nil {
			logger.ErrorKV(ctx, "Poller stopped", "error", err)
		}
	})

	d.printf("Profile: %s. Type \"help\" for commands.\n", d.machine.Profile())

	lines := readLines(in, ctx.Done())

	for {
		select {
		case <-ctx.Done():
			cancel()
			wg.Wait()

			return nil
		case line, ok := <-lines:
			if !ok || d.Execute(ctx, line) {
				cancel()
				wg.Wait()

				return nil
			}
		}
	}
}

// showState prints the state when its rendering changed. It runs on the
// state machine goroutine.
func (d *Device) showState(state alert.LocalState) {
	line := describe(state)

	d.outMu.Lock()
	defer d.outMu.Unlock()

	if line == d.lastLine {
		return
	}

	d.lastLine = line
	_, _ = fmt.Fprintln(d.out, line)
}

func (d *Device) printf(format string, args ...any) {
	d.outMu.Lock()
	defer d.outMu.Unlock()

	_, _ = fmt.Fprintf(d.out, format, args...)
}

// describe renders the local state as one console line.
func describe(state alert.LocalState) string {
	var line string

	switch state.Phase {
	case alert.PhaseInitializing:
		line = "Connecting..."
	case alert.PhaseConnectedIdle:
		line = "No active alert."
	case alert.PhaseAlertPendingConfirm:
		line = "Alert sent. Waiting for confirmation..."
	case alert.PhaseAlertActive:
		line = fmt.Sprintf("!!! ALERT from %s !!!", state.CurrentRaiser)
		if state.IsMuted {
			line += " (muted)"
		}
	case alert.PhaseAlertActiveSilent:
		line = fmt.Sprintf("Alert from %s (silent mode)", state.CurrentRaiser)
	case alert.PhaseResolving:
		line = "Stopping alert..."
	default:
		line = state.Phase.String()
	}

	if state.Connection.State != alert.ConnectivityDisconnected {
		return line
	}

	return fmt.Sprintf("%s [%s, %d failed polls]",
		line, state.Connection, state.Connection.ConsecutiveFailures)
}
