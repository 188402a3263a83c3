package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
)

const (
	// DefaultStopGrace is how long reconcile stays suppressed after a stop resolves.
	DefaultStopGrace = time.Second
	// DefaultVibrateInterval is the haptic pulse cadence of a full alarm.
	DefaultVibrateInterval = 2 * time.Second
)

// RemoteWriter writes the shared alert document.
type RemoteWriter interface {
	Write(ctx context.Context, state *alert.RemoteState) error
}

// HistoryAppender records resolutions.
type HistoryAppender interface {
	Append(ctx context.Context, entry *alert.HistoryEntry) error
}

// Alarm drives sound and haptics. Calls must not block.
type Alarm interface {
	StartAlarm(ctx context.Context)
	StopAlarm(ctx context.Context)
	VibratePulse(ctx context.Context)
}

// Options configure a Machine.
type Options struct {
	// Profile is the device identity. Required.
	Profile *alert.Profile
	// Remote writes the shared document. Required.
	Remote RemoteWriter
	// History records resolutions. Required.
	History HistoryAppender
	// Alarm plays the full alarm; nil disables output.
	Alarm Alarm
	// SilentMode makes incoming alerts enter AlertActiveSilent.
	SilentMode bool
	// StopGrace defaults to DefaultStopGrace.
	StopGrace time.Duration
	// VibrateInterval defaults to DefaultVibrateInterval.
	VibrateInterval time.Duration
	// OnChange receives a copy of the state after every change. It runs on
	// the machine goroutine and must not call back into the Machine.
	OnChange func(alert.LocalState)
	// Now defaults to time.Now.
	Now func() time.Time
}

var (
	// ErrStopped is returned by requests made after Run has returned.
	ErrStopped = errors.New("state machine is not running")

	errProfileRequired = errors.New("profile must be provided")
	errRemoteRequired  = errors.New("remote writer must be provided")
	errHistoryRequired = errors.New("history appender must be provided")
	errAlreadyRunning  = errors.New("state machine is already running")
)

// Machine is the per-device alert state machine. All state lives on the
// goroutine running Run; the exported methods are requests to it, so raise,
// stop and reconcile are applied strictly one at a time.
type Machine struct {
	profile      *alert.Profile
	remote       RemoteWriter
	history      HistoryAppender
	alarm        Alarm
	grace        time.Duration
	vibrateEvery time.Duration
	onChange     func(alert.LocalState)
	now          func() time.Time

	events  chan event
	done    chan struct{}
	running atomic.Bool

	// Owned by the Run goroutine.
	state        alert.LocalState
	silent       bool
	outputsOn    bool
	vibrate      *time.Ticker
	raiseReply   chan error
	pendingStop  *stopJob
	stopReply    chan error
	guardVersion uint64
}

// New validates opts and returns a Machine in PhaseInitializing.
func New(opts *Options) (*Machine, error) {
	if opts == nil || opts.Profile == nil {
		return nil, errProfileRequired
	}

	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}

	if opts.Remote == nil {
		return nil, errRemoteRequired
	}

	if opts.History == nil {
		return nil, errHistoryRequired
	}

	m := &Machine{
		profile:      opts.Profile.Clone(),
		remote:       opts.Remote,
		history:      opts.History,
		alarm:        opts.Alarm,
		grace:        opts.StopGrace,
		vibrateEvery: opts.VibrateInterval,
		onChange:     opts.OnChange,
		now:          opts.Now,
		events:       make(chan event),
		done:         make(chan struct{}),
		silent:       opts.SilentMode,
		state: alert.LocalState{
			Phase: alert.PhaseInitializing,
		},
	}

	if m.alarm == nil {
		m.alarm = noopAlarm{}
	}

	if m.grace <= 0 {
		m.grace = DefaultStopGrace
	}

	if m.vibrateEvery <= 0 {
		m.vibrateEvery = DefaultVibrateInterval
	}

	if m.now == nil {
		m.now = time.Now
	}

	return m, nil
}

// Profile returns the device profile.
func (m *Machine) Profile() *alert.Profile {
	return m.profile.Clone()
}

// Run processes requests until ctx is done. It may be called once.
func (m *Machine) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	ctx = logger.WithName(ctx, "coordinator")
	defer close(m.done)

	logger.InfoKV(ctx, "State machine started", "profile", m.profile.String())
	m.publish()

	for {
		var vibrate <-chan time.Time
		if m.vibrate != nil {
			vibrate = m.vibrate.C
		}

		select {
		case <-ctx.Done():
			m.stopOutputs(ctx)
			logger.Info(ctx, "State machine stopped")

			return nil
		case ev := <-m.events:
			m.handle(ctx, ev)
		case <-vibrate:
			m.alarm.VibratePulse(ctx)
		}
	}
}

// Raise publishes an alert under the device profile. It returns after the
// remote write completes. Only a sender-capable device in ConnectedIdle may
// raise; otherwise alert.ErrInvalidTransition is returned and nothing is written.
func (m *Machine) Raise(ctx context.Context) error {
	return m.request(ctx, func(reply chan error) event {
		return raiseRequest{reply: reply}
	})
}

// Stop resolves the alert in flight: confirm for a receiver, cancel for the
// sender. It returns once the device is back in ConnectedIdle; a non-nil
// error then only reports failed remote writes. A Stop while another stop
// is still guarded is a no-op.
func (m *Machine) Stop(ctx context.Context) error {
	return m.request(ctx, func(reply chan error) event {
		return stopRequest{reply: reply}
	})
}

// Mute silences a full alarm locally until the alert ends.
func (m *Machine) Mute(ctx context.Context) error {
	return m.request(ctx, func(reply chan error) event {
		return muteRequest{reply: reply}
	})
}

// SetSilentMode changes how the next incoming alert is presented.
func (m *Machine) SetSilentMode(ctx context.Context, enabled bool) error {
	return m.request(ctx, func(reply chan error) event {
		return silentRequest{enabled: enabled, reply: reply}
	})
}

// Reconcile applies a freshly polled remote state.
func (m *Machine) Reconcile(ctx context.Context, remote *alert.RemoteState) error {
	return m.send(ctx, reconcileEvent{remote: remote.Clone()})
}

// ConnectionChanged updates the connection overlay.
func (m *Machine) ConnectionChanged(ctx context.Context, status alert.ConnectionStatus) error {
	return m.send(ctx, connectionEvent{status: status})
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot(ctx context.Context) (alert.LocalState, error) {
	reply := make(chan alert.LocalState, 1)

	if err := m.send(ctx, snapshotRequest{reply: reply}); err != nil {
		return alert.LocalState{}, err
	}

	select {
	case state := <-reply:
		return state, nil
	case <-ctx.Done():
		return alert.LocalState{}, ctx.Err()
	case <-m.done:
		return alert.LocalState{}, ErrStopped
	}
}

func (m *Machine) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case raiseRequest:
		m.handleRaise(ctx, ev)
	case raiseResult:
		m.handleRaiseResult(ctx, ev)
	case stopRequest:
		m.handleStop(ctx, ev)
	case stopResult:
		m.handleStopResult(ctx, ev)
	case muteRequest:
		ev.reply <- m.handleMute(ctx)
	case silentRequest:
		m.silent = ev.enabled
		ev.reply <- nil
	case reconcileEvent:
		m.handleReconcile(ctx, ev.remote)
	case connectionEvent:
		m.handleConnection(ctx, ev.status)
	case guardRelease:
		if ev.version == m.guardVersion && m.state.SuppressReconcile {
			m.state.SuppressReconcile = false
			logger.Debug(ctx, "Stop guard released")
			m.publish()
		}
	case snapshotRequest:
		ev.reply <- m.state
	}
}

func (m *Machine) handleRaise(ctx context.Context, ev raiseRequest) {
	if !m.profile.CanRaise() {
		logger.WarnKV(ctx, "Raise rejected", "profile", m.profile.String())
		ev.reply <- fmt.Errorf("raise as %s: %w", m.profile.Role, alert.ErrInvalidTransition)

		return
	}

	if m.state.Phase != alert.PhaseConnectedIdle {
		logger.WarnKV(ctx, "Raise rejected", "phase", m.state.Phase.String())
		ev.reply <- fmt.Errorf("raise from %s: %w", m.state.Phase, alert.ErrInvalidTransition)

		return
	}

	m.state.IsSender = true
	m.state.CurrentRaiser = m.profile.Name
	m.setPhase(ctx, alert.PhaseAlertPendingConfirm)

	m.raiseReply = ev.reply
	raised := alert.Raised(m.profile.Name)

	go func() {
		err := m.remote.Write(ctx, raised)
		m.post(raiseResult{err: err})
	}()
}

func (m *Machine) handleRaiseResult(ctx context.Context, ev raiseResult) {
	reply := m.raiseReply
	m.raiseReply = nil

	if ev.err != nil {
		logger.ErrorKV(ctx, "Failed to publish alert", "error", ev.err)

		// A stop issued meanwhile owns the outcome.
		if m.state.Phase == alert.PhaseAlertPendingConfirm && !m.state.SuppressReconcile {
			m.clearAlert()
			m.setPhase(ctx, alert.PhaseConnectedIdle)
		}
	} else {
		logger.InfoKV(ctx, "Alert published", "raised_by", m.profile.Name)
	}

	if reply != nil {
		reply <- ev.err
	}

	if job := m.pendingStop; job != nil {
		m.pendingStop = nil
		m.launchStop(ctx, job)
	}
}

func (m *Machine) handleStop(ctx context.Context, ev stopRequest) {
	if m.stopReply != nil || (m.state.SuppressReconcile && !m.state.Phase.IsAlert()) {
		logger.Debug(ctx, "Stop ignored, the alert is already being resolved")
		ev.reply <- nil

		return
	}

	if !m.state.Phase.IsAlert() {
		logger.WarnKV(ctx, "Stop rejected", "phase", m.state.Phase.String())
		ev.reply <- fmt.Errorf("stop from %s: %w", m.state.Phase, alert.ErrInvalidTransition)

		return
	}

	// The guard goes up before anything else so no reconcile can re-enter the alert.
	m.state.SuppressReconcile = true
	m.guardVersion++

	job := &stopJob{
		entry: alert.HistoryEntry{
			RaisedBy:   m.state.CurrentRaiser,
			ResolvedBy: m.profile.Name,
			Kind:       alert.ResolutionFor(m.state.IsSender),
		},
	}

	m.stopOutputs(ctx)
	m.setPhase(ctx, alert.PhaseResolving)
	m.stopReply = ev.reply

	// Keep this device's writes ordered behind an in-flight raise.
	if m.raiseReply != nil {
		m.pendingStop = job

		return
	}

	m.launchStop(ctx, job)
}

func (m *Machine) launchStop(ctx context.Context, job *stopJob) {
	go func() {
		writeErr := m.remote.Write(ctx, alert.Inactive())

		entry := job.entry
		entry.Timestamp = m.now()

		historyErr := m.history.Append(ctx, &entry)

		m.post(stopResult{
			entry:      entry,
			writeErr:   writeErr,
			historyErr: historyErr,
		})
	}()
}

func (m *Machine) handleStopResult(ctx context.Context, ev stopResult) {
	if ev.writeErr != nil {
		logger.ErrorKV(ctx, "Failed to clear alert document", "error", ev.writeErr)
	}

	if ev.historyErr != nil {
		logger.ErrorKV(ctx, "Failed to record history", "error", ev.historyErr)
	}

	logger.InfoKV(ctx, "Alert resolved",
		"raised_by", ev.entry.RaisedBy,
		"resolved_by", ev.entry.ResolvedBy,
		"kind", ev.entry.Kind.String(),
	)

	m.clearAlert()
	m.setPhase(ctx, alert.PhaseConnectedIdle)

	version := m.guardVersion

	time.AfterFunc(m.grace, func() {
		m.post(guardRelease{version: version})
	})

	if reply := m.stopReply; reply != nil {
		m.stopReply = nil
		reply <- errors.Join(ev.writeErr, ev.historyErr)
	}
}

func (m *Machine) handleMute(ctx context.Context) error {
	if m.state.Phase != alert.PhaseAlertActive {
		return fmt.Errorf("mute from %s: %w", m.state.Phase, alert.ErrInvalidTransition)
	}

	if m.state.IsMuted {
		return nil
	}

	m.state.IsMuted = true
	m.stopOutputs(ctx)
	logger.Info(ctx, "Alarm muted")
	m.publish()

	return nil
}

func (m *Machine) handleReconcile(ctx context.Context, remote *alert.RemoteState) {
	if m.state.SuppressReconcile {
		logger.DebugKV(ctx, "Reconcile suppressed", "active", remote.Active)

		return
	}

	phase := m.state.Phase

	switch {
	case remote.Active && (phase == alert.PhaseConnectedIdle || phase == alert.PhaseInitializing):
		m.enterAlert(ctx, remote.Raiser())
	case !remote.Active && phase.IsAlert():
		if m.raiseReply != nil {
			logger.Debug(ctx, "Inactive read ignored while the raise is being written")

			return
		}

		logger.InfoKV(ctx, "Alert resolved remotely", "raised_by", m.state.CurrentRaiser)
		m.stopOutputs(ctx)
		m.setPhase(ctx, alert.PhaseResolving)
		m.clearAlert()
		m.setPhase(ctx, alert.PhaseConnectedIdle)
	case !remote.Active && phase == alert.PhaseInitializing:
		m.setPhase(ctx, alert.PhaseConnectedIdle)
	}
}

func (m *Machine) enterAlert(ctx context.Context, raiser string) {
	m.state.CurrentRaiser = raiser

	if raiser == m.profile.Name && (m.state.IsSender || m.profile.CanRaise()) {
		m.state.IsSender = true
		m.setPhase(ctx, alert.PhaseAlertPendingConfirm)

		return
	}

	m.state.IsSender = false

	if m.silent {
		logger.InfoKV(ctx, "Alert received in silent mode", "raised_by", raiser)
		m.setPhase(ctx, alert.PhaseAlertActiveSilent)

		return
	}

	logger.InfoKV(ctx, "Alert received", "raised_by", raiser)
	m.setPhase(ctx, alert.PhaseAlertActive)
	m.startOutputs(ctx)
}

func (m *Machine) handleConnection(ctx context.Context, status alert.ConnectionStatus) {
	if m.state.Connection == status {
		return
	}

	if status.State == alert.ConnectivityDisconnected {
		logger.WarnKV(ctx, "Connection lost", "reason", status.Reason, "failures", status.ConsecutiveFailures)
	} else {
		logger.Info(ctx, "Connected")
	}

	m.state.Connection = status
	m.publish()
}

func (m *Machine) startOutputs(ctx context.Context) {
	if m.outputsOn || m.state.IsMuted {
		return
	}

	m.outputsOn = true
	m.alarm.StartAlarm(ctx)
	m.alarm.VibratePulse(ctx)
	m.vibrate = time.NewTicker(m.vibrateEvery)
}

func (m *Machine) stopOutputs(ctx context.Context) {
	if !m.outputsOn {
		return
	}

	m.outputsOn = false

	if m.vibrate != nil {
		m.vibrate.Stop()
		m.vibrate = nil
	}

	m.alarm.StopAlarm(ctx)
}

// clearAlert forgets the alert in flight.
func (m *Machine) clearAlert() {
	m.state.IsSender = false
	m.state.CurrentRaiser = ""
	m.state.IsMuted = false
}

func (m *Machine) setPhase(ctx context.Context, phase alert.Phase) {
	if m.state.Phase == phase {
		return
	}

	logger.DebugKV(ctx, "Phase changed", "from", m.state.Phase.String(), "to", phase.String())
	m.state.Phase = phase
	m.publish()
}

func (m *Machine) publish() {
	if m.onChange != nil {
		m.onChange(m.state)
	}
}

// request sends a request carrying a reply channel and waits for the answer.
func (m *Machine) request(ctx context.Context, build func(reply chan error) event) error {
	reply := make(chan error, 1)

	if err := m.send(ctx, build(reply)); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// send hands ev to the Run goroutine.
func (m *Machine) send(ctx context.Context, ev event) error {
	select {
	case m.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// post delivers a worker result; it gives up once Run has returned.
func (m *Machine) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

type noopAlarm struct{}

func (noopAlarm) StartAlarm(context.Context)   {}
func (noopAlarm) StopAlarm(context.Context)    {}
func (noopAlarm) VibratePulse(context.Context) {}
