package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/alert-relay/internal/logger"
)

// BellInterval is the ring cadence when no sound file can be played.
const BellInterval = time.Second

// bell is the terminal bell control character.
const bell = "\a"

var (
	// ErrUnsupportedOS indicates the current OS has no known sound player.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// errNoPlayer is returned when no Linux sound player is installed.
	errNoPlayer = errors.New("no sound player found")
)

// Player loops the alarm sound until stopped and rings the terminal bell for
// haptic pulses. It falls back to the bell when the sound cannot be played.
type Player struct {
	// sound is the audio file to loop; empty means bell only.
	sound string
	// out receives bell characters.
	out io.Writer
	// command builds the OS command that plays the sound once.
	command func(ctx context.Context, sound string) (*exec.Cmd, error)

	mu      sync.Mutex
	writeMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a Player for sound writing bells to out (stdout when nil).
func New(sound string, out io.Writer) *Player {
	if out == nil {
		out = os.Stdout
	}

	return &Player{
		sound:   strings.TrimSpace(sound),
		out:     out,
		command: soundCommand,
	}
}

// StartAlarm starts the alarm loop unless it is already running.
func (p *Player) StartAlarm(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.cancel, p.done = cancel, done

	go p.loop(loopCtx, done)
}

// StopAlarm stops the alarm loop and waits for the sound to end.
func (p *Player) StopAlarm(ctx context.Context) {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// VibratePulse emits one haptic pulse. Terminals have no vibrator, so it rings the bell.
func (p *Player) VibratePulse(ctx context.Context) {
	logger.Debug(ctx, "Vibration pulse")
	p.ring(ctx)
}

func (p *Player) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	useSound := p.sound != ""

	for {
		if useSound {
			err := p.play(ctx)
			if ctx.Err() != nil {
				return
			}

			if err == nil {
				continue
			}

			logger.WarnKV(ctx, "Alarm sound failed, falling back to the terminal bell",
				"sound", p.sound,
				"error", err,
			)

			useSound = false
		}

		p.ring(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(BellInterval):
		}
	}
}

func (p *Player) play(ctx context.Context) error {
	cmd, err := p.command(ctx, p.sound)
	if err != nil {
		return err
	}

	return cmd.Run()
}

func (p *Player) ring(ctx context.Context) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := io.WriteString(p.out, bell); err != nil {
		logger.DebugKV(ctx, "Failed to ring the bell", "error", err)
	}
}

// soundCommand returns a command that plays file once using built-in tools:
// - Linux:   paplay or aplay
// - macOS:   afplay
// - Windows: PowerShell Media.SoundPlayer.
func soundCommand(ctx context.Context, file string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "linux":
		for _, player := range []string{"paplay", "aplay"} {
			if path, err := exec.LookPath(player); err == nil {
				return exec.CommandContext(ctx, path, file), nil
			}
		}

		return nil, errNoPlayer
	case "darwin":
		return exec.CommandContext(ctx, "afplay", file), nil
	case "windows":
		script := fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", strings.ReplaceAll(file, "'", "''"))

		return exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s: %w", runtime.GOOS, ErrUnsupportedOS)
	}
}
