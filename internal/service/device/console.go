package device

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
)

const helpText = `Commands:
  raise        send an alert (sender profile only)
  stop         confirm or cancel the current alert
  mute         silence the alarm on this device
  silent on    keep incoming alerts quiet
  silent off   play the full alarm for incoming alerts
  history      show recent resolutions
  status       show the current state
  help         show this text
  quit         exit
`

// readLines delivers trimmed lines from in until end of input or until done
// is closed. A read already blocked on in is left behind.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	return lines
}

// Execute runs one console command and reports whether the console should exit.
func (d *Device) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "raise", "alert":
		d.report(ctx, "raise", d.machine.Raise(ctx))
	case "stop", "confirm", "cancel":
		d.report(ctx, "stop", d.machine.Stop(ctx))
	case "mute":
		d.report(ctx, "mute", d.machine.Mute(ctx))
	case "silent":
		d.silent(ctx, fields[1:])
	case "history":
		d.history(ctx)
	case "status":
		d.status(ctx)
	case "help", "?":
		d.printf("%s", helpText)
	case "quit", "exit":
		return true
	default:
		d.printf("Unknown command %q. Type \"help\" for commands.\n", fields[0])
	}

	return false
}

func (d *Device) silent(ctx context.Context, args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		d.printf("Usage: silent on|off\n")

		return
	}

	enabled := args[0] == "on"

	if err := d.settings.SetSilentMode(ctx, enabled); err != nil {
		d.report(ctx, "silent", err)

		return
	}

	if err := d.machine.SetSilentMode(ctx, enabled); err != nil {
		d.report(ctx, "silent", err)

		return
	}

	d.printf("Silent mode %s. It applies to the next alert.\n", args[0])
}

// history shows recent resolutions with polling paused.
func (d *Device) history(ctx context.Context) {
	if err := d.poller.Pause(ctx); err != nil {
		d.report(ctx, "history", err)

		return
	}

	defer func() {
		if err := d.poller.Resume(ctx); err != nil && ctx.Err() == nil {
			logger.WarnKV(ctx, "Unable to resume polling", "error", err)
		}
	}()

	entries, err := d.recorder.Recent(ctx, d.limit)
	if err != nil {
		d.report(ctx, "history", err)

		return
	}

	d.printf("%s", formatHistory(entries))
}

func (d *Device) status(ctx context.Context) {
	state, err := d.machine.Snapshot(ctx)
	if err != nil {
		d.report(ctx, "status", err)

		return
	}

	d.printf("Profile: %s\nState: %s\nConnection: %s\n",
		d.machine.Profile(), describe(state), state.Connection)
}

// report prints the outcome of a failed command.
func (d *Device) report(ctx context.Context, command string, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, alert.ErrInvalidTransition):
		d.printf("Cannot %s now.\n", command)
	default:
		logger.WarnKV(ctx, "Command failed", "command", command, "error", err)
		d.printf("Unable to %s: %v\n", command, err)
	}
}

// formatHistory renders entries one per line, newest first.
func formatHistory(entries []*alert.HistoryEntry) string {
	if len(entries) == 0 {
		return "No alerts recorded yet.\n"
	}

	var b strings.Builder

	for _, entry := range entries {
		b.WriteString(entry.Describe())
		b.WriteByte('\n')
	}

	return b.String()
}
