package watcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/oshokin/alert-relay/internal/logger"
)

const (
	alertTitle  = "!!! ALERT !!!"
	silentTitle = "Alert (silent mode)"
	clearTitle  = "Alert ended"
	appName     = "alert-relay"
)

// ErrUnsupportedOS indicates the current OS has no notifier command.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// DesktopNotifier shows notifications with the desktop's own tools:
//   - Linux:   notify-send
//   - macOS:   osascript "display notification"
//   - Windows: a PowerShell tray balloon
//
// Desktop notifications cannot be withdrawn portably, so Clear shows a
// short low-priority "Alert ended" notice instead.
type DesktopNotifier struct {
	command func(ctx context.Context, title, body string, urgent bool) (*exec.Cmd, error)
}

// NewDesktopNotifier returns a notifier for the current OS.
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{
		command: notifyCommand,
	}
}

// ShowAlert shows the full alert notification.
func (n *DesktopNotifier) ShowAlert(ctx context.Context, raiser string) error {
	return n.show(ctx, alertTitle, "Alert from "+raiser, true)
}

// ShowSilent shows the quiet notification used in silent mode.
func (n *DesktopNotifier) ShowSilent(ctx context.Context, raiser string) error {
	return n.show(ctx, silentTitle, "Alert from "+raiser, false)
}

// Clear announces that the alert ended.
func (n *DesktopNotifier) Clear(ctx context.Context) error {
	return n.show(ctx, clearTitle, "The alert was resolved.", false)
}

// show starts the notifier command without waiting for the user;
// the process is reaped in the background.
func (n *DesktopNotifier) show(ctx context.Context, title, body string, urgent bool) error {
	cmd, err := n.command(ctx, title, body, urgent)
	if err != nil {
		return err
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("start notifier: %w", err)
	}

	go func() {
		if waitErr := cmd.Wait(); waitErr != nil && ctx.Err() == nil {
			logger.DebugKV(ctx, "Notifier exited", "error", waitErr)
		}
	}()

	return nil
}

func notifyCommand(ctx context.Context, title, body string, urgent bool) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		urgency := "normal"
		if urgent {
			urgency = "critical"
		}

		return exec.CommandContext(ctx, "notify-send", "--app-name="+appName, "--urgency="+urgency, title, body), nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleScriptQuote(body), appleScriptQuote(title))
		if urgent {
			script += ` sound name "Sosumi"`
		}

		return exec.CommandContext(ctx, "osascript", "-e", script), nil
	case "windows":
		icon := "Info"
		if urgent {
			icon = "Warning"
		}

		script := "Add-Type -AssemblyName System.Windows.Forms; " +
			"$n = New-Object System.Windows.Forms.NotifyIcon; " +
			"$n.Icon = [System.Drawing.SystemIcons]::" + icon + "; " +
			"$n.Visible = $true; " +
			"$n.ShowBalloonTip(10000, " + powerShellQuote(title) + ", " + powerShellQuote(body) + ", '" + icon + "'); " +
			"Start-Sleep -Seconds 10; $n.Dispose()"

		return exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s: %w", runtime.GOOS, ErrUnsupportedOS)
	}
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func powerShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
