package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// DesktopNotifier posts native desktop notifications by shelling out
// to the platform notification tool. Unsupported platforms return an
// error, which the dispatcher swallows like any other delivery failure.
type DesktopNotifier struct {
	goos string
}

// NewDesktopNotifier creates a notifier for the current platform
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{goos: runtime.GOOS}
}

// Notify posts one notification. Timeouts are the caller's concern via ctx.
func (n *DesktopNotifier) Notify(ctx context.Context, title, body string) error {
	var cmd *exec.Cmd
	switch n.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	case "linux":
		cmd = exec.CommandContext(ctx, "notify-send", title, body)
	default:
		return fmt.Errorf("desktop notifications not supported on %s", n.goos)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notification command failed: %w (%s)", err, out)
	}
	return nil
}
