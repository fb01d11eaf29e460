package hyperspace

import (
	"context"
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"
)

const quarantineAttr = "com.apple.quarantine"

// RetryDecider is asked, after the patch tool failed, whether the user has
// allowed it and wants another attempt. attempt counts from 1.
type RetryDecider func(ctx context.Context, attempt int, cause error) bool

// stripQuarantine removes the download quarantine marker from path. It is
// best effort: a marker that cannot be removed shows up later as a Gatekeeper
// prompt.
func stripQuarantine(runner Runner, path string) {
	err := runner.Run(exec.Command("xattr", "-d", quarantineAttr, path))
	if err == nil {
		return
	}
	debugf("=> xattr -d %s %s: %v\n", quarantineAttr, path, err)
	if err := unix.Removexattr(path, quarantineAttr); err != nil {
		debugf("=> removexattr %s: %v\n", path, err)
	}
}

// Gatekeeper runs the patch tool, asking the user to allow it whenever it fails.
type Gatekeeper struct {
	Runner Runner
	Ask    RetryDecider
	Logf   func(format string, a ...any)
}

// InvokePatchTool runs toolPath with args until it succeeds or the user
// declines another attempt. Every failure is treated as a Gatekeeper block:
// a crash or bad arguments look the same as a code-signing rejection from
// here. There is no attempt limit; the user ends the loop.
func (g *Gatekeeper) InvokePatchTool(ctx context.Context, toolPath string, args []string) error {
	for attempt := 1; ; attempt++ {
		g.logf("  Command: %s", commandLine(toolPath, args...))

		err := g.Runner.Run(exec.Command(toolPath, args...))
		if err == nil {
			return nil
		}
		g.logf("  ftlman did not run (attempt %d): %v", attempt, err)

		if g.Ask == nil || !g.Ask(ctx, attempt, err) {
			return fmt.Errorf("%w: %v", ErrGatekeeperBlocked, err)
		}
		g.logf("  Retrying after user approval")
		stripQuarantine(g.Runner, toolPath)
	}
}

func (g *Gatekeeper) logf(format string, a ...any) {
	if g.Logf != nil {
		g.Logf(format, a...)
	}
}
