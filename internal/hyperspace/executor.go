package hyperspace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Runner executes external commands. Executor is the real implementation;
// tests substitute a recorder.
type Runner interface {
	Run(cmd *exec.Cmd) error
}

// Executor runs external tools (plutil, xattr, codesign, ftlman) with their
// output captured so failures carry the tool's own message.
type Executor struct {
	Context     context.Context // The context to use for cancellation
	Interactive bool            // Interactive leaves the child in our process group and attached to the TTY
	Output      io.Writer       // Output, when set, also receives everything the command prints
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// Run executes cmd and waits for it. Unless the caller wired its own
// stdout/stderr, combined output is buffered and appended to the returned error.
func (e *Executor) Run(cmd *exec.Cmd) error {
	if cmd.Err != nil {
		return fmt.Errorf("%s: %w", cmd.Args[0], cmd.Err)
	}
	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// --- Phase 1: build the final command ---
	finalCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}

	// --- Phase 2: wire up stdio ---
	var captured bytes.Buffer
	sink := io.Writer(&captured)
	if e.Output != nil {
		sink = io.MultiWriter(&captured, e.Output)
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr
	if finalCmd.Stdout == nil {
		finalCmd.Stdout = sink
	}
	if finalCmd.Stderr == nil {
		finalCmd.Stderr = sink
	}

	// --- Phase 3: isolate process group for context-based cleanup ---
	if !e.Interactive {
		finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	// --- Phase 4: start and watch for cancel ---
	debugf("=> exec: %s\n", strings.Join(cmd.Args, " "))
	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Args[0], err)
	}

	if !e.Interactive {
		pgid := finalCmd.Process.Pid
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				syscall.Kill(-pgid, syscall.SIGKILL)
			case <-done:
			}
		}()
	}

	// --- Phase 5: wait and return ---
	if waitErr := finalCmd.Wait(); waitErr != nil {
		if ctx.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", ctx.Err())
		}
		if msg := strings.TrimSpace(captured.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", cmd.Args[0], waitErr, msg)
		}
		return fmt.Errorf("%s: %w", cmd.Args[0], waitErr)
	}
	return nil
}

// commandLine renders a command the way a user would type it, for the transcript.
func commandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{name}, args...) {
		if strings.ContainsAny(a, " '\"") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
