package hyperspace

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Operation selects which step sequence a run executes.
type Operation int

const (
	OpInstall Operation = iota
	OpUninstall
)

func (o Operation) String() string {
	switch o {
	case OpInstall:
		return "install"
	case OpUninstall:
		return "uninstall"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// State is where a run is in its lifecycle. Succeeded and Failed are terminal.
type State int

const (
	StateRunning State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the terminal result of a run. Err is set only when State is StateFailed.
type Outcome struct {
	State State
	Err   error
}

func (o Outcome) Succeeded() bool { return o.State == StateSucceeded }

// EventKind distinguishes the events a run emits.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
	EventDone
)

// Event is one update from a run to whoever presents it.
type Event struct {
	Kind     EventKind
	Line     LogLine // EventLog
	Step     int     // EventProgress: steps completed
	Total    int     // EventProgress: steps in the sequence
	Progress float64 // EventProgress: Step/Total
	Outcome  Outcome // EventDone
}

// Engine runs install and uninstall pipelines against one target at a time.
type Engine struct {
	Paths     Paths
	Resources Resources
	Runner    Runner
	Editor    ManifestEditor
	Ask       RetryDecider
	Backups   Backups
	FileLog   *FileLog
	Now       func() time.Time

	active atomic.Bool
}

// Run is the state of one pipeline execution. Its fields are written only by
// the goroutine executing it; read them after Wait returns.
type Run struct {
	ID     string
	Op     Operation
	Target Target

	progress float64
	log      []LogLine
	outcome  Outcome

	events   chan Event
	detached chan struct{}
	detach   sync.Once
	done     chan struct{}
	flog     *log.Entry
	now      func() time.Time
}

// Events yields progress, log and completion events. The channel is closed
// after the EventDone event.
func (r *Run) Events() <-chan Event { return r.events }

// Wait blocks until the run reaches a terminal state. Once Wait is called,
// events nobody reads are dropped instead of holding up the run.
func (r *Run) Wait() Outcome {
	r.detach.Do(func() { close(r.detached) })
	<-r.done
	return r.outcome
}

func (r *Run) Progress() float64 { return r.progress }

// Log returns the transcript. It is append-only while the run is active.
func (r *Run) Log() []LogLine {
	out := make([]LogLine, len(r.log))
	copy(out, r.log)
	return out
}

func (r *Run) Outcome() Outcome { return r.outcome }

func (r *Run) emit(ev Event) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- ev:
		return
	default:
	}
	select {
	case r.events <- ev:
	case <-r.detached:
	}
}

func (r *Run) logf(format string, a ...any) {
	line := LogLine{Time: r.now(), Message: fmt.Sprintf(format, a...)}
	r.log = append(r.log, line)
	if r.flog != nil {
		r.flog.Info(line.Message)
	}
	r.emit(Event{Kind: EventLog, Line: line})
}

func (r *Run) setProgress(step, total int) {
	r.progress = float64(step) / float64(total)
	r.emit(Event{Kind: EventProgress, Step: step, Total: total, Progress: r.progress})
}

// Start runs op against t on a new goroutine. Consume Events until it is
// closed, or call Wait. A reader that falls behind the buffer holds up the
// run until it catches up or calls Wait.
func (e *Engine) Start(ctx context.Context, op Operation, t Target) (*Run, error) {
	if !e.active.CompareAndSwap(false, true) {
		return nil, ErrRunActive
	}
	r := e.newRun(op, t, make(chan Event, 64))
	go func() {
		defer close(r.done)
		defer e.active.Store(false)
		e.execute(ctx, r)
		close(r.events)
	}()
	return r, nil
}

// Execute runs op against t on the calling goroutine and returns the finished run.
func (e *Engine) Execute(ctx context.Context, op Operation, t Target) (*Run, error) {
	if !e.active.CompareAndSwap(false, true) {
		return nil, ErrRunActive
	}
	defer e.active.Store(false)
	r := e.newRun(op, t, nil)
	e.execute(ctx, r)
	close(r.done)
	return r, nil
}

func (e *Engine) newRun(op Operation, t Target, events chan Event) *Run {
	now := e.Now
	if now == nil {
		now = time.Now
	}
	r := &Run{
		ID:       uuid.NewString(),
		Op:       op,
		Target:   t,
		events:   events,
		detached: make(chan struct{}),
		done:     make(chan struct{}),
		now:      now,
	}
	if e.FileLog != nil {
		if err := e.FileLog.StartRun(); err != nil {
			r.logf("Warning: Could not rotate log file: %v", err)
		}
		r.flog = e.FileLog.Entry(r.ID, op)
	}
	return r
}

type step struct {
	title string
	run   func(ctx context.Context) error
}

func (e *Engine) execute(ctx context.Context, r *Run) {
	lib := &stepLibrary{
		paths:     e.Paths,
		resources: e.Resources,
		runner:    e.Runner,
		editor:    e.Editor,
		backups:   e.Backups,
		target:    r.Target,
		logf:      r.logf,
	}
	lib.gatekeeper = &Gatekeeper{Runner: e.Runner, Ask: e.Ask, Logf: r.logf}

	var steps []step
	switch r.Op {
	case OpInstall:
		steps = lib.installSteps()
		r.logf("=== Hyperspace Installation Started ===")
		r.logf("FTL Destination: %s", r.Target.Channel())
		r.logf("FTL Location: %s", r.Target.Path())
		r.logf("FTL Version: %s", r.Target.Version())
		r.logf("Using dylib version: %s", r.Target.LibraryVersion())
		r.logf("")
	case OpUninstall:
		steps = lib.uninstallSteps()
		r.logf("=== Hyperspace Uninstallation Started ===")
		r.logf("FTL Location: %s", r.Target.Path())
		r.logf("")
	default:
		e.finish(r, fmt.Errorf("unknown operation %v", r.Op))
		return
	}

	total := len(steps)
	for i, s := range steps {
		r.logf("• %s...", s.title)
		if err := s.run(ctx); err != nil {
			e.finish(r, err)
			return
		}
		r.logf("  ✓ Done")
		r.setProgress(i+1, total)
	}

	r.logf("")
	if r.Op == OpInstall {
		r.logf("=== Installation Complete ===")
	} else {
		r.logf("=== Uninstallation Complete ===")
	}
	e.finish(r, nil)
}

// finish records the terminal state. A failed install is rolled back as far
// as the manifest goes; a rollback error is logged but the step error stays
// the outcome.
func (e *Engine) finish(r *Run, err error) {
	if err == nil {
		r.outcome = Outcome{State: StateSucceeded}
		r.emit(Event{Kind: EventDone, Outcome: r.outcome})
		return
	}

	r.logf("ERROR: %v", err)
	if r.flog != nil {
		r.flog.WithError(err).Error("run failed")
	}
	if r.Op == OpInstall {
		r.logf("Attempting to rollback changes...")
		if rbErr := e.Backups.Rollback(r.Target); rbErr != nil {
			r.logf("Rollback failed: %v", rbErr)
		} else {
			r.logf("Rollback complete")
		}
	}

	verb := "Installation"
	if r.Op == OpUninstall {
		verb = "Uninstallation"
	}
	r.outcome = Outcome{State: StateFailed, Err: fmt.Errorf("%s failed: %w", verb, err)}
	r.emit(Event{Kind: EventDone, Outcome: r.outcome})
}
