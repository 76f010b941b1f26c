// Package executor runs one build-tool invocation end to end: it spawns
// the process, decodes its output stream, routes records to the progress
// tracker, the diagnostics sink, and the log channel, and maps the exit
// code to an outcome.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Garcia6l20/amake-go/internal/console"
	"github.com/Garcia6l20/amake-go/internal/diag"
	"github.com/Garcia6l20/amake-go/internal/progress"
	"github.com/Garcia6l20/amake-go/internal/protocol"
	"github.com/Garcia6l20/amake-go/internal/stream"
)

// OverallID is the fixed well-known emitter id of the whole-command
// indicator. It is created by the executor itself, before the tool reports
// anything, so the UI always has at least one progress surface.
const OverallID = "amake"

// killGraceTimeout is how long a cancelled process gets to exit after the
// interrupt before it is killed.
const killGraceTimeout = 5 * time.Second

// lineBuffer is the capacity of the queue between the stream pumps and the
// single routing loop.
const lineBuffer = 128

// Options configures one invocation.
type Options struct {
	// Label names the invocation in logs and on the overall indicator.
	// Defaults to the base name of the command.
	Label string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env is merged over the inherited environment; the overlay wins on
	// key collision.
	Env map[string]string
	// Cancellable propagates ctx cancellation to the child process.
	Cancellable bool
	// Diagnostics receives embedded diagnostics batches. May be nil.
	Diagnostics *diag.Sink
}

// Result is the terminal outcome of an invocation.
type Result struct {
	Label     string
	ExitCode  int
	Duration  time.Duration
	Cancelled bool
}

// Executor orchestrates invocations. The log channel is shared across
// invocations; everything else is per-run. Invocations are expected to be
// sequential: overlapping Run calls interleave on the shared channel.
type Executor struct {
	log      *console.Channel
	surfaces progress.Factory
}

// New returns an executor logging to log and rendering progress through
// surfaces.
func New(log *console.Channel, surfaces progress.Factory) *Executor {
	return &Executor{log: log, surfaces: surfaces}
}

// Run executes one command and blocks until it exits and every progress
// indicator is disposed. A non-zero exit code is returned as an error;
// parse-level anomalies in the output never are.
func (e *Executor) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	label := opts.Label
	if label == "" {
		label = filepath.Base(name)
	}
	res := Result{Label: label}

	e.log.Clear()
	if opts.Diagnostics != nil {
		opts.Diagnostics.ClearAll()
	}

	e.log.Info("Running %s", label)
	e.log.Trace("command: %s %s", name, strings.Join(args, " "))

	tracker := progress.NewTracker(e.surfaces)
	defer tracker.DisposeAll()

	// The invocation always owns an overall indicator, in addition to
	// whatever dynamic ids the tool reports.
	tracker.Report(OverallID, -1, label)

	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Dir
	cmd.Env = mergeEnv(os.Environ(), opts.Env)
	// Own process group, so cancellation signals reach the tool's whole
	// tree; compilers it spawns inherit our pipe write ends and would
	// otherwise keep the stream open after the tool itself dies.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return res, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return res, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("failed to start %s: %w", label, err)
	}

	// Both pipes feed one queue; a single loop below consumes it, so all
	// indicator and diagnostics state is mutated from one goroutine only.
	lines := make(chan stream.Line, lineBuffer)

	var pumps errgroup.Group
	pumps.Go(func() error { return pump(stdout, stream.Stdout, lines) })
	pumps.Go(func() error { return pump(stderr, stream.Stderr, lines) })
	go func() {
		_ = pumps.Wait()
		close(lines)
	}()

	canceller := newCanceller(cmd, tracker, e.log, stdout, stderr)
	if opts.Cancellable {
		stopWatch := canceller.watch(ctx)
		defer stopWatch()
	}

	for line := range lines {
		e.route(line, tracker, opts.Diagnostics)
	}

	waitErr := cmd.Wait()
	canceller.stop()
	res.Duration = time.Since(start)
	res.Cancelled = canceller.triggered()

	code, fatal := exitCode(waitErr)
	if fatal != nil {
		return res, fmt.Errorf("waiting for %s: %w", label, fatal)
	}
	if code < 0 {
		// The process died without delivering an exit code. If it was on
		// our request, count it as failure; otherwise assume it finished.
		if res.Cancelled {
			code = -1
		} else {
			code = 0
		}
	}
	res.ExitCode = code

	tracker.DisposeAll()

	if code != 0 {
		e.log.Error("%s failed with exit code %d", label, code)
		return res, fmt.Errorf("%s failed with exit code %d, check the log output for details", label, code)
	}

	e.log.Info("%s succeeded in %s", label, res.Duration.Round(time.Millisecond))
	return res, nil
}

// route classifies one line and applies exactly one routing decision.
func (e *Executor) route(line stream.Line, tracker *progress.Tracker, sink *diag.Sink) {
	rec := protocol.Parse(line.Text)

	switch rec.Kind {
	case protocol.KindLog:
		e.emitRecord(rec)

	case protocol.KindProgress:
		if rec.Progress.Done {
			tracker.Report(rec.Emitter, 100, rec.Progress.Label)
			return
		}
		tracker.Report(rec.Emitter, rec.Progress.Percent(), rec.Progress.Label)

	case protocol.KindDiagnostics:
		if sink == nil {
			e.log.Debug("diagnostics batch ignored, no collection attached")
			return
		}
		sink.Apply(rec.Diagnostics)

	case protocol.KindPassthrough:
		e.log.AppendLine(rec.Text)

	case protocol.KindDrop:
		e.log.Debug("dropped %s line: %s", line.Origin, rec.Text)
	}
}

func (e *Executor) emitRecord(rec protocol.Record) {
	switch rec.Severity {
	case protocol.SeverityDebug:
		e.log.Record(console.LevelDebug, "DEBUG", rec.Emitter, rec.Message)
	case protocol.SeverityWarning:
		e.log.Record(console.LevelWarn, "WARNING", rec.Emitter, rec.Message)
	case protocol.SeverityError:
		e.log.Record(console.LevelError, "ERROR", rec.Emitter, rec.Message)
	case protocol.SeverityCritical:
		e.log.Record(console.LevelError, "CRITICAL", rec.Emitter, rec.Message)
	case protocol.SeverityStatus:
		// Reserved level; consumed without effect.
	default:
		e.log.Record(console.LevelInfo, "INFO", rec.Emitter, rec.Message)
	}
}

// pump copies one pipe into a line splitter feeding the queue.
func pump(r io.Reader, origin stream.Origin, lines chan<- stream.Line) error {
	splitter := stream.NewSplitter(origin, func(l stream.Line) {
		lines <- l
	})
	_, err := io.Copy(splitter, r)
	splitter.Flush()
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// exitCode maps a Wait error to an exit code. A negative code means the
// process was signaled and delivered no code. A non-nil second return is
// an I/O-level failure unrelated to the process outcome.
func exitCode(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(waitErr, &ee) {
		return ee.ExitCode(), nil
	}
	return 0, waitErr
}

// mergeEnv merges an overlay over the inherited environment. Overlay keys
// win.
func mergeEnv(inherited []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return inherited
	}

	merged := make([]string, 0, len(inherited)+len(overlay))
	for _, kv := range inherited {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overlay[key]; ok {
			continue
		}
		merged = append(merged, kv)
	}
	for key, value := range overlay {
		merged = append(merged, key+"="+value)
	}
	return merged
}

// canceller propagates one cancellation trigger to the child's process
// group: an interrupt first, then a kill if the grace timeout expires.
// The kill path also closes the output pipes, so the routing loop ends
// even if a descendant escaped the group and still holds the write ends.
type canceller struct {
	cmd     *exec.Cmd
	tracker *progress.Tracker
	log     *console.Channel
	pipes   []io.Closer

	mu        sync.Mutex
	fired     bool
	killTimer *time.Timer
	done      chan struct{}
}

func newCanceller(cmd *exec.Cmd, tracker *progress.Tracker, log *console.Channel, pipes ...io.Closer) *canceller {
	return &canceller{cmd: cmd, tracker: tracker, log: log, pipes: pipes, done: make(chan struct{})}
}

// watch triggers cancellation when ctx is cancelled. The returned function
// stops watching.
func (c *canceller) watch(ctx context.Context) func() {
	go func() {
		select {
		case <-ctx.Done():
			c.trigger()
		case <-c.done:
		}
	}()
	return c.stop
}

// trigger sends the termination signal exactly once.
func (c *canceller) trigger() {
	c.mu.Lock()
	if c.fired {
		c.mu.Unlock()
		return
	}
	c.fired = true
	c.killTimer = time.AfterFunc(killGraceTimeout, func() {
		c.signalTree(syscall.SIGKILL)
		for _, p := range c.pipes {
			_ = p.Close()
		}
	})
	c.mu.Unlock()

	c.log.Warn("cancellation requested, interrupting the build tool")
	c.tracker.CancelAll()
	c.signalTree(syscall.SIGINT)
}

// signalTree signals the child's process group, falling back to the
// direct child if the group is gone.
func (c *canceller) signalTree(sig syscall.Signal) {
	if err := syscall.Kill(-c.cmd.Process.Pid, sig); err != nil {
		_ = c.cmd.Process.Signal(sig)
	}
}

// stop ends the watch and clears the kill timer. Safe to call repeatedly.
func (c *canceller) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}
	if c.killTimer != nil {
		c.killTimer.Stop()
		c.killTimer = nil
	}
}

// triggered reports whether cancellation was delivered to the process.
func (c *canceller) triggered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}
