// Package transcode wraps the external binaries the preview pipeline shells out to
// (pdftoppm, ffmpeg, ffprobe, soffice) behind a timeout-bounded subprocess runner.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is matched with errors.Is when a subprocess exceeded its timeout.
var ErrTimeout = errors.New("subprocess timed out")

const (
	defaultTimeout         = 2 * time.Minute
	defaultStderrTailBytes = 2048
	// waitDelay bounds how long Wait blocks on pipes after the process was killed.
	waitDelay = 5 * time.Second
)

// Command describes one subprocess invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env entries are appended to the worker's environment.
	Env   []string
	Stdin io.Reader
	// Timeout overrides the runner default when positive.
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a successful run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes subprocesses.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExitError reports a non-zero exit status with the tail of stderr.
type ExitError struct {
	Command    string
	ExitCode   int
	StderrTail string
}

func (e *ExitError) Error() string {
	if e.StderrTail == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, e.StderrTail)
}

// ErrorClass implements the metrics error classifier.
func (e *ExitError) ErrorClass() string { return "subprocess_exit" }

// TimeoutError reports a subprocess killed after exceeding its timeout.
type TimeoutError struct {
	Command    string
	After      time.Duration
	StderrTail string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s timed out after %s", e.Command, e.After)
	if e.StderrTail != "" {
		msg += ": " + e.StderrTail
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrTimeout) match.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// ErrorClass implements the metrics error classifier.
func (e *TimeoutError) ErrorClass() string { return "subprocess_timeout" }

// ExecRunnerOptions configures NewExecRunner.
type ExecRunnerOptions struct {
	DefaultTimeout  time.Duration
	StderrTailBytes int
	Logger          *slog.Logger
}

// ExecRunner runs commands with os/exec. Every run has a deadline; parent
// cancellation kills the process as well.
type ExecRunner struct {
	defaultTimeout time.Duration
	tailBytes      int
	logger         *slog.Logger
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner constructs an ExecRunner.
func NewExecRunner(opts ExecRunnerOptions) *ExecRunner {
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tail := opts.StderrTailBytes
	if tail <= 0 {
		tail = defaultStderrTailBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{
		defaultTimeout: timeout,
		tailBytes:      tail,
		logger:         logger.With("component", "exec_runner"),
	}
}

// Run executes cmd and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if strings.TrimSpace(cmd.Path) == "" {
		return nil, errors.New("command path is required")
	}
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.WaitDelay = waitDelay
	setProcessGroup(c)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: r.tailBytes}
	c.Stdout = &stdout
	c.Stderr = stderr

	start := time.Now()
	err := c.Run()
	elapsed := time.Since(start)

	r.logger.DebugContext(ctx, "subprocess finished",
		"command", cmd.Path,
		"duration_ms", elapsed.Milliseconds(),
		"error", err,
	)

	if err == nil {
		return &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: elapsed}, nil
	}

	tail := strings.TrimSpace(stderr.String())
	switch {
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%s: %w", cmd.Path, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, &TimeoutError{Command: cmd.Path, After: timeout, StderrTail: tail}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ExitError{Command: cmd.Path, ExitCode: exitErr.ExitCode(), StderrTail: tail}
	}
	return nil, fmt.Errorf("run %s: %w", cmd.Path, err)
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.limit {
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) Bytes() []byte  { return t.buf }
func (t *tailBuffer) String() string { return string(t.buf) }
