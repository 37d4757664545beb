// Package process runs external programs with explicit environment, working
// directory, timeout and log capture, and classifies their failures.
package process

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/pkg/errors"
)

const (
	// DefaultExcerptBytes is how much trailing output a Result keeps.
	DefaultExcerptBytes = 4096
	// DefaultWaitDelay bounds how long Run waits for output pipes after the
	// child has been killed.
	DefaultWaitDelay = 5 * time.Second
)

// Command describes one program invocation. The program is executed directly,
// never through a shell.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env entries are added to the inherited environment of the child only.
	Env map[string]string
	// Stdout receives the standard output when set. Standard error still
	// goes to Log.
	Stdout io.Writer
	// Log receives the echoed command line followed by the combined output.
	Log io.Writer
	// Timeout of zero means no limit beyond the caller's context.
	Timeout time.Duration
	// Tool labels metrics and log entries. Defaults to the base name of Name.
	Tool string
}

// String renders the command line, quoting arguments that contain spaces.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"\\$") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

func (c Command) tool() string {
	if c.Tool != "" {
		return c.Tool
	}
	return filepath.Base(c.Name)
}

func (c Command) environ() []string {
	if len(c.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// Result describes a finished invocation.
type Result struct {
	Command    string
	ExitCode   int
	Duration   time.Duration
	LogExcerpt string
}

// Runner executes commands. Implementations must be safe for concurrent use.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger       logging.Logger
	metrics      *prometheus.DockingMetrics
	excerptBytes int
	waitDelay    time.Duration
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithExcerptBytes sets how much trailing output is kept in Result.LogExcerpt.
func WithExcerptBytes(n int) Option {
	return func(r *ExecRunner) {
		if n > 0 {
			r.excerptBytes = n
		}
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(r *ExecRunner) { r.waitDelay = d }
}

// NewRunner returns an ExecRunner. Nil logger and metrics are replaced with
// no-op implementations.
func NewRunner(logger logging.Logger, metrics *prometheus.DockingMetrics, opts ...Option) *ExecRunner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopDockingMetrics()
	}
	r := &ExecRunner{
		logger:       logger.Named("process"),
		metrics:      metrics,
		excerptBytes: DefaultExcerptBytes,
		waitDelay:    DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the command and blocks until it exits. A non-zero exit yields
// ErrCodeToolFailed, a missing program ErrCodeToolNotFound and an expired or
// cancelled context ErrCodeToolTimeout. The Result is returned alongside
// exit and timeout errors.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, errors.New(errors.ErrCodeToolNotFound, "empty program name")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	tool := c.tool()
	line := c.String()
	log := c.Log
	if log == nil {
		log = io.Discard
	}
	tail := newTailBuffer(r.excerptBytes)
	combined := io.MultiWriter(log, tail)
	fmt.Fprintln(log, line)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.environ()
	cmd.WaitDelay = r.waitDelay
	cmd.Stderr = combined
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		cmd.Stdout = combined
	}

	logger := r.logger.With(logging.Tool(tool))
	logger.Debug("starting tool", logging.String("command", line), logging.String("dir", c.Dir))

	start := time.Now()
	err := cmd.Run()
	res := &Result{Command: line, Duration: time.Since(start), LogExcerpt: tail.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		r.metrics.RecordTool(tool, prometheus.StatusSuccess, res.Duration)
		logger.Debug("tool finished", logging.Duration("duration", res.Duration))
		return res, nil

	case ctx.Err() != nil:
		r.metrics.RecordTool(tool, prometheus.StatusTimeout, res.Duration)
		logger.Warn("tool interrupted", logging.Duration("duration", res.Duration), logging.Err(ctx.Err()))
		return res, errors.Wrap(ctx.Err(), errors.ErrCodeToolTimeout, "tool did not finish").WithDetail(line)

	case isNotFound(err):
		r.metrics.RecordTool(tool, prometheus.StatusFailure, res.Duration)
		return nil, errors.Wrap(err, errors.ErrCodeToolNotFound, "cannot start tool").WithDetail(c.Name)

	case errors.Is(err, fs.ErrPermission):
		r.metrics.RecordTool(tool, prometheus.StatusFailure, res.Duration)
		return nil, errors.Wrap(err, errors.ErrCodeToolFailed, "tool is not executable").WithDetail(c.Name)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		r.metrics.RecordTool(tool, prometheus.StatusFailure, res.Duration)
		logger.Warn("tool exited with an error",
			logging.Int("exit_code", res.ExitCode),
			logging.Duration("duration", res.Duration))
		return res, &errors.AppError{
			Code:    errors.ErrCodeToolFailed,
			Message: fmt.Sprintf("%s exited with status %d", tool, res.ExitCode),
			Detail:  excerptDetail(line, res.LogExcerpt),
			Cause:   err,
		}
	}

	r.metrics.RecordTool(tool, prometheus.StatusFailure, res.Duration)
	return nil, errors.Wrap(err, errors.ErrCodeToolFailed, "cannot run tool").WithDetail(line)
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func excerptDetail(line, excerpt string) string {
	excerpt = strings.TrimSpace(excerpt)
	if excerpt == "" {
		return line
	}
	return line + "\n" + excerpt
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string { return string(t.buf) }

//Personal.AI order the ending
