package binary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/jqinstall/jq-install/internal/config"
)

// ErrBuildFailed wraps every source build failure.
var ErrBuildFailed = errors.New("source build failed")

// Runner executes one build command in a directory.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// StepError reports the build step that failed.
type StepError struct {
	Step    string
	Command string
	Err     error
	Output  string // tail of the command's output
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s (%s): %v", e.Step, e.Command, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *StepError) Unwrap() []error {
	return []error{ErrBuildFailed, e.Err}
}

// BuildStep is one command of the native build.
type BuildStep struct {
	Name string
	Cmd  string
	Args []string
}

// String renders the step as a shell-like command line.
func (s BuildStep) String() string {
	return strings.Join(append([]string{s.Cmd}, s.Args...), " ")
}

// Builder compiles jq from an extracted source tree.
type Builder struct {
	runner Runner
	jobs   int
	logger config.Logger
}

// NewBuilder creates a builder. jobs is the make parallelism; zero means
// one job per logical CPU.
func NewBuilder(runner Runner, jobs int, logger config.Logger) *Builder {
	if logger == nil {
		logger = config.NopLogger()
	}
	if runner == nil {
		runner = &ExecRunner{Logger: logger}
	}
	return &Builder{runner: runner, jobs: jobs, logger: logger}
}

// Steps returns the configure, compile and install commands. prefix is
// the scratch install prefix; bindir receives the executable.
func (b *Builder) Steps(ctx context.Context, prefix, bindir string) []BuildStep {
	return []BuildStep{
		{
			Name: "configure",
			Cmd:  "./configure",
			Args: []string{
				"--with-oniguruma=builtin",
				"--prefix=" + prefix,
				"--bindir=" + bindir,
			},
		},
		{
			Name: "compile",
			Cmd:  "make",
			Args: []string{"-j" + strconv.Itoa(b.resolveJobs(ctx))},
		},
		{
			Name: "install",
			Cmd:  "make",
			Args: []string{"install"},
		},
	}
}

// Build runs every step in srcDir, stopping at the first failure.
func (b *Builder) Build(ctx context.Context, srcDir, prefix, bindir string) error {
	for _, step := range b.Steps(ctx, prefix, bindir) {
		b.logger.Info("running build step", "step", step.Name, "command", step.String())

		cmd := step.Cmd
		if strings.HasPrefix(cmd, "./") {
			cmd = filepath.Join(srcDir, strings.TrimPrefix(cmd, "./"))
		}

		if err := b.runner.Run(ctx, srcDir, cmd, step.Args...); err != nil {
			stepErr := &StepError{Step: step.Name, Command: step.String(), Err: err}
			var runErr *RunError
			if errors.As(err, &runErr) {
				stepErr.Err = runErr.Err
				stepErr.Output = runErr.Output
			}
			return stepErr
		}
	}
	return nil
}

// resolveJobs returns the configured parallelism, or the logical CPU count
// when it is zero. DefaultJobs is used if the CPU count is unavailable.
func (b *Builder) resolveJobs(ctx context.Context) int {
	if b.jobs > 0 {
		return b.jobs
	}

	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n <= 0 {
		b.logger.Debug("cpu count unavailable, using default parallelism", "error", err, "jobs", config.DefaultJobs)
		return config.DefaultJobs
	}
	return n
}

// outputTailLines is how much command output a RunError keeps.
const outputTailLines = 20

// RunError is returned by ExecRunner when a command fails.
type RunError struct {
	Err    error
	Output string
}

func (e *RunError) Error() string { return e.Err.Error() }

func (e *RunError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec, logging their output at debug
// level and keeping the last lines for error reports.
type ExecRunner struct {
	Logger config.Logger
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	logger := r.Logger
	if logger == nil {
		logger = config.NopLogger()
	}

	tail := &tailWriter{max: outputTailLines}
	out := &lineLogger{logger: logger, command: filepath.Base(name), tail: tail}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	out.flush()
	if err != nil {
		return &RunError{Err: err, Output: tail.String()}
	}
	return nil
}

// lineLogger forwards complete output lines to a logger.
type lineLogger struct {
	mu      sync.Mutex
	logger  config.Logger
	command string
	tail    *tailWriter
	buf     bytes.Buffer
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err == io.EOF {
			// incomplete line, keep it for the next write
			l.buf.WriteString(line)
			break
		}
		l.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	l.logger.Debug(line, "command", l.command)
	l.tail.add(line)
}

// tailWriter keeps the last max lines.
type tailWriter struct {
	max   int
	lines []string
}

func (t *tailWriter) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailWriter) String() string {
	return strings.Join(t.lines, "\n")
}
