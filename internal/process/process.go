package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/giantswarm/simenv/internal/fileutil"
	"github.com/giantswarm/simenv/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called on a running process.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when Start is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when Start is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyLogDir is returned when Start is called without a log directory.
const ErrEmptyLogDir = sentinel.Error("log directory must not be empty")

// DefaultStopTimeout bounds Stop when callers have no better value.
const DefaultStopTimeout = 10 * time.Second

// Process is one supervised child. Stdin and Stdout are plain os.Pipe ends
// owned by Process rather than exec's StdinPipe/StdoutPipe, so reading
// stdout never races with the reaping Wait call.
//
// Process is not safe for concurrent use except for Exited, which may be
// selected on from any goroutine, and the pipe ends returned by Stdin and
// Stdout, which belong to the caller once Start returns.
type Process struct {
	name     string
	log      *slog.Logger
	cmd      *exec.Cmd
	stdin    *os.File
	stdout   *os.File
	stderr   *os.File
	logPath  string
	waitDone <-chan error    // receives cmd.Wait result; consumed once by Stop
	exited   <-chan struct{} // closed when the child exits
}

// New returns an unstarted Process. name labels log lines and the stderr log
// file. If logger is nil, slog.Default() is used. Panics if name is empty.
func New(name string, logger *slog.Logger) *Process {
	if name == "" {
		panic("simenv: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{name: name, log: logger}
}

// Start launches cmd with fresh stdin/stdout pipes and stderr redirected to
// <logDir>/<name>-<suffix>-stderr.log. cmd.Dir defaults to logDir.
func (p *Process) Start(cmd *exec.Cmd, logDir, suffix string) (retErr error) {
	switch {
	case cmd == nil:
		return ErrNilCmd
	case cmd.Path == "":
		return ErrEmptyCmdPath
	case logDir == "":
		return ErrEmptyLogDir
	case p.cmd != nil:
		return ErrAlreadyStarted
	}

	if err := fileutil.EnsureDir(logDir); err != nil {
		return fmt.Errorf("create %s log dir: %w", p.name, err)
	}
	logPath := filepath.Join(logDir, p.name+"-"+suffix+"-stderr.log")
	stderr, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create %s stderr log: %w", p.name, err)
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		_ = stderr.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeAll(stderr, inR, inW)
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if cmd.Dir == "" {
		cmd.Dir = logDir
	}
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = stderr
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		closeAll(stderr, inR, inW, outR, outW)
		return fmt.Errorf("start %s: %w", p.name, err)
	}
	// The child holds its own copies now.
	closeAll(inR, outW)

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()

	p.cmd = cmd
	p.stdin = inW
	p.stdout = outR
	p.stderr = stderr
	p.logPath = logPath
	p.waitDone = done
	p.exited = exited
	p.log.Debug("process started", "process", p.name, "pid", cmd.Process.Pid, "stderr", logPath)
	return nil
}

// Stdin returns the write end of the child's standard input.
func (p *Process) Stdin() io.Writer { return p.stdin }

// Stdout returns the read end of the child's standard output. It reports
// io.EOF once the child exits and its output is drained.
func (p *Process) Stdout() io.Reader { return p.stdout }

// StderrPath returns the stderr log file path, or "" before Start.
func (p *Process) StderrPath() string { return p.logPath }

// Exited returns a channel closed when the child exits, or nil before Start.
func (p *Process) Exited() <-chan struct{} { return p.exited }

// IsStarted reports whether the process was started and not yet stopped.
func (p *Process) IsStarted() bool { return p.cmd != nil }

// Stop ends the child and releases every file handle. Closing stdin asks the
// child to exit on its own; if it is still running after the grace period
// it gets SIGTERM and finally SIGKILL. A child that exits after SIGTERM or
// SIGKILL counts as stopped cleanly. Safe to call on an unstarted or already
// stopped process.
func (p *Process) Stop(timeout time.Duration) error {
	if p.cmd == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	pid := p.cmd.Process.Pid

	_ = p.stdin.Close()
	err := stopWithDone(p.cmd, p.waitDone, timeout, p.name)
	if err != nil {
		p.log.Warn("process stop failed; process may be orphaned",
			"process", p.name, "pid", pid, "error", err)
	}
	closeAll(p.stdout, p.stderr)

	p.cmd = nil
	p.stdin, p.stdout, p.stderr = nil, nil, nil
	p.waitDone = nil
	return err
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
