package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// eofGracePeriod is how long a child gets to exit on its own after stdin
// is closed, before it is signaled.
const eofGracePeriod = 2 * time.Second

// termGracePeriod is how long a child gets to exit after SIGTERM before it
// is killed.
const termGracePeriod = 3 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait after SIGKILL.
const killDrainTimeout = 10 * time.Second

// drainDone reads from done with timeout as a hard upper bound. It returns
// true and the cmd.Wait error if the channel delivered in time, or false
// and nil if the timeout elapsed.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone waits for a child whose stdin has been closed, escalating to
// SIGTERM and then SIGKILL. done must carry the result of the single
// cmd.Wait call for cmd. The EOF and SIGTERM grace periods are clamped to
// timeout. Worst-case blocking is timeout + killDrainTimeout.
func stopWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	eof := min(eofGracePeriod, timeout/2)
	if ok, err := drainDone(done, eof); ok {
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already exited between the drain and the signal.
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", name)
		}
		return expectSignalExit(waitErr, name)
	}

	remaining := timeout - eof
	killTimer := time.AfterFunc(min(termGracePeriod, remaining), func() {
		// Kill on a finished process only returns an error.
		_ = cmd.Process.Kill()
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(remaining)
	defer totalTimer.Stop()

	select {
	case err := <-done:
		return expectSignalExit(err, name)
	case <-totalTimer.C:
		_ = cmd.Process.Kill()
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out waiting for process to exit after SIGKILL", name)
		}
		if err := expectSignalExit(waitErr, name); err != nil {
			return fmt.Errorf("%s stop timeout: %w", name, err)
		}
		return nil
	}
}

// expectSignalExit interprets a cmd.Wait error after a termination signal.
// Exits caused by SIGTERM or SIGKILL count as successful stops.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
