package external

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/process"
	"github.com/giantswarm/simenv/internal/sentinel"
)

// ErrProtocol is returned when the simulator sends something that is not a
// valid reply.
const ErrProtocol = sentinel.Error("simulator protocol violation")

// ErrSimulator is returned when the simulator reports a failure that has no
// engine-level meaning.
const ErrSimulator = sentinel.Error("simulator failure")

// ErrExited is returned when the simulator process is gone.
const ErrExited = sentinel.Error("simulator exited")

// maxLineSize bounds a single reply line. Pixel frames travel base64-encoded
// on one line.
const maxLineSize = 32 << 20

// Engine is an engine.Engine backed by a simulator process. Requests are
// serialized; a request abandoned by its context leaves its reply pending,
// and the next request discards it before sending its own.
type Engine struct {
	kind        string
	log         *slog.Logger
	proc        *process.Process
	stdin       io.Writer
	lines       <-chan []byte
	readErr     error // set before lines is closed
	stop        chan struct{}
	stopTimeout time.Duration

	spaces engine.Spaces
	mode   engine.RenderMode

	mu    sync.Mutex
	stale int

	closeOnce sync.Once
	closeErr  error
}

var _ engine.Engine = (*Engine)(nil)

// Factory returns an engine.Factory that starts one simulator process per
// engine. Panics if cfg is invalid.
func Factory(cfg Config) engine.Factory {
	if err := cfg.Validate(); err != nil {
		panic("simenv: " + err.Error())
	}
	cfg = cfg.withDefaults()
	return func(ctx context.Context, seed int64) (engine.Engine, error) {
		return Start(ctx, cfg, seed)
	}
}

// Start launches the simulator and performs the init handshake. The process
// is stopped again if the handshake fails.
func Start(ctx context.Context, cfg Config, seed int64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	proc := process.New(processName(cfg.Kind), cfg.Logger)
	cmd := exec.Command(cfg.Path, cfg.Args...)
	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.Env...)
	}
	if err := proc.Start(cmd, cfg.LogDir, xid.New().String()); err != nil {
		return nil, err
	}

	lines := make(chan []byte)
	e := &Engine{
		kind:        cfg.Kind,
		log:         cfg.Logger.With("engine", cfg.Kind),
		proc:        proc,
		stdin:       proc.Stdin(),
		lines:       lines,
		stop:        make(chan struct{}),
		stopTimeout: cfg.StopTimeout,
	}
	go e.readLines(proc.Stdout(), lines)

	initCtx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()
	if err := e.handshake(initCtx, seed); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("start %s (stderr: %s): %w", cfg.Kind, proc.StderrPath(), err)
	}
	e.log.Debug("simulator ready", "stderr", proc.StderrPath(),
		"action_space", e.spaces.Action.String(), "observation_space", e.spaces.Observation.String())
	return e, nil
}

func (e *Engine) handshake(ctx context.Context, seed int64) error {
	r, err := e.call(ctx, request{Op: opInit, Seed: &seed})
	if err != nil {
		return err
	}
	act, err := r.ActionSpace.space("action_space")
	if err != nil {
		return ErrProtocol.With("%v", err)
	}
	obs, err := r.ObservationSpace.space("observation_space")
	if err != nil {
		return ErrProtocol.With("%v", err)
	}
	mode, err := parseRenderMode(r.RenderMode)
	if err != nil {
		return ErrProtocol.With("%v", err)
	}
	e.spaces = engine.Spaces{Action: act, Observation: obs}
	e.mode = mode
	return nil
}

// Spaces returns the spaces announced during the handshake.
func (e *Engine) Spaces() engine.Spaces { return e.spaces }

// RenderMode returns the render mode announced during the handshake.
func (e *Engine) RenderMode() engine.RenderMode { return e.mode }

// Reset asks the simulator for a new episode.
func (e *Engine) Reset(ctx context.Context) (engine.Observation, error) {
	r, err := e.call(ctx, request{Op: opReset})
	if err != nil {
		return nil, err
	}
	return r.Observation, nil
}

// Step forwards action. The action is checked against the action space
// before it is sent.
func (e *Engine) Step(ctx context.Context, action engine.Action) (engine.StepResult, error) {
	if !e.spaces.Action.Contains(action) {
		return engine.StepResult{}, fmt.Errorf("%w: %v not in %s", engine.ErrInvalidAction, []float64(action), e.spaces.Action)
	}
	r, err := e.call(ctx, request{Op: opStep, Action: action})
	if err != nil {
		return engine.StepResult{}, err
	}
	return engine.StepResult{
		Observation: r.Observation,
		Reward:      r.Reward,
		Done:        r.Done,
		Info:        r.Info,
	}, nil
}

// Render asks the simulator for a frame in mode.
func (e *Engine) Render(ctx context.Context, mode engine.RenderMode) (engine.Frame, error) {
	if mode == engine.RenderUnsupported || e.mode == engine.RenderUnsupported {
		return engine.Frame{}, engine.ErrRenderUnsupported
	}
	r, err := e.call(ctx, request{Op: opRender, Mode: mode.String()})
	if err != nil {
		return engine.Frame{}, err
	}
	return r.frame(mode)
}

// Close stops the simulator. It does not wait for an in-flight request.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.stop)
		e.closeErr = e.proc.Stop(e.stopTimeout)
	})
	return e.closeErr
}

func (e *Engine) call(ctx context.Context, req request) (reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.stale > 0 {
		if _, err := e.recv(ctx); err != nil {
			return reply{}, err
		}
		e.stale--
	}

	data, err := json.Marshal(req)
	if err != nil {
		return reply{}, fmt.Errorf("encode %s request: %w", req.Op, err)
	}
	if _, err := e.stdin.Write(append(data, '\n')); err != nil {
		return reply{}, ErrExited.With("%s: write %s request: %v", e.kind, req.Op, err)
	}

	line, err := e.recv(ctx)
	if err != nil {
		if ctx.Err() != nil {
			e.stale++
		}
		return reply{}, err
	}
	return decodeReply(line)
}

func (e *Engine) recv(ctx context.Context) ([]byte, error) {
	select {
	case line, ok := <-e.lines:
		if !ok {
			if e.readErr != nil {
				return nil, ErrProtocol.With("%s: %v", e.kind, e.readErr)
			}
			return nil, ErrExited.With("%s: stdout closed", e.kind)
		}
		return line, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) readLines(r io.Reader, out chan<- []byte) {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		select {
		case out <- line:
		case <-e.stop:
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case <-e.stop:
			return
		default:
		}
		e.readErr = err
		e.log.Warn("simulator output unreadable", "error", err)
	}
}

// processName keeps the kind usable as part of a file name.
func processName(kind string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, kind)
}
