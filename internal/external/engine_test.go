package external

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/simenv/internal/engine"
)

// helperEnv selects the behavior of the simulator played by the test binary.
const helperEnv = "SIMENV_EXTERNAL_HELPER"

// TestHelperProcess is not a real test. It is the simulator started by the
// tests below, which re-execute the test binary with helperEnv set.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	runHelper(mode)
	os.Exit(0)
}

func runHelper(mode string) {
	out := json.NewEncoder(os.Stdout)
	in := bufio.NewScanner(os.Stdin)
	pos, running := 0, false

	for in.Scan() {
		var req request
		if err := json.Unmarshal(in.Bytes(), &req); err != nil {
			_ = out.Encode(map[string]any{"error": replyError{Code: "bad_request", Message: err.Error()}})
			continue
		}
		fail := func(code, msg string) { _ = out.Encode(map[string]any{"error": replyError{Code: code, Message: msg}}) }

		switch req.Op {
		case opInit:
			switch mode {
			case "garbage":
				fmt.Println("this is not json")
			case "bad-space":
				_ = out.Encode(map[string]any{
					"action_space":      map[string]any{"kind": "hypercube"},
					"observation_space": map[string]any{"kind": "discrete", "n": 1},
				})
			case "silent":
			default:
				render := "text"
				if mode == "pixel" {
					render = "pixel"
				}
				_ = out.Encode(map[string]any{
					"action_space":      map[string]any{"kind": "discrete", "n": 2},
					"observation_space": map[string]any{"kind": "box", "low": []float64{0}, "high": []float64{10}},
					"render_mode":       render,
				})
			}
		case opReset:
			pos, running = 0, true
			_ = out.Encode(map[string]any{"observation": []float64{0}})
		case opStep:
			if mode == "crash" {
				os.Exit(2)
			}
			if !running {
				fail(codeNeedsReset, "episode is over")
				continue
			}
			if mode == "slow" {
				time.Sleep(300 * time.Millisecond)
			}
			if req.Action.Index() == 1 {
				pos++
			} else if pos > 0 {
				pos--
			}
			done := pos >= 3
			reward := 0.0
			if done {
				reward, running = 1, false
			}
			_ = out.Encode(map[string]any{
				"observation": []float64{float64(pos)},
				"reward":      reward,
				"done":        done,
				"info":        map[string]any{"pos": pos},
			})
		case opRender:
			if req.Mode == "pixel" {
				img := image.NewRGBA(image.Rect(0, 0, 2, 1))
				img.Set(pos%2, 0, color.RGBA{R: 255, A: 255})
				var buf bytes.Buffer
				_ = png.Encode(&buf, img)
				_ = out.Encode(map[string]any{"png": buf.Bytes()})
				continue
			}
			_ = out.Encode(map[string]any{"text": fmt.Sprintf("pos=%d", pos)})
		default:
			fail("unknown_op", req.Op)
		}
	}
}

func helperConfig(t *testing.T, mode string) Config {
	t.Helper()
	return Config{
		Kind:         "Helper",
		Path:         os.Args[0],
		Args:         []string{"-test.run=^TestHelperProcess$"},
		Env:          []string{helperEnv + "=" + mode},
		LogDir:       t.TempDir(),
		StartTimeout: 10 * time.Second,
		StopTimeout:  2 * time.Second,
	}
}

func startHelper(t *testing.T, mode string) *Engine {
	t.Helper()
	e, err := Start(context.Background(), helperConfig(t, mode), 7)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_Episode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := startHelper(t, "text")

	if got := e.Spaces().Action.String(); got != "Discrete(2)" {
		t.Errorf("action space = %s, want Discrete(2)", got)
	}
	if got := e.Spaces().Observation.String(); got != "Box(1,)" {
		t.Errorf("observation space = %s, want Box(1,)", got)
	}
	if e.RenderMode() != engine.RenderText {
		t.Errorf("RenderMode() = %v, want text", e.RenderMode())
	}

	if _, err := e.Step(ctx, engine.Action{1}); !errors.Is(err, engine.ErrNeedsReset) {
		t.Fatalf("Step before Reset error = %v, want ErrNeedsReset", err)
	}

	obs, err := e.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(obs) != 1 || obs[0] != 0 {
		t.Fatalf("Reset() observation = %v, want [0]", obs)
	}

	if _, err := e.Step(ctx, engine.Action{5}); !errors.Is(err, engine.ErrInvalidAction) {
		t.Fatalf("Step out of space error = %v, want ErrInvalidAction", err)
	}

	var last engine.StepResult
	for i := range 3 {
		last, err = e.Step(ctx, engine.Action{1})
		if err != nil {
			t.Fatalf("Step %d error = %v", i, err)
		}
	}
	if !last.Done || last.Reward != 1 || last.Observation[0] != 3 {
		t.Errorf("final step = %+v, want done with reward 1 at 3", last)
	}
	if pos, _ := last.Info["pos"].(float64); pos != 3 {
		t.Errorf("info pos = %v, want 3", last.Info["pos"])
	}

	frame, err := e.Render(ctx, engine.RenderText)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if frame.Mode != engine.RenderText || frame.Text != "pos=3" {
		t.Errorf("Render() = %+v, want text pos=3", frame)
	}

	if _, err := e.Step(ctx, engine.Action{0}); !errors.Is(err, engine.ErrNeedsReset) {
		t.Fatalf("Step after done error = %v, want ErrNeedsReset", err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := os.Stat(e.proc.StderrPath()); err != nil {
		t.Errorf("stderr log missing: %v", err)
	}
}

func TestEngine_PixelRender(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := startHelper(t, "pixel")
	if _, err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	frame, err := e.Render(ctx, engine.RenderPixel)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if frame.Mode != engine.RenderPixel || frame.Image == nil {
		t.Fatalf("Render() = %+v, want a pixel frame", frame)
	}
	if b := frame.Image.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("frame bounds = %v, want 2x1", b)
	}
}

func TestEngine_AbandonedReplyIsDiscarded(t *testing.T) {
	t.Parallel()

	e := startHelper(t, "slow")
	if _, err := e.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.Step(ctx, engine.Action{1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Step with short deadline error = %v, want DeadlineExceeded", err)
	}

	// The abandoned step still ran in the simulator, so this one lands on 2.
	res, err := e.Step(context.Background(), engine.Action{1})
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if res.Observation[0] != 2 {
		t.Errorf("observation = %v, want [2]", res.Observation)
	}
}

func TestEngine_CrashIsReported(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, err := Start(ctx, helperConfig(t, "crash"), 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if _, err := e.Step(ctx, engine.Action{1}); !errors.Is(err, ErrExited) {
		t.Fatalf("Step() error = %v, want ErrExited", err)
	}
	if err := e.Close(); err == nil {
		t.Error("Close() after crash should report the exit status")
	}
}

func TestStart_HandshakeFailures(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mode         string
		startTimeout time.Duration
		want         error
	}{
		"garbage reply": {mode: "garbage", want: ErrProtocol},
		"bad space":     {mode: "bad-space", want: ErrProtocol},
		"no reply":      {mode: "silent", startTimeout: 200 * time.Millisecond, want: context.DeadlineExceeded},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := helperConfig(t, tc.mode)
			if tc.startTimeout > 0 {
				cfg.StartTimeout = tc.startTimeout
			}
			e, err := Start(context.Background(), cfg, 1)
			if err == nil {
				_ = e.Close()
				t.Fatal("Start() should fail")
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Start() error = %v, want %v", err, tc.want)
			}
			if !strings.Contains(err.Error(), "stderr:") {
				t.Errorf("error %q should name the stderr log", err)
			}
		})
	}
}

func TestStart_MissingBinary(t *testing.T) {
	t.Parallel()

	cfg := Config{Kind: "Ghost", Path: "/nonexistent/simulator", LogDir: t.TempDir()}
	if _, err := Start(context.Background(), cfg, 1); err == nil {
		t.Fatal("Start() with a missing binary should fail")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     Config
		wantErr []string
	}{
		"valid": {
			cfg: Config{Kind: "Sim", Path: "/bin/sim", LogDir: "/tmp/logs"},
		},
		"everything missing": {
			cfg:     Config{},
			wantErr: []string{"kind must not be empty", "command must not be empty", "log dir must not be empty"},
		},
		"negative timeouts": {
			cfg:     Config{Kind: "Sim", Path: "/bin/sim", LogDir: "/tmp", StartTimeout: -1, StopTimeout: -1},
			wantErr: []string{"start timeout must not be negative", "stop timeout must not be negative"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if len(tc.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err, want)
				}
			}
		})
	}
}

func TestFactory_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for invalid config")
		}
	}()
	Factory(Config{Kind: "Sim"})
}

func TestFactory_RegistersInCatalog(t *testing.T) {
	t.Parallel()

	cat := engine.DefaultCatalog()
	cat.MustRegister("Helper", Factory(helperConfig(t, "text")))

	eng, err := cat.New(context.Background(), "Helper", 3)
	if err != nil {
		t.Fatalf("Catalog.New() error = %v", err)
	}
	defer eng.Close()
	if _, err := eng.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
}

func TestProcessName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"CartPole-v1":   "CartPole-v1",
		"team/sim v2":   "team_sim_v2",
		"../../escape":  ".._.._escape",
		"snake_case.ok": "snake_case.ok",
	}
	for in, want := range tests {
		if got := processName(in); got != want {
			t.Errorf("processName(%q) = %q, want %q", in, got, want)
		}
	}
}
