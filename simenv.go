package simenv

import (
	"context"
	"os"
	"path/filepath"

	"github.com/giantswarm/simenv/internal/core"
	"github.com/giantswarm/simenv/internal/engine"
)

// Compile-time interface satisfaction check.
var _ Registry = (*registryWrapper)(nil)

// registryWrapper adapts *core.Registry to Registry. The core registry is a
// named field so callers cannot reach unexported helpers by type assertion.
type registryWrapper struct {
	reg *core.Registry
}

func (w *registryWrapper) Kinds() []string { return w.reg.Kinds() }

func (w *registryWrapper) Create(ctx context.Context, kind string) (string, error) {
	return w.reg.Create(ctx, kind)
}

func (w *registryWrapper) Reset(ctx context.Context, id string, render bool) (ResetResult, error) {
	return w.reg.Reset(ctx, id, render)
}

func (w *registryWrapper) Step(ctx context.Context, id string, action any, render bool) (StepResult, error) {
	return w.reg.Step(ctx, id, action, render)
}

func (w *registryWrapper) Render(ctx context.Context, id string) (RenderStatus, error) {
	return w.reg.Render(ctx, id)
}

func (w *registryWrapper) Describe(id string) (Info, error) { return w.reg.Describe(id) }

func (w *registryWrapper) List() []Summary { return w.reg.List() }

func (w *registryWrapper) MonitorStart(ctx context.Context, id string, opts MonitorOptions) (string, error) {
	return w.reg.MonitorStart(ctx, id, opts)
}

func (w *registryWrapper) MonitorClose(ctx context.Context, id string) error {
	return w.reg.MonitorClose(ctx, id)
}

func (w *registryWrapper) Upload(ctx context.Context, id string, req UploadRequest) (UploadResult, error) {
	return w.reg.Upload(ctx, id, req)
}

func (w *registryWrapper) Close(ctx context.Context, id string) error {
	return w.reg.Close(ctx, id)
}

func (w *registryWrapper) Shutdown() error { return w.reg.Shutdown() }

// defaultRegistryConfig returns a registryConfig populated with all default
// values. NewRegistry and the test hooks share it.
func defaultRegistryConfig() registryConfig {
	return registryConfig{core.RegistryConfig{
		DataDir:              filepath.Join(os.TempDir(), DefaultDataDirName),
		OperationTimeout:     DefaultOperationTimeout,
		CloseTimeout:         DefaultCloseTimeout,
		ShutdownDrainTimeout: DefaultShutdownDrainTimeout,
		LockTimeout:          DefaultLockTimeout,
		UploadTimeout:        DefaultUploadTimeout,
		Catalog:              engine.DefaultCatalog(),
		IDGenerator:          core.NewID,
	}}
}

// NewRegistry returns a new, independent Registry. It performs no I/O;
// directories are created on first use.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Registry interface by design for testability (mockable).
func NewRegistry(opts ...RegistryOption) Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &registryWrapper{reg: core.NewRegistry(cfg.toCoreConfig())}
}
