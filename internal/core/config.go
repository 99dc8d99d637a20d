package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/upload"
)

// Uploader ships a recording directory somewhere. *upload.Client satisfies it.
type Uploader interface {
	Upload(ctx context.Context, dir string, req upload.Request) (upload.Result, error)
}

// IDGenerator returns a candidate instance identifier. The registry re-draws
// on collision, so generators need not guarantee uniqueness themselves.
type IDGenerator func() string

// RegistryConfig holds configuration for a Registry.
//
// All fields are immutable after NewRegistry.
type RegistryConfig struct {
	// DataDir is the root under which per-instance render and recording
	// directories are created.
	DataDir string

	// OperationTimeout bounds each engine call (reset, step, render) when the
	// caller's context has no earlier deadline.
	OperationTimeout time.Duration

	// CloseTimeout bounds how long Close waits for an in-flight operation
	// before deferring engine release to the background.
	CloseTimeout time.Duration

	// ShutdownDrainTimeout bounds how long Shutdown waits for in-flight
	// Create calls to register their instances.
	ShutdownDrainTimeout time.Duration

	// LockTimeout bounds acquisition of a recording directory lock.
	LockTimeout time.Duration

	// UploadTimeout bounds a whole Upload, archive and POST included.
	UploadTimeout time.Duration

	// Catalog resolves environment kinds to engine factories.
	Catalog *engine.Catalog

	// Uploader is optional; without it Upload fails with ErrUploadFailed.
	Uploader Uploader

	// IDGenerator produces candidate instance ids.
	IDGenerator IDGenerator
}

// Validate checks all RegistryConfig invariants and returns an error
// describing every violation found, joined with errors.Join.
func (c RegistryConfig) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data directory must not be empty"))
	}
	if c.OperationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("operation timeout must be greater than 0, got %s", c.OperationTimeout))
	}
	if c.CloseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("close timeout must be greater than 0, got %s", c.CloseTimeout))
	}
	if c.ShutdownDrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown drain timeout must be greater than 0, got %s", c.ShutdownDrainTimeout))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("lock timeout must be greater than 0, got %s", c.LockTimeout))
	}
	if c.UploadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upload timeout must be greater than 0, got %s", c.UploadTimeout))
	}
	if c.Catalog == nil {
		errs = append(errs, errors.New("engine catalog must not be nil"))
	}
	if c.IDGenerator == nil {
		errs = append(errs, errors.New("id generator must not be nil"))
	}

	return errors.Join(errs...)
}
