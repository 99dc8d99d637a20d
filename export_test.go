package simenv

import "time"

// ConfigSnapshot holds a copy of registryConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	DataDir              string
	OperationTimeout     time.Duration
	CloseTimeout         time.Duration
	ShutdownDrainTimeout time.Duration
	LockTimeout          time.Duration
	UploadTimeout        time.Duration
	Catalog              *Catalog
	Uploader             Uploader
	IDGenerator          func() string
}

// ApplyOptionsForTesting creates a default registryConfig, applies the given
// options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...RegistryOption) ConfigSnapshot {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		DataDir:              cfg.DataDir,
		OperationTimeout:     cfg.OperationTimeout,
		CloseTimeout:         cfg.CloseTimeout,
		ShutdownDrainTimeout: cfg.ShutdownDrainTimeout,
		LockTimeout:          cfg.LockTimeout,
		UploadTimeout:        cfg.UploadTimeout,
		Catalog:              cfg.Catalog,
		Uploader:             cfg.Uploader,
		IDGenerator:          cfg.IDGenerator,
	}
}
