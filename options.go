package simenv

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/giantswarm/simenv/internal/recording"
	"github.com/giantswarm/simenv/internal/upload"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("simenv: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("simenv: %s must not be empty", name))
	}
}

// requireNonNil panics if v is nil with a descriptive message.
func requireNonNil[T any](name string, v *T) {
	if v == nil {
		panic(fmt.Sprintf("simenv: %s must not be nil", name))
	}
}

// RegistryOption configures a Registry during construction via NewRegistry.
//
// With* functions panic on invalid input. Option values are normally
// constants or flags parsed at startup, so an invalid value is a programmer
// error; the pattern mirrors [regexp.MustCompile].
type RegistryOption func(*registryConfig)

// WithDataDir sets the root directory for rendered frames and recordings.
// Each instance gets <dir>/<id>/rendered and <dir>/<id>/recording.
//
// Default: filepath.Join(os.TempDir(), DefaultDataDirName).
//
// Panics if dir is empty.
func WithDataDir(dir string) RegistryOption {
	requireNonEmpty("data directory", dir)
	return func(c *registryConfig) {
		c.DataDir = dir
	}
}

// WithOperationTimeout bounds each reset, step and render call when the
// caller's context has no earlier deadline. A timed-out reset or step leaves
// the instance requiring a reset.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithOperationTimeout(d time.Duration) RegistryOption {
	requirePositive("operation timeout", d)
	return func(c *registryConfig) {
		c.OperationTimeout = d
	}
}

// WithCloseTimeout sets how long Close waits for an in-flight operation on
// the instance before releasing its engine in the background.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithCloseTimeout(d time.Duration) RegistryOption {
	requirePositive("close timeout", d)
	return func(c *registryConfig) {
		c.CloseTimeout = d
	}
}

// WithShutdownDrainTimeout sets how long Shutdown waits for in-flight Create
// calls before closing instances.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithShutdownDrainTimeout(d time.Duration) RegistryOption {
	requirePositive("shutdown drain timeout", d)
	return func(c *registryConfig) {
		c.ShutdownDrainTimeout = d
	}
}

// WithLockTimeout bounds how long MonitorStart waits for a recording
// directory lock held by another process.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithLockTimeout(d time.Duration) RegistryOption {
	requirePositive("lock timeout", d)
	return func(c *registryConfig) {
		c.LockTimeout = d
	}
}

// WithUploadTimeout bounds each Upload, from archiving the recording
// directory to the endpoint's reply. An Upload cut short fails with
// ErrTimeout.
//
// Default: 2 minutes.
//
// Panics if d <= 0.
func WithUploadTimeout(d time.Duration) RegistryOption {
	requirePositive("upload timeout", d)
	return func(c *registryConfig) {
		c.UploadTimeout = d
	}
}

// WithCatalog replaces the engine catalog. Start from DefaultCatalog to keep
// the built-in kinds.
//
// Panics if cat is nil.
func WithCatalog(cat *Catalog) RegistryOption {
	requireNonNil("engine catalog", cat)
	return func(c *registryConfig) {
		c.Catalog = cat
	}
}

// Uploader ships a recording directory to a remote service.
type Uploader interface {
	Upload(ctx context.Context, dir string, req UploaderRequest) (UploadResult, error)
}

// WithUploader sets the destination for Upload. Without an uploader, Upload
// fails with ErrUploadFailed.
//
// Panics if u is nil.
func WithUploader(u Uploader) RegistryOption {
	if u == nil {
		panic("simenv: uploader must not be nil")
	}
	return func(c *registryConfig) {
		c.Uploader = u
	}
}

// WithUploadEndpoint configures an HTTP uploader that posts recordings as a
// multipart tar.gz archive to endpoint. Recording lock files are never
// shipped.
//
// Panics if endpoint is empty or not an absolute URL.
func WithUploadEndpoint(endpoint string) RegistryOption {
	requireNonEmpty("upload endpoint", endpoint)
	if u, err := url.Parse(endpoint); err != nil || !u.IsAbs() {
		panic(fmt.Sprintf("simenv: upload endpoint must be an absolute URL, got %q", endpoint))
	}
	client := upload.NewClient(upload.Config{
		Endpoint: endpoint,
		Exclude:  []string{recording.LockFile},
	})
	return func(c *registryConfig) {
		c.Uploader = client
	}
}

// WithIDGenerator replaces the instance id generator. The registry re-draws
// on collision with any id it has issued, so gen need not guarantee
// uniqueness, but a generator with a small range exhausts quickly.
//
// Panics if gen is nil.
func WithIDGenerator(gen func() string) RegistryOption {
	if gen == nil {
		panic("simenv: id generator must not be nil")
	}
	return func(c *registryConfig) {
		c.IDGenerator = gen
	}
}
