package simenv

import "time"

// Default configuration values for NewRegistry.
const (
	// DefaultDataDirName is the directory under the system temp directory
	// that holds per-instance frames and recordings when WithDataDir is not
	// given.
	DefaultDataDirName = "simenv"

	// DefaultOperationTimeout bounds each engine call when the caller's
	// context carries no earlier deadline.
	DefaultOperationTimeout = 30 * time.Second

	// DefaultCloseTimeout is how long Close waits for an in-flight engine
	// call before handing engine release to the background.
	DefaultCloseTimeout = 5 * time.Second

	// DefaultShutdownDrainTimeout is the maximum time Shutdown waits for
	// in-flight Create calls to register their instances.
	DefaultShutdownDrainTimeout = 30 * time.Second

	// DefaultLockTimeout bounds acquisition of a recording directory lock
	// held by another process.
	DefaultLockTimeout = 5 * time.Second

	// DefaultUploadTimeout bounds one Upload: archiving the recording
	// directory and posting it.
	DefaultUploadTimeout = 2 * time.Minute
)
