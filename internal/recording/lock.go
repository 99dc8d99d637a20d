package recording

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is the interval between consecutive attempts to acquire
// the recording directory lock.
const lockRetryInterval = 50 * time.Millisecond

// acquireLock takes an exclusive lock on lockPath, retrying until ctx is
// done. Failure to obtain the lock wraps ErrLocked.
func acquireLock(ctx context.Context, lockPath string) (*flock.Flock, error) {
	fl := flock.New(lockPath)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLocked, lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
	return fl, nil
}

// releaseLock releases fl and closes its descriptor. The lock file stays on
// disk; removing it could invalidate a lock concurrently taken by another
// process.
func releaseLock(log *slog.Logger, fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Close(); err != nil {
		log.Debug("failed to release recording lock", "path", fl.Path(), "err", err)
	}
}
