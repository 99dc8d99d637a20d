package core

import (
	"context"
	"sync"
)

// turnstile is a mutual-exclusion guard that admits waiters strictly in
// arrival order. Ownership passes directly from Release to the oldest waiter,
// so a late arrival can never overtake a queued one.
type turnstile struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Acquire blocks until the caller owns the turnstile or ctx is done. On
// ctx expiry the caller leaves the queue without owning the turnstile.
func (t *turnstile) Acquire(ctx context.Context) error {
	t.mu.Lock()
	if !t.held {
		t.held = true
		t.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	t.waiters = append(t.waiters, ready)
	t.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
	}

	t.mu.Lock()
	for i, w := range t.waiters {
		if w == ready {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			t.mu.Unlock()
			return ctx.Err()
		}
	}
	t.mu.Unlock()

	// Ownership was handed over while ctx expired; pass it on.
	t.Release()
	return ctx.Err()
}

// Release hands the turnstile to the oldest waiter, or frees it. Panics if
// the turnstile is not held.
func (t *turnstile) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.held {
		panic("simenv: release of unheld turnstile")
	}
	if len(t.waiters) == 0 {
		t.held = false
		return
	}
	next := t.waiters[0]
	t.waiters[0] = nil
	t.waiters = t.waiters[1:]
	close(next)
}

// queued returns the number of waiters.
func (t *turnstile) queued() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}
