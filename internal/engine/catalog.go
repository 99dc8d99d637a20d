package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a fresh engine. seed makes the engine's randomness
// reproducible; ctx bounds any startup work.
type Factory func(ctx context.Context, seed int64) (Engine, error)

// Catalog maps engine kind names to factories. It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// DefaultCatalog returns a new catalog with the built-in engines registered.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.MustRegister("GridWorld", func(context.Context, int64) (Engine, error) {
		return NewGridWorld(DefaultGridRows, DefaultGridCols), nil
	})
	c.MustRegister("CartPole", func(_ context.Context, seed int64) (Engine, error) {
		return NewCartPole(seed), nil
	})
	c.MustRegister("Bandit", func(_ context.Context, seed int64) (Engine, error) {
		return NewBandit(DefaultBanditArms, DefaultBanditPulls, seed), nil
	})
	return c
}

// Register adds a factory under kind. Returns an error if kind is empty,
// f is nil, or kind is already registered.
func (c *Catalog) Register(kind string, f Factory) error {
	if kind == "" {
		return fmt.Errorf("engine kind must not be empty")
	}
	if f == nil {
		return fmt.Errorf("factory for %s must not be nil", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[kind]; exists {
		return fmt.Errorf("engine kind %s already registered", kind)
	}
	c.factories[kind] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(kind string, f Factory) {
	if err := c.Register(kind, f); err != nil {
		panic("engine: " + err.Error())
	}
}

// New constructs an engine of the given kind. Returns an error wrapping
// ErrUnknownKind if kind is not registered.
func (c *Catalog) New(ctx context.Context, kind string, seed int64) (Engine, error) {
	c.mu.RLock()
	f, ok := c.factories[kind]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	e, err := f(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", kind, err)
	}
	return e, nil
}

// Kinds returns the registered kind names in sorted order.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]string, 0, len(c.factories))
	for k := range c.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
