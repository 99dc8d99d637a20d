package simenv

import (
	"log/slog"

	"github.com/giantswarm/simenv/internal/core"
)

// SetLogger replaces the package-level logger used by simenv. Instance log
// lines add "id" and "kind" attributes to it.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute, re-derived on the next log call. Call SetLogger(nil) after
// slog.SetDefault() to pick up changes.
//
// Safe to call concurrently with registry operations; for a strict
// happens-before guarantee call it before creating registries.
//
// Example:
//
//	simenv.SetLogger(myLogger.With("component", "simenv"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
