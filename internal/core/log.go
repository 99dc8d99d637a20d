package core

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the logger installed with SetLogger. Nil means "derive from
// slog.Default()".
var logger atomic.Pointer[slog.Logger]

// fallback caches the slog.Default()-derived logger between SetLogger calls.
var fallback atomic.Pointer[slog.Logger]

// Logger returns the package logger. Without a SetLogger override it is
// slog.Default() tagged with component=simenv, derived once and cached.
// Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := fallback.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "simenv")
	if !fallback.CompareAndSwap(nil, l) {
		// Lost the race; prefer the stored value unless SetLogger cleared it.
		if stored := fallback.Load(); stored != nil {
			return stored
		}
	}
	return l
}

// SetLogger installs l as the package logger. A nil l restores the default,
// re-derived from slog.Default() on the next Logger call.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	fallback.Store(nil)
}

// instanceLogger returns the logger for one instance's log lines.
func instanceLogger(id, kind string) *slog.Logger {
	return Logger().With("id", id, "kind", kind)
}
