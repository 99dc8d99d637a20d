// Package sentinel provides an immutable error type for sentinel error declarations.
//
// Error values can be declared as const, so the taxonomy of failures the
// registry reports cannot be reassigned by consumers, while remaining
// compatible with errors.Is through wrapped chains. With attaches a
// human-readable detail without exposing the error that produced it.
package sentinel
