// Package core provides the internal implementation of the simenv instance
// registry. It contains the Registry (id-to-instance map with parallel
// shutdown and in-flight create draining), Instance (one live simulation with
// a FIFO mutation guard, render counter and optional episode recorder), and
// the error Kind taxonomy shared by every operation.
package core
