// Package engine defines the capability contract a simulation must satisfy to
// be hosted by the registry, and ships the built-in simulations.
//
// An Engine exposes Reset, Step, Render and Close, plus immutable Spaces
// metadata and a RenderMode capability probe. Callers branch on the
// RenderMode tag, never on the concrete engine type. Engines are not required
// to be safe for concurrent mutation: the registry serializes Reset and Step
// per instance.
//
// Engines are constructed through a Catalog keyed by kind name. DefaultCatalog
// registers GridWorld, CartPole and Bandit.
package engine
