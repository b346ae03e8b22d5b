// Package engine contains the time-based simulation logic for the cat.
//
// ARCHITECTURAL RULE: ApplyDecay is a pure function over cat.State values.
// All persistence decisions live in the Reconciler; the decay math itself
// performs no I/O and must stay deterministic so retries are safe.
package engine
