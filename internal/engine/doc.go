// Package engine implements the dynamic schema and data core: value
// coercion against runtime-declared types, link cardinality enforcement,
// the constrained query language, optimistic-concurrency tokens, and the
// operation facade the transport layer calls into.
//
// The engine is request-scoped and stateless between calls. Every
// operation resolves an immutable schema snapshot, validates its input
// fully before touching the store, and relies on the store's per-key
// compare-and-swap for same-instance races.
package engine
