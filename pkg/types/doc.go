// Package types defines the schema vocabulary (entity types, complex types,
// properties, associations), the dynamic entity and link records, the store
// interfaces the engine runs against, and the typed errors the engine
// surfaces to its callers.
package types
