package types

// EntityStore is the narrow persistence interface the engine issues
// operations through. Implementations provide per-key atomicity: Put and
// Delete with expectedVersion > 0 are compare-and-swap on the stored
// Version, and a losing writer gets a stale-precondition error rather than
// a silent overwrite.
type EntityStore interface {
	// Get retrieves one instance. found is false when the id is unknown;
	// err is reserved for infrastructure failures.
	Get(entityType, id string) (e *Entity, found bool, err error)

	// Put persists an instance. expectedVersion 0 means create: the id
	// must not exist yet (EntityAlreadyExists otherwise). A positive
	// expectedVersion must equal the stored Version
	// (PreconditionFailedStale otherwise).
	Put(e *Entity, expectedVersion int64) error

	// Delete removes an instance, with the same expectedVersion contract
	// as Put. Deleting an unknown id returns EntityNotFound.
	Delete(entityType, id string, expectedVersion int64) error

	// Query executes q natively against the store. total is the count of
	// all matches ignoring Top/Skip, computed only when q.NeedCount.
	Query(entityType string, q *StoreQuery) (results []*Entity, total int64, err error)

	// CountByType returns the number of stored instances of a type.
	CountByType(entityType string) (int64, error)

	// PutLink persists a relationship instance.
	PutLink(l *Link) error

	// DeleteLink removes the link joining the two endpoints. found is
	// false when no such link exists.
	DeleteLink(aType, aID, bType, bID string) (found bool, err error)

	// LinksOf lists the links touching (entityType, id). An empty
	// otherType matches any opposite side.
	LinksOf(entityType, id, otherType string) ([]*Link, error)

	// CountLinks returns the number of links joining instances of typeA
	// and typeB. An empty typeB counts every link touching typeA.
	CountLinks(typeA, typeB string) (int64, error)
}

// SchemaStore persists schema declarations. The engine's registry loads the
// full set on startup and writes through on every schema-admin operation.
type SchemaStore interface {
	LoadSchema() (*SchemaSet, error)
	PutEntityType(et *EntityType) error
	DeleteEntityType(name string) error
	PutComplexType(ct *ComplexType) error
	DeleteComplexType(name string) error
	PutAssociation(a *Association) error
	DeleteAssociation(name string) error
}

// SchemaSet is the full declared schema as loaded from a SchemaStore.
type SchemaSet struct {
	EntityTypes  []*EntityType
	ComplexTypes []*ComplexType
	Associations []*Association
}

// SchemaProvider resolves schema definitions by name. Engine operations
// take an immutable snapshot per request; admin writes swap in a fresh one.
type SchemaProvider interface {
	EntityType(name string) (*EntityType, bool)
	ComplexType(name string) (*ComplexType, bool)

	// Association resolves the declared association between two entity
	// types, in either order.
	Association(typeA, typeB string) (*Association, bool)
}
