package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tessellate-io/strata/pkg/types"
)

// Registry owns the declared schema. Reads go through an immutable
// snapshot swapped atomically on every admin write, so data operations
// never observe a half-applied schema change. Admin writes persist
// through the SchemaStore before the snapshot advances.
type Registry struct {
	store  types.SchemaStore
	limits types.Limits
	log    *zap.SugaredLogger

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// snapshot is one immutable view of the declared schema.
type snapshot struct {
	entityTypes  map[string]*types.EntityType
	complexTypes map[string]*types.ComplexType
	associations map[string]*types.Association
}

var _ types.SchemaProvider = (*snapshot)(nil)

func (s *snapshot) EntityType(name string) (*types.EntityType, bool) {
	et, ok := s.entityTypes[name]
	return et, ok
}

func (s *snapshot) ComplexType(name string) (*types.ComplexType, bool) {
	ct, ok := s.complexTypes[name]
	return ct, ok
}

func (s *snapshot) Association(typeA, typeB string) (*types.Association, bool) {
	for _, a := range s.associations {
		if a.End(typeA) != nil && a.OtherEnd(typeA) != nil && a.OtherEnd(typeA).EntityType == typeB {
			return a, true
		}
	}
	return nil, false
}

func (s *snapshot) clone() *snapshot {
	n := &snapshot{
		entityTypes:  make(map[string]*types.EntityType, len(s.entityTypes)),
		complexTypes: make(map[string]*types.ComplexType, len(s.complexTypes)),
		associations: make(map[string]*types.Association, len(s.associations)),
	}
	for k, v := range s.entityTypes {
		n.entityTypes[k] = v
	}
	for k, v := range s.complexTypes {
		n.complexTypes[k] = v
	}
	for k, v := range s.associations {
		n.associations[k] = v
	}
	return n
}

// NewRegistry loads the persisted schema and builds the initial snapshot.
func NewRegistry(store types.SchemaStore, limits types.Limits, log *zap.SugaredLogger) (*Registry, error) {
	set, err := store.LoadSchema()
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		entityTypes:  make(map[string]*types.EntityType, len(set.EntityTypes)),
		complexTypes: make(map[string]*types.ComplexType, len(set.ComplexTypes)),
		associations: make(map[string]*types.Association, len(set.Associations)),
	}
	for _, et := range set.EntityTypes {
		s.entityTypes[et.Name] = et
	}
	for _, ct := range set.ComplexTypes {
		s.complexTypes[ct.Name] = ct
	}
	for _, a := range set.Associations {
		s.associations[a.Name] = a
	}
	r := &Registry{store: store, limits: limits, log: log}
	r.snap.Store(s)
	r.log.Infow("schema loaded",
		"entity_types", len(s.entityTypes),
		"complex_types", len(s.complexTypes),
		"associations", len(s.associations))
	return r, nil
}

// Snapshot returns the current immutable schema view.
func (r *Registry) Snapshot() types.SchemaProvider {
	return r.snap.Load()
}

// DeclareEntityType validates and persists a new entity type.
func (r *Registry) DeclareEntityType(et *types.EntityType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	if !ValidName(et.Name) {
		return types.RequestFieldFormatError("Name")
	}
	if _, exists := s.entityTypes[et.Name]; exists {
		return types.EntityAlreadyExists(et.Name)
	}
	if len(et.Properties) > r.limits.MaxPropertiesPerEntity {
		return types.StructuralLimitExceeded(r.limits.MaxPropertiesPerEntity)
	}
	seen := make(map[string]bool, len(et.Properties))
	for _, p := range et.Properties {
		if !validCollectionKind(p.CollectionKind) {
			return types.RequestFieldFormatError("CollectionKind")
		}
		if err := r.validateDecl(s, declOf(p)); err != nil {
			return err
		}
		if seen[p.Name] {
			return types.EntityAlreadyExists(p.Name)
		}
		seen[p.Name] = true
	}

	if err := r.store.PutEntityType(et); err != nil {
		return err
	}
	next := s.clone()
	next.entityTypes[et.Name] = et
	r.snap.Store(next)
	r.log.Infow("entity type declared", "name", et.Name, "properties", len(et.Properties))
	return nil
}

// AddProperty appends a property declaration to an existing entity type.
func (r *Registry) AddProperty(entityType string, p *types.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	et, ok := s.entityTypes[entityType]
	if !ok {
		return types.EntitySetNotFound(entityType)
	}
	if et.Property(p.Name) != nil {
		return types.EntityAlreadyExists(p.Name)
	}
	if len(et.Properties) >= r.limits.MaxPropertiesPerEntity {
		return types.StructuralLimitExceeded(r.limits.MaxPropertiesPerEntity)
	}
	if !validCollectionKind(p.CollectionKind) {
		return types.RequestFieldFormatError("CollectionKind")
	}
	if err := r.validateDecl(s, declOf(p)); err != nil {
		return err
	}

	next := &types.EntityType{
		Name:       et.Name,
		Properties: append(append([]*types.Property(nil), et.Properties...), p),
	}
	if err := r.store.PutEntityType(next); err != nil {
		return err
	}
	ns := s.clone()
	ns.entityTypes[next.Name] = next
	r.snap.Store(ns)
	r.log.Infow("property added", "entity_type", entityType, "name", p.Name, "type", p.Type)
	return nil
}

// DeleteEntityType removes a declared entity type. Types still referenced
// by an association cannot be deleted; the caller is responsible for
// refusing deletion while live instances exist.
func (r *Registry) DeleteEntityType(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	if _, ok := s.entityTypes[name]; !ok {
		return types.EntitySetNotFound(name)
	}
	for _, a := range s.associations {
		if a.End(name) != nil {
			return types.ConflictHasRelated(name)
		}
	}

	if err := r.store.DeleteEntityType(name); err != nil {
		return err
	}
	next := s.clone()
	delete(next.entityTypes, name)
	r.snap.Store(next)
	r.log.Infow("entity type deleted", "name", name)
	return nil
}

// DeclareComplexType validates and persists a new complex type.
func (r *Registry) DeclareComplexType(ct *types.ComplexType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	if !ValidName(ct.Name) {
		return types.RequestFieldFormatError("Name")
	}
	if types.IsEdmType(ct.Name) {
		return types.RequestFieldFormatError("Name")
	}
	if _, exists := s.complexTypes[ct.Name]; exists {
		return types.EntityAlreadyExists(ct.Name)
	}
	if len(ct.Properties) > r.limits.MaxPropertiesPerEntity {
		return types.StructuralLimitExceeded(r.limits.MaxPropertiesPerEntity)
	}
	seen := make(map[string]bool, len(ct.Properties))
	for _, p := range ct.Properties {
		if !validCollectionKind(p.CollectionKind) {
			return types.RequestFieldFormatError("CollectionKind")
		}
		if err := r.validateDecl(s, ctpDeclOf(p)); err != nil {
			return err
		}
		if seen[p.Name] {
			return types.EntityAlreadyExists(p.Name)
		}
		seen[p.Name] = true
	}

	if err := r.store.PutComplexType(ct); err != nil {
		return err
	}
	next := s.clone()
	next.complexTypes[ct.Name] = ct
	r.snap.Store(next)
	r.log.Infow("complex type declared", "name", ct.Name, "properties", len(ct.Properties))
	return nil
}

// AddComplexTypeProperty appends a property declaration to an existing
// complex type.
func (r *Registry) AddComplexTypeProperty(complexType string, p *types.ComplexTypeProperty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	ct, ok := s.complexTypes[complexType]
	if !ok {
		return types.ComplexTypeNotFound(complexType)
	}
	if ct.Property(p.Name) != nil {
		return types.EntityAlreadyExists(p.Name)
	}
	if len(ct.Properties) >= r.limits.MaxPropertiesPerEntity {
		return types.StructuralLimitExceeded(r.limits.MaxPropertiesPerEntity)
	}
	if !validCollectionKind(p.CollectionKind) {
		return types.RequestFieldFormatError("CollectionKind")
	}
	if err := r.validateDecl(s, ctpDeclOf(p)); err != nil {
		return err
	}

	next := &types.ComplexType{
		Name:       ct.Name,
		Properties: append(append([]*types.ComplexTypeProperty(nil), ct.Properties...), p),
	}
	if err := r.store.PutComplexType(next); err != nil {
		return err
	}
	ns := s.clone()
	ns.complexTypes[next.Name] = next
	r.snap.Store(ns)
	r.log.Infow("complex type property added", "complex_type", complexType, "name", p.Name)
	return nil
}

// DeleteComplexType removes a declared complex type unless a property of
// any entity type or complex type still uses it.
func (r *Registry) DeleteComplexType(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	if _, ok := s.complexTypes[name]; !ok {
		return types.ComplexTypeNotFound(name)
	}
	for _, et := range s.entityTypes {
		for _, p := range et.Properties {
			if p.Type == name {
				return types.ConflictHasRelated(name)
			}
		}
	}
	for _, ct := range s.complexTypes {
		for _, p := range ct.Properties {
			if p.Type == name {
				return types.ConflictHasRelated(name)
			}
		}
	}

	if err := r.store.DeleteComplexType(name); err != nil {
		return err
	}
	next := s.clone()
	delete(next.complexTypes, name)
	r.snap.Store(next)
	r.log.Infow("complex type deleted", "name", name)
	return nil
}

// DeclareAssociation validates and persists a relationship declaration
// between two already-declared entity types. At most one association may
// exist per entity-type pair.
func (r *Registry) DeclareAssociation(a *types.Association) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	if !ValidName(a.Name) {
		return types.RequestFieldFormatError("Name")
	}
	if _, exists := s.associations[a.Name]; exists {
		return types.EntityAlreadyExists(a.Name)
	}
	for i := range a.Ends {
		end := &a.Ends[i]
		if !types.ValidMultiplicity(end.Multiplicity) {
			return types.InvalidMultiplicity(end.Multiplicity)
		}
		if _, ok := s.entityTypes[end.EntityType]; !ok {
			return types.EntitySetNotFound(end.EntityType)
		}
	}
	if _, exists := s.Association(a.Ends[0].EntityType, a.Ends[1].EntityType); exists {
		return types.EntityAlreadyExists(a.Name)
	}

	if err := r.store.PutAssociation(a); err != nil {
		return err
	}
	next := s.clone()
	next.associations[a.Name] = a
	r.snap.Store(next)
	r.log.Infow("association declared",
		"name", a.Name,
		"ends", []string{a.Ends[0].EntityType, a.Ends[1].EntityType})
	return nil
}

// DeleteAssociation removes a declared association by name. The caller is
// responsible for refusing deletion while links exist through it.
func (r *Registry) DeleteAssociation(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Load()

	if _, ok := s.associations[name]; !ok {
		return types.NavPropNotFound(name)
	}

	if err := r.store.DeleteAssociation(name); err != nil {
		return err
	}
	next := s.clone()
	delete(next.associations, name)
	r.snap.Store(next)
	r.log.Infow("association deleted", "name", name)
	return nil
}

// AssociationByName resolves a declared association by its name.
func (r *Registry) AssociationByName(name string) (*types.Association, bool) {
	a, ok := r.snap.Load().associations[name]
	return a, ok
}

// validCollectionKind accepts the declared kinds plus the empty string,
// which normalizes to a scalar.
func validCollectionKind(k string) bool {
	return k == "" || k == types.CollectionKindNone || k == types.CollectionKindList
}

// validateDecl checks one property declaration: a usable name, a resolvable
// type, a recognized collection kind, and a default that coerces under the
// declared type. Defaults are only allowed on scalar primitive properties.
func (r *Registry) validateDecl(s *snapshot, d propDecl) error {
	if !ValidName(d.name) {
		return types.RequestFieldFormatError("Name")
	}
	if !types.IsEdmType(d.typ) {
		if _, ok := s.complexTypes[d.typ]; !ok {
			return types.ComplexTypeNotFound(d.typ)
		}
	}
	if d.def != nil {
		if d.list || !types.IsEdmType(d.typ) {
			return types.RequestFieldFormatError(d.name)
		}
		c := &coercer{schema: s, limits: r.limits, now: time.Now()}
		if _, err := c.coerceScalar(d.name, d.typ, d.def); err != nil {
			return err
		}
	}
	return nil
}
