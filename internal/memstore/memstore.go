// Package memstore provides an in-memory EntityStore and SchemaStore.
// It is the correctness reference for query evaluation (straight scans
// with Filter.Match) and the default backend for tests and throwaway
// runs; nothing survives process exit.
package memstore

import (
	"sort"
	"sync"

	"github.com/tessellate-io/strata/pkg/types"
)

// Store holds all state behind one mutex. Operations deep-copy entities
// on the way in and out so callers can never alias stored state.
type Store struct {
	mu       sync.RWMutex
	entities map[string]map[string]*types.Entity // type -> id -> entity
	links    []*types.Link
	schema   types.SchemaSet
}

var (
	_ types.EntityStore = (*Store)(nil)
	_ types.SchemaStore = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{entities: make(map[string]map[string]*types.Entity)}
}

// Get implements EntityStore.
func (s *Store) Get(entityType, id string) (*types.Entity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityType][id]
	if !ok {
		return nil, false, nil
	}
	return e.Clone(), true, nil
}

// Put implements EntityStore. expectedVersion 0 requires the id to be
// unused; a positive expectedVersion is compare-and-swap on Version.
func (s *Store) Put(e *types.Entity, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.entities[e.Type]
	if byID == nil {
		byID = make(map[string]*types.Entity)
		s.entities[e.Type] = byID
	}
	cur, exists := byID[e.ID]
	if expectedVersion == 0 {
		if exists {
			return types.EntityAlreadyExists(e.ID)
		}
	} else {
		if !exists {
			return types.EntityNotFound(e.ID)
		}
		if cur.Version != expectedVersion {
			return types.PreconditionFailedStale()
		}
	}
	byID[e.ID] = e.Clone()
	return nil
}

// Delete implements EntityStore with the same version contract as Put.
func (s *Store) Delete(entityType, id string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.entities[entityType][id]
	if !exists {
		return types.EntityNotFound(id)
	}
	if expectedVersion != 0 && cur.Version != expectedVersion {
		return types.PreconditionFailedStale()
	}
	delete(s.entities[entityType], id)
	return nil
}

// Query implements EntityStore by scanning all instances of the type
// through Filter.Match, sorting, then paging.
func (s *Store) Query(entityType string, q *types.StoreQuery) ([]*types.Entity, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idSet map[string]bool
	if q.IDs != nil {
		idSet = make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			idSet[id] = true
		}
	}

	var matched []*types.Entity
	for id, e := range s.entities[entityType] {
		if idSet != nil && !idSet[id] {
			continue
		}
		if q.Filter != nil && !q.Filter.Match(e) {
			continue
		}
		matched = append(matched, e)
	}

	sortEntities(matched, q.Sort)

	total := int64(len(matched))
	if q.Skip > 0 {
		if q.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Skip:]
		}
	}
	if q.Top >= 0 && q.Top < len(matched) {
		matched = matched[:q.Top]
	}

	out := make([]*types.Entity, len(matched))
	for i, e := range matched {
		out[i] = e.Clone()
	}
	return out, total, nil
}

// sortEntities orders by the sort property with id as the tiebreak, or
// by id alone when no sort is requested.
func sortEntities(es []*types.Entity, spec *types.SortSpec) {
	sort.Slice(es, func(i, j int) bool {
		if spec != nil {
			a, b := es[i].Properties[spec.Property], es[j].Properties[spec.Property]
			if !types.EqualValues(a, b) {
				if spec.Descending {
					return types.LessValues(b, a)
				}
				return types.LessValues(a, b)
			}
		}
		return es[i].ID < es[j].ID
	})
}

// CountByType implements EntityStore.
func (s *Store) CountByType(entityType string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entities[entityType])), nil
}

// PutLink implements EntityStore.
func (s *Store) PutLink(l *types.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.links = append(s.links, &cp)
	return nil
}

// DeleteLink implements EntityStore.
func (s *Store) DeleteLink(aType, aID, bType, bID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.links {
		if l.Joins(aType, aID, bType, bID) {
			s.links = append(s.links[:i], s.links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// LinksOf implements EntityStore.
func (s *Store) LinksOf(entityType, id, otherType string) ([]*types.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Link
	for _, l := range s.links {
		oType, _, ok := l.Opposite(entityType, id)
		if !ok {
			continue
		}
		if otherType != "" && oType != otherType {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

// CountLinks implements EntityStore.
func (s *Store) CountLinks(typeA, typeB string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, l := range s.links {
		switch {
		case l.FromType == typeA:
			if typeB == "" || l.ToType == typeB {
				n++
			}
		case l.ToType == typeA:
			if typeB == "" || l.FromType == typeB {
				n++
			}
		}
	}
	return n, nil
}

// LoadSchema implements SchemaStore.
func (s *Store) LoadSchema() (*types.SchemaSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := &types.SchemaSet{
		EntityTypes:  append([]*types.EntityType(nil), s.schema.EntityTypes...),
		ComplexTypes: append([]*types.ComplexType(nil), s.schema.ComplexTypes...),
		Associations: append([]*types.Association(nil), s.schema.Associations...),
	}
	return set, nil
}

// PutEntityType implements SchemaStore.
func (s *Store) PutEntityType(et *types.EntityType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.schema.EntityTypes {
		if cur.Name == et.Name {
			s.schema.EntityTypes[i] = et
			return nil
		}
	}
	s.schema.EntityTypes = append(s.schema.EntityTypes, et)
	return nil
}

// DeleteEntityType implements SchemaStore.
func (s *Store) DeleteEntityType(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.schema.EntityTypes {
		if cur.Name == name {
			s.schema.EntityTypes = append(s.schema.EntityTypes[:i], s.schema.EntityTypes[i+1:]...)
			return nil
		}
	}
	return nil
}

// PutComplexType implements SchemaStore.
func (s *Store) PutComplexType(ct *types.ComplexType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.schema.ComplexTypes {
		if cur.Name == ct.Name {
			s.schema.ComplexTypes[i] = ct
			return nil
		}
	}
	s.schema.ComplexTypes = append(s.schema.ComplexTypes, ct)
	return nil
}

// DeleteComplexType implements SchemaStore.
func (s *Store) DeleteComplexType(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.schema.ComplexTypes {
		if cur.Name == name {
			s.schema.ComplexTypes = append(s.schema.ComplexTypes[:i], s.schema.ComplexTypes[i+1:]...)
			return nil
		}
	}
	return nil
}

// PutAssociation implements SchemaStore.
func (s *Store) PutAssociation(a *types.Association) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.schema.Associations {
		if cur.Name == a.Name {
			s.schema.Associations[i] = a
			return nil
		}
	}
	s.schema.Associations = append(s.schema.Associations, a)
	return nil
}

// DeleteAssociation implements SchemaStore.
func (s *Store) DeleteAssociation(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.schema.Associations {
		if cur.Name == name {
			s.schema.Associations = append(s.schema.Associations[:i], s.schema.Associations[i+1:]...)
			return nil
		}
	}
	return nil
}
