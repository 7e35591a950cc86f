package engine

import (
	"strings"

	"github.com/tessellate-io/strata/pkg/types"
)

// NavTargetType resolves a navigation-property name ("_Child") to the
// entity type it traverses to.
func NavTargetType(navProp string) (string, bool) {
	if !strings.HasPrefix(navProp, "_") || len(navProp) < 2 {
		return "", false
	}
	return navProp[1:], true
}

// CreateLink joins two existing instances through their declared
// association, enforcing the multiplicity contract on both sides.
func (e *Engine) CreateLink(srcType, srcID, tgtType, tgtID string) error {
	schema := e.registry.Snapshot()
	assoc, err := e.resolveLinkEndpoints(schema, srcType, tgtType)
	if err != nil {
		return err
	}
	if err := e.requireEntity(srcType, srcID); err != nil {
		return err
	}
	if err := e.requireEntity(tgtType, tgtID); err != nil {
		return err
	}
	if err := e.checkCardinality(assoc, srcType, srcID, tgtType, tgtID); err != nil {
		return err
	}

	l := &types.Link{
		LinkID:    e.newID(),
		FromType:  srcType,
		FromID:    srcID,
		ToType:    tgtType,
		ToID:      tgtID,
		CreatedAt: e.now(),
	}
	if err := e.store.PutLink(l); err != nil {
		return err
	}
	e.log.Debugw("link created", "src", srcType+":"+srcID, "tgt", tgtType+":"+tgtID)
	return nil
}

// DeleteLink removes the relationship between two instances. The
// endpoints themselves are untouched. A pair of types with no declared
// association is a client error, not a missing resource.
func (e *Engine) DeleteLink(srcType, srcID, tgtType, tgtID string) error {
	schema := e.registry.Snapshot()
	if _, err := e.resolveLinkEndpoints(schema, srcType, tgtType); err != nil {
		return err
	}
	found, err := e.store.DeleteLink(srcType, srcID, tgtType, tgtID)
	if err != nil {
		return err
	}
	if !found {
		return types.EntityNotFound(tgtID)
	}
	e.log.Debugw("link deleted", "src", srcType+":"+srcID, "tgt", tgtType+":"+tgtID)
	return nil
}

// ListLinked lists the opposite-side instances reachable from
// (srcType, srcID) through the navigation property, honoring the usual
// query options.
func (e *Engine) ListLinked(srcType, srcID, navProp string, opts QueryOptions) (*ListResult, error) {
	schema := e.registry.Snapshot()
	tgtType, ok := NavTargetType(navProp)
	if !ok {
		return nil, types.NavPropNotFound(navProp)
	}
	tgtET, ok := schema.EntityType(tgtType)
	if !ok {
		return nil, types.NavPropNotFound(navProp)
	}
	if _, ok := schema.EntityType(srcType); !ok {
		return nil, types.EntitySetNotFound(srcType)
	}
	if _, ok := schema.Association(srcType, tgtType); !ok {
		return nil, types.NavPropNotFound(navProp)
	}
	if err := e.requireEntity(srcType, srcID); err != nil {
		return nil, err
	}

	links, err := e.store.LinksOf(srcType, srcID, tgtType)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		if _, oid, ok := l.Opposite(srcType, srcID); ok {
			ids = append(ids, oid)
		}
	}

	q, verr := BuildQuery(tgtET, e.limits, opts)
	if verr != nil {
		return nil, verr
	}
	q.IDs = ids

	results, total, err := e.store.Query(tgtType, q)
	if err != nil {
		return nil, err
	}
	lr := &ListResult{Entities: results}
	if q.NeedCount {
		lr.Count = &total
	}
	return lr, nil
}

// CreateEntityViaNavProp creates a child instance through a navigation
// property and links it to the source in one compound operation. Failure
// at any step leaves neither the child nor the link visible: the
// cardinality check runs before the child persists, and a link failure
// triggers a compensating delete of the just-written child.
func (e *Engine) CreateEntityViaNavProp(srcType, srcID, navProp string, payload map[string]any) (*Result, error) {
	schema := e.registry.Snapshot()
	// A key predicate on the navigation segment never makes sense on a
	// create: the new instance has no key yet.
	if strings.ContainsRune(navProp, '(') {
		return nil, types.KeyForNavPropNotAllowed(navProp)
	}
	tgtType, ok := NavTargetType(navProp)
	if !ok {
		return nil, types.NavPropNotFound(navProp)
	}
	tgtET, ok := schema.EntityType(tgtType)
	if !ok {
		return nil, types.NavPropNotFound(navProp)
	}
	if _, ok := schema.EntityType(srcType); !ok {
		return nil, types.EntitySetNotFound(srcType)
	}
	assoc, ok := schema.Association(srcType, tgtType)
	if !ok {
		return nil, types.NavPropNotFound(navProp)
	}
	if err := e.requireEntity(srcType, srcID); err != nil {
		return nil, err
	}

	id, verr := e.payloadID(payload)
	if verr != nil {
		return nil, verr
	}
	if id == "" {
		id = e.newID()
	}
	props, verr := e.buildProperties(schema, tgtET, payload, nil)
	if verr != nil {
		return nil, verr
	}
	if err := e.checkUnique(tgtET, tgtType, id, props); err != nil {
		return nil, err
	}
	if err := e.checkCardinality(assoc, srcType, srcID, tgtType, id); err != nil {
		return nil, err
	}

	now := e.now()
	child := &types.Entity{
		ID:         id,
		Type:       tgtType,
		Properties: props,
		Published:  now,
		Updated:    now,
		Version:    1,
	}
	if err := e.store.Put(child, 0); err != nil {
		return nil, err
	}

	l := &types.Link{
		LinkID:    e.newID(),
		FromType:  srcType,
		FromID:    srcID,
		ToType:    tgtType,
		ToID:      id,
		CreatedAt: now,
	}
	if err := e.store.PutLink(l); err != nil {
		// Roll the child back so a failed compound create leaves no
		// partial state behind.
		if derr := e.store.Delete(tgtType, id, child.Version); derr != nil {
			e.log.Errorw("compensating delete failed", "type", tgtType, "id", id, "error", derr)
		}
		return nil, err
	}
	e.log.Debugw("entity created via navigation property",
		"src", srcType+":"+srcID, "nav", navProp, "id", id)
	return e.result(child), nil
}

// resolveLinkEndpoints validates both entity types and the declared
// association for a link operation.
func (e *Engine) resolveLinkEndpoints(schema types.SchemaProvider, srcType, tgtType string) (*types.Association, error) {
	if _, ok := schema.EntityType(srcType); !ok {
		return nil, types.EntitySetNotFound(srcType)
	}
	if _, ok := schema.EntityType(tgtType); !ok {
		return nil, types.EntitySetNotFound(tgtType)
	}
	assoc, ok := schema.Association(srcType, tgtType)
	if !ok {
		return nil, types.NoSuchAssociation(srcType, tgtType)
	}
	return assoc, nil
}

func (e *Engine) requireEntity(entityType, id string) error {
	_, found, err := e.store.Get(entityType, id)
	if err != nil {
		return err
	}
	if !found {
		return types.EntityNotFound(id)
	}
	return nil
}

// checkCardinality enforces the multiplicity contract before a link is
// written. A "1" or "0..1" end means its attached instance tolerates at
// most one partner on the opposite side, so both directions are checked.
// An exact duplicate of an existing link is always a conflict.
func (e *Engine) checkCardinality(assoc *types.Association, srcType, srcID, tgtType, tgtID string) error {
	srcLinks, err := e.store.LinksOf(srcType, srcID, tgtType)
	if err != nil {
		return err
	}
	for _, l := range srcLinks {
		if l.Joins(srcType, srcID, tgtType, tgtID) {
			return types.ConflictLinks()
		}
	}

	tgtEnd := assoc.OtherEnd(srcType)
	if tgtEnd != nil && tgtEnd.Multiplicity != types.MultiplicityMany && len(srcLinks) > 0 {
		return types.ConflictLinks()
	}

	srcEnd := assoc.End(srcType)
	if srcEnd != nil && srcEnd.Multiplicity != types.MultiplicityMany {
		tgtLinks, err := e.store.LinksOf(tgtType, tgtID, srcType)
		if err != nil {
			return err
		}
		if len(tgtLinks) > 0 {
			return types.ConflictLinks()
		}
	}
	return nil
}
