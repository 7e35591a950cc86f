package engine

import (
	"github.com/tessellate-io/strata/pkg/types"
)

// Schema-admin operations. Declarations delegate straight to the
// registry; deletions additionally consult the store so live data keeps
// its schema.

// DeclareEntityType declares a new entity type.
func (e *Engine) DeclareEntityType(et *types.EntityType) error {
	return e.registry.DeclareEntityType(et)
}

// DeleteEntityType removes an entity type declaration. Refused while
// instances of the type, links touching it, or associations naming it
// still exist.
func (e *Engine) DeleteEntityType(name string) error {
	n, err := e.store.CountByType(name)
	if err != nil {
		return err
	}
	if n > 0 {
		return types.ConflictHasRelated(name)
	}
	links, err := e.store.CountLinks(name, "")
	if err != nil {
		return err
	}
	if links > 0 {
		return types.ConflictHasRelated(name)
	}
	return e.registry.DeleteEntityType(name)
}

// AddProperty appends a property declaration to an existing entity type.
// Existing instances are untouched; they pick up the declaration on their
// next write.
func (e *Engine) AddProperty(entityType string, p *types.Property) error {
	return e.registry.AddProperty(entityType, p)
}

// AddComplexTypeProperty appends a property declaration to an existing
// complex type.
func (e *Engine) AddComplexTypeProperty(complexType string, p *types.ComplexTypeProperty) error {
	return e.registry.AddComplexTypeProperty(complexType, p)
}

// DeclareComplexType declares a new complex type.
func (e *Engine) DeclareComplexType(ct *types.ComplexType) error {
	return e.registry.DeclareComplexType(ct)
}

// DeleteComplexType removes a complex type declaration unless another
// declaration still references it.
func (e *Engine) DeleteComplexType(name string) error {
	return e.registry.DeleteComplexType(name)
}

// DeclareAssociation declares a relationship between two entity types.
func (e *Engine) DeclareAssociation(a *types.Association) error {
	return e.registry.DeclareAssociation(a)
}

// DeleteAssociation removes an association declaration. Refused while
// links still exist through it.
func (e *Engine) DeleteAssociation(name string) error {
	a, ok := e.registry.AssociationByName(name)
	if !ok {
		return types.NavPropNotFound(name)
	}
	n, err := e.store.CountLinks(a.Ends[0].EntityType, a.Ends[1].EntityType)
	if err != nil {
		return err
	}
	if n > 0 {
		return types.ConflictHasRelated(name)
	}
	return e.registry.DeleteAssociation(name)
}
