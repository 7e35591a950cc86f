package engine

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tessellate-io/strata/internal/memstore"
	"github.com/tessellate-io/strata/pkg/types"
)

func newTestRegistry(t *testing.T) (*Registry, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	r, err := NewRegistry(store, types.DefaultLimits(), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r, store
}

func TestDeclareEntityType(t *testing.T) {
	r, store := newTestRegistry(t)

	et := &types.EntityType{Name: "product", Properties: []*types.Property{
		{Name: "title", Type: types.EdmString, Nullable: false},
		{Name: "price", Type: types.EdmDouble, Nullable: true},
	}}
	if err := r.DeclareEntityType(et); err != nil {
		t.Fatalf("DeclareEntityType: %v", err)
	}

	got, ok := r.Snapshot().EntityType("product")
	if !ok || got.Property("title") == nil {
		t.Fatalf("snapshot missing declared type")
	}

	// Persisted through the schema store.
	set, err := store.LoadSchema()
	if err != nil || len(set.EntityTypes) != 1 {
		t.Fatalf("LoadSchema = %v, %v", set, err)
	}

	// Duplicate name conflicts.
	if err := r.DeclareEntityType(&types.EntityType{Name: "product"}); err == nil {
		t.Error("duplicate declaration accepted")
	}
}

func TestDeclareEntityTypeValidation(t *testing.T) {
	r, _ := newTestRegistry(t)

	tests := []struct {
		name string
		et   *types.EntityType
	}{
		{"reserved name", &types.EntityType{Name: "__system"}},
		{"bad name", &types.EntityType{Name: "1bad"}},
		{"duplicate property", &types.EntityType{Name: "x", Properties: []*types.Property{
			{Name: "p", Type: types.EdmString},
			{Name: "p", Type: types.EdmInt32},
		}}},
		{"unknown type", &types.EntityType{Name: "x", Properties: []*types.Property{
			{Name: "p", Type: "NoSuchComplex"},
		}}},
		{"bad collection kind", &types.EntityType{Name: "x", Properties: []*types.Property{
			{Name: "p", Type: types.EdmString, CollectionKind: "Bag"},
		}}},
		{"default fails coercion", &types.EntityType{Name: "x", Properties: []*types.Property{
			{Name: "p", Type: types.EdmInt32, DefaultValue: "not a number"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.DeclareEntityType(tt.et); err == nil {
				t.Errorf("declaration accepted")
			}
		})
	}
}

func TestDeclareEntityTypePropertyBudget(t *testing.T) {
	store := memstore.New()
	limits := types.DefaultLimits()
	limits.MaxPropertiesPerEntity = 3
	r, err := NewRegistry(store, limits, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	props := func(n int) []*types.Property {
		out := make([]*types.Property, n)
		for i := range out {
			out[i] = &types.Property{Name: "p" + string(rune('a'+i)), Type: types.EdmString, Nullable: true}
		}
		return out
	}
	if err := r.DeclareEntityType(&types.EntityType{Name: "ok", Properties: props(3)}); err != nil {
		t.Fatalf("at limit: %v", err)
	}
	err = r.DeclareEntityType(&types.EntityType{Name: "over", Properties: props(4)})
	if err == nil {
		t.Fatal("over limit accepted")
	}
	if !errors.Is(err, types.StructuralLimitExceeded(3)) {
		t.Errorf("error = %v", err)
	}
}

func TestDeleteEntityTypeReferencedByAssociation(t *testing.T) {
	r, _ := newTestRegistry(t)

	mustDeclare(t, r, "a")
	mustDeclare(t, r, "b")
	if err := r.DeclareAssociation(&types.Association{
		Name: "a-b",
		Ends: [2]types.AssociationEnd{
			{Name: "a", EntityType: "a", Multiplicity: types.MultiplicityMany},
			{Name: "b", EntityType: "b", Multiplicity: types.MultiplicityMany},
		},
	}); err != nil {
		t.Fatalf("DeclareAssociation: %v", err)
	}

	err := r.DeleteEntityType("a")
	if err == nil {
		t.Fatal("deletion accepted while association exists")
	}
	if !errors.Is(err, types.ConflictHasRelated("a")) {
		t.Errorf("error = %v", err)
	}

	if err := r.DeleteAssociation("a-b"); err != nil {
		t.Fatalf("DeleteAssociation: %v", err)
	}
	if err := r.DeleteEntityType("a"); err != nil {
		t.Fatalf("DeleteEntityType after association removed: %v", err)
	}
}

func TestComplexTypeLifecycle(t *testing.T) {
	r, _ := newTestRegistry(t)

	ct := &types.ComplexType{Name: "address", Properties: []*types.ComplexTypeProperty{
		{Name: "street", Type: types.EdmString, Nullable: false},
	}}
	if err := r.DeclareComplexType(ct); err != nil {
		t.Fatalf("DeclareComplexType: %v", err)
	}

	// Referenced by an entity type: deletion refused.
	if err := r.DeclareEntityType(&types.EntityType{Name: "person", Properties: []*types.Property{
		{Name: "home", Type: "address", Nullable: true},
	}}); err != nil {
		t.Fatalf("DeclareEntityType: %v", err)
	}
	if err := r.DeleteComplexType("address"); err == nil {
		t.Error("deletion accepted while referenced")
	}

	if err := r.DeleteEntityType("person"); err != nil {
		t.Fatalf("DeleteEntityType: %v", err)
	}
	if err := r.DeleteComplexType("address"); err != nil {
		t.Fatalf("DeleteComplexType: %v", err)
	}
}

func TestDeclareAssociationValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustDeclare(t, r, "a")
	mustDeclare(t, r, "b")

	// Invalid multiplicity.
	err := r.DeclareAssociation(&types.Association{
		Name: "bad",
		Ends: [2]types.AssociationEnd{
			{Name: "a", EntityType: "a", Multiplicity: "2"},
			{Name: "b", EntityType: "b", Multiplicity: types.MultiplicityMany},
		},
	})
	if err == nil {
		t.Fatal("invalid multiplicity accepted")
	}
	if !errors.Is(err, types.InvalidMultiplicity("2")) {
		t.Errorf("error = %v", err)
	}

	// Unknown entity type.
	if err := r.DeclareAssociation(&types.Association{
		Name: "ghost",
		Ends: [2]types.AssociationEnd{
			{Name: "a", EntityType: "a", Multiplicity: types.MultiplicityMany},
			{Name: "c", EntityType: "c", Multiplicity: types.MultiplicityMany},
		},
	}); err == nil {
		t.Error("unknown end type accepted")
	}

	// One association per pair.
	ok := &types.Association{
		Name: "a-b",
		Ends: [2]types.AssociationEnd{
			{Name: "a", EntityType: "a", Multiplicity: types.MultiplicityMany},
			{Name: "b", EntityType: "b", Multiplicity: types.MultiplicityMany},
		},
	}
	if err := r.DeclareAssociation(ok); err != nil {
		t.Fatalf("DeclareAssociation: %v", err)
	}
	dup := &types.Association{
		Name: "a-b-again",
		Ends: ok.Ends,
	}
	if err := r.DeclareAssociation(dup); err == nil {
		t.Error("second association for the same pair accepted")
	}

	// Resolvable from either direction.
	if _, found := r.Snapshot().Association("b", "a"); !found {
		t.Error("association not found in reverse order")
	}
}

func TestAddProperty(t *testing.T) {
	r, store := newTestRegistry(t)
	mustDeclare(t, r, "doc")

	if err := r.AddProperty("doc", &types.Property{Name: "title", Type: types.EdmString, Nullable: true}); err != nil {
		t.Fatalf("AddProperty: %v", err)
	}
	et, _ := r.Snapshot().EntityType("doc")
	if et.Property("title") == nil {
		t.Fatal("property not visible in snapshot")
	}

	// Persisted through the schema store.
	set, err := store.LoadSchema()
	if err != nil || len(set.EntityTypes[0].Properties) != 1 {
		t.Fatalf("LoadSchema = %v, %v", set, err)
	}

	// Duplicate name, unknown type and unknown target all fail.
	if err := r.AddProperty("doc", &types.Property{Name: "title", Type: types.EdmInt32}); !errors.Is(err, types.EntityAlreadyExists("title")) {
		t.Errorf("duplicate add = %v", err)
	}
	if err := r.AddProperty("doc", &types.Property{Name: "x", Type: "NoSuch"}); err == nil {
		t.Error("unknown type accepted")
	}
	if err := r.AddProperty("ghost", &types.Property{Name: "x", Type: types.EdmString}); !errors.Is(err, types.EntitySetNotFound("ghost")) {
		t.Errorf("unknown target = %v", err)
	}
}

func TestAddComplexTypeProperty(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.DeclareComplexType(&types.ComplexType{Name: "addr"}); err != nil {
		t.Fatalf("DeclareComplexType: %v", err)
	}

	if err := r.AddComplexTypeProperty("addr", &types.ComplexTypeProperty{Name: "street", Type: types.EdmString, Nullable: true}); err != nil {
		t.Fatalf("AddComplexTypeProperty: %v", err)
	}
	ct, _ := r.Snapshot().ComplexType("addr")
	if ct.Property("street") == nil {
		t.Fatal("property not visible in snapshot")
	}

	if err := r.AddComplexTypeProperty("addr", &types.ComplexTypeProperty{Name: "street", Type: types.EdmString}); err == nil {
		t.Error("duplicate add accepted")
	}
	if err := r.AddComplexTypeProperty("ghost", &types.ComplexTypeProperty{Name: "x", Type: types.EdmString}); !errors.Is(err, types.ComplexTypeNotFound("ghost")) {
		t.Errorf("unknown target = %v", err)
	}
}

func mustDeclare(t *testing.T, r *Registry, name string) {
	t.Helper()
	if err := r.DeclareEntityType(&types.EntityType{Name: name}); err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
}
