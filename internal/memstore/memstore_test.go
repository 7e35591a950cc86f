package memstore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tessellate-io/strata/pkg/types"
)

func ent(typ, id string, version int64, props map[string]any) *types.Entity {
	if props == nil {
		props = map[string]any{}
	}
	return &types.Entity{
		ID:         id,
		Type:       typ,
		Properties: props,
		Published:  time.UnixMilli(1000).UTC(),
		Updated:    time.UnixMilli(1000).UTC(),
		Version:    version,
	}
}

func TestPutVersionContract(t *testing.T) {
	s := New()

	if err := s.Put(ent("doc", "a", 1, nil), 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Create against a used id conflicts.
	if err := s.Put(ent("doc", "a", 1, nil), 0); !errors.Is(err, types.EntityAlreadyExists("a")) {
		t.Errorf("duplicate create = %v", err)
	}
	// CAS against the wrong version is stale.
	if err := s.Put(ent("doc", "a", 2, nil), 9); !errors.Is(err, types.PreconditionFailedStale()) {
		t.Errorf("stale put = %v", err)
	}
	// CAS against a missing id.
	if err := s.Put(ent("doc", "b", 2, nil), 1); !errors.Is(err, types.EntityNotFound("b")) {
		t.Errorf("put missing = %v", err)
	}
	// CAS against the right version replaces.
	if err := s.Put(ent("doc", "a", 2, map[string]any{"k": "v"}), 1); err != nil {
		t.Fatalf("cas put: %v", err)
	}
	got, found, err := s.Get("doc", "a")
	if err != nil || !found || got.Version != 2 || got.Properties["k"] != "v" {
		t.Errorf("get after cas = %+v, %v, %v", got, found, err)
	}
}

func TestDeleteVersionContract(t *testing.T) {
	s := New()
	if err := s.Put(ent("doc", "a", 3, nil), 0); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Delete("doc", "a", 2); !errors.Is(err, types.PreconditionFailedStale()) {
		t.Errorf("stale delete = %v", err)
	}
	if err := s.Delete("doc", "a", 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("doc", "a", 3); !errors.Is(err, types.EntityNotFound("a")) {
		t.Errorf("delete missing = %v", err)
	}
	if _, found, _ := s.Get("doc", "a"); found {
		t.Error("entity still present after delete")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	if err := s.Put(ent("doc", "a", 1, map[string]any{"k": "v"}), 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _, _ := s.Get("doc", "a")
	got.Properties["k"] = "mutated"

	again, _, _ := s.Get("doc", "a")
	if again.Properties["k"] != "v" {
		t.Error("stored state aliased by caller mutation")
	}
}

func TestQuery(t *testing.T) {
	s := New()
	for i := 0; i < 6; i++ {
		e := ent("doc", fmt.Sprintf("id-%d", i), 1, map[string]any{
			"rank": int64(i),
			"name": fmt.Sprintf("doc %d", i),
		})
		if err := s.Put(e, 0); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	// No constraints: id order, full count.
	got, total, err := s.Query("doc", &types.StoreQuery{Top: -1})
	if err != nil || total != 6 || len(got) != 6 {
		t.Fatalf("scan = %d/%d, %v", len(got), total, err)
	}
	if got[0].ID != "id-0" || got[5].ID != "id-5" {
		t.Errorf("default order = %s..%s", got[0].ID, got[5].ID)
	}

	// Filter.
	got, _, err = s.Query("doc", &types.StoreQuery{
		Top:    -1,
		Filter: &types.EqFilter{Property: "rank", Value: int64(3)},
	})
	if err != nil || len(got) != 1 || got[0].ID != "id-3" {
		t.Errorf("filtered = %v, %v", got, err)
	}

	// Sort descending with paging; total ignores paging.
	got, total, err = s.Query("doc", &types.StoreQuery{
		Sort: &types.SortSpec{Property: "rank", Descending: true},
		Skip: 1,
		Top:  2,
	})
	if err != nil {
		t.Fatalf("paged query: %v", err)
	}
	if total != 6 {
		t.Errorf("total = %d", total)
	}
	if len(got) != 2 || got[0].ID != "id-4" || got[1].ID != "id-3" {
		t.Errorf("page = %v", got)
	}

	// Top zero yields an empty page but the true total.
	got, total, _ = s.Query("doc", &types.StoreQuery{Top: 0})
	if len(got) != 0 || total != 6 {
		t.Errorf("top zero = %d/%d", len(got), total)
	}

	// Skip past the end.
	got, _, _ = s.Query("doc", &types.StoreQuery{Top: -1, Skip: 10})
	if len(got) != 0 {
		t.Errorf("skip past end = %v", got)
	}

	// ID restriction.
	got, total, _ = s.Query("doc", &types.StoreQuery{Top: -1, IDs: []string{"id-1", "id-4", "absent"}})
	if total != 2 || len(got) != 2 || got[0].ID != "id-1" || got[1].ID != "id-4" {
		t.Errorf("ids = %v (%d)", got, total)
	}
}

func TestCountByType(t *testing.T) {
	s := New()
	if n, _ := s.CountByType("doc"); n != 0 {
		t.Errorf("empty count = %d", n)
	}
	_ = s.Put(ent("doc", "a", 1, nil), 0)
	_ = s.Put(ent("doc", "b", 1, nil), 0)
	_ = s.Put(ent("other", "c", 1, nil), 0)
	if n, _ := s.CountByType("doc"); n != 2 {
		t.Errorf("count = %d", n)
	}
}

func TestLinks(t *testing.T) {
	s := New()
	link := func(id, ft, fi, tt, ti string) {
		if err := s.PutLink(&types.Link{LinkID: id, FromType: ft, FromID: fi, ToType: tt, ToID: ti}); err != nil {
			t.Fatalf("PutLink %s: %v", id, err)
		}
	}
	link("l1", "person", "p1", "task", "t1")
	link("l2", "person", "p1", "task", "t2")
	link("l3", "person", "p1", "note", "n1")

	ls, err := s.LinksOf("person", "p1", "")
	if err != nil || len(ls) != 3 {
		t.Fatalf("all links = %v, %v", ls, err)
	}
	ls, _ = s.LinksOf("person", "p1", "task")
	if len(ls) != 2 {
		t.Errorf("task links = %v", ls)
	}
	// Orientation does not matter for lookup.
	ls, _ = s.LinksOf("task", "t1", "person")
	if len(ls) != 1 || ls[0].LinkID != "l1" {
		t.Errorf("reverse lookup = %v", ls)
	}

	if n, _ := s.CountLinks("person", ""); n != 3 {
		t.Errorf("count person = %d", n)
	}
	if n, _ := s.CountLinks("task", "person"); n != 2 {
		t.Errorf("count task-person = %d", n)
	}

	// Delete works from either orientation.
	found, _ := s.DeleteLink("task", "t1", "person", "p1")
	if !found {
		t.Fatal("reversed delete missed")
	}
	found, _ = s.DeleteLink("person", "p1", "task", "t1")
	if found {
		t.Error("second delete found the link again")
	}
	if n, _ := s.CountLinks("person", "task"); n != 1 {
		t.Errorf("count after delete = %d", n)
	}
}

func TestSchemaStore(t *testing.T) {
	s := New()

	et := &types.EntityType{Name: "doc"}
	if err := s.PutEntityType(et); err != nil {
		t.Fatalf("PutEntityType: %v", err)
	}
	// Re-put replaces, not appends.
	if err := s.PutEntityType(&types.EntityType{Name: "doc", Properties: []*types.Property{
		{Name: "p", Type: types.EdmString},
	}}); err != nil {
		t.Fatalf("PutEntityType again: %v", err)
	}
	_ = s.PutComplexType(&types.ComplexType{Name: "addr"})
	_ = s.PutAssociation(&types.Association{Name: "a"})

	set, err := s.LoadSchema()
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if len(set.EntityTypes) != 1 || len(set.EntityTypes[0].Properties) != 1 {
		t.Errorf("entity types = %v", set.EntityTypes)
	}
	if len(set.ComplexTypes) != 1 || len(set.Associations) != 1 {
		t.Errorf("schema = %+v", set)
	}

	_ = s.DeleteEntityType("doc")
	_ = s.DeleteComplexType("addr")
	_ = s.DeleteAssociation("a")
	// Deleting absent names is a no-op.
	_ = s.DeleteEntityType("ghost")

	set, _ = s.LoadSchema()
	if len(set.EntityTypes)+len(set.ComplexTypes)+len(set.Associations) != 0 {
		t.Errorf("schema not empty after deletes: %+v", set)
	}
}
