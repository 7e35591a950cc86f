// Package integration exercises the full stack: engine and registry over
// the persistent SQLite backend, the way the CLI wires them.
package integration

import (
	"testing"

	"go.uber.org/zap"

	"github.com/tessellate-io/strata/internal/engine"
	"github.com/tessellate-io/strata/internal/sqlite"
	"github.com/tessellate-io/strata/pkg/types"
)

// newAttachedBackend opens a backend on an isolated temp directory. Each
// test gets its own database.
func newAttachedBackend(t *testing.T) (*sqlite.Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := sqlite.NewBackend(zap.NewNop().Sugar())
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir, Limits: types.DefaultLimits()}
	if err := b.Attach(cfg); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { _ = b.Detach() })
	return b, dir
}

// reattach opens a fresh backend on an existing data directory.
func reattach(t *testing.T, dir string) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend(zap.NewNop().Sugar())
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir, Limits: types.DefaultLimits()}
	if err := b.Attach(cfg); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

// newEngine builds an engine over an attached backend, loading whatever
// schema the database already holds.
func newEngine(t *testing.T, b *sqlite.Backend) *engine.Engine {
	t.Helper()
	r, err := engine.NewRegistry(b, types.DefaultLimits(), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return engine.New(b, r, types.DefaultLimits(), zap.NewNop().Sugar())
}

// declareNotebook declares the note/tag schema used across the suite:
// notebooks hold many notes, a note belongs to one notebook, and notes
// relate freely to tags.
func declareNotebook(t *testing.T, eng *engine.Engine) {
	t.Helper()
	decls := []*types.EntityType{
		{Name: "notebook", Properties: []*types.Property{
			{Name: "title", Type: types.EdmString, Nullable: false},
		}},
		{Name: "note", Properties: []*types.Property{
			{Name: "title", Type: types.EdmString, Nullable: false},
			{Name: "words", Type: types.EdmInt32, Nullable: true, DefaultValue: float64(0)},
			{Name: "rating", Type: types.EdmDouble, Nullable: true},
			{Name: "writtenAt", Type: types.EdmDateTime, Nullable: true},
		}},
		{Name: "tag", Properties: []*types.Property{
			{Name: "label", Type: types.EdmString, Nullable: false},
		}},
	}
	for _, et := range decls {
		if err := eng.DeclareEntityType(et); err != nil {
			t.Fatalf("declare %s: %v", et.Name, err)
		}
	}
	assocs := []*types.Association{
		{Name: "notebook-note", Ends: [2]types.AssociationEnd{
			{Name: "notebook", EntityType: "notebook", Multiplicity: types.MultiplicityOne},
			{Name: "note", EntityType: "note", Multiplicity: types.MultiplicityMany},
		}},
		{Name: "note-tag", Ends: [2]types.AssociationEnd{
			{Name: "note", EntityType: "note", Multiplicity: types.MultiplicityMany},
			{Name: "tag", EntityType: "tag", Multiplicity: types.MultiplicityMany},
		}},
	}
	for _, a := range assocs {
		if err := eng.DeclareAssociation(a); err != nil {
			t.Fatalf("declare %s: %v", a.Name, err)
		}
	}
}
