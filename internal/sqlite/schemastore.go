package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tessellate-io/strata/pkg/types"
)

// LoadSchema implements types.SchemaStore by hydrating every persisted
// declaration.
func (b *Backend) LoadSchema() (*types.SchemaSet, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	set := &types.SchemaSet{}

	if err := loadDefinitions(db, "schema_entity_types", func(data []byte) error {
		var et types.EntityType
		if err := json.Unmarshal(data, &et); err != nil {
			return err
		}
		set.EntityTypes = append(set.EntityTypes, &et)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadDefinitions(db, "schema_complex_types", func(data []byte) error {
		var ct types.ComplexType
		if err := json.Unmarshal(data, &ct); err != nil {
			return err
		}
		set.ComplexTypes = append(set.ComplexTypes, &ct)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadDefinitions(db, "schema_associations", func(data []byte) error {
		var a types.Association
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		set.Associations = append(set.Associations, &a)
		return nil
	}); err != nil {
		return nil, err
	}

	return set, nil
}

// loadDefinitions streams every definition document of one schema table
// through hydrate.
func loadDefinitions(db *sql.DB, table string, hydrate func([]byte) error) error {
	rows, err := db.Query("SELECT definition FROM " + table)
	if err != nil {
		return fmt.Errorf("loading %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scanning %s row: %w", table, err)
		}
		if err := hydrate([]byte(data)); err != nil {
			return fmt.Errorf("hydrating %s definition: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading %s: %w", table, err)
	}
	return nil
}

// PutEntityType implements types.SchemaStore.
func (b *Backend) PutEntityType(et *types.EntityType) error {
	return b.putDefinition("schema_entity_types", et.Name, et)
}

// DeleteEntityType implements types.SchemaStore.
func (b *Backend) DeleteEntityType(name string) error {
	return b.deleteDefinition("schema_entity_types", name)
}

// PutComplexType implements types.SchemaStore.
func (b *Backend) PutComplexType(ct *types.ComplexType) error {
	return b.putDefinition("schema_complex_types", ct.Name, ct)
}

// DeleteComplexType implements types.SchemaStore.
func (b *Backend) DeleteComplexType(name string) error {
	return b.deleteDefinition("schema_complex_types", name)
}

// PutAssociation implements types.SchemaStore.
func (b *Backend) PutAssociation(a *types.Association) error {
	return b.putDefinition("schema_associations", a.Name, a)
}

// DeleteAssociation implements types.SchemaStore.
func (b *Backend) DeleteAssociation(name string) error {
	return b.deleteDefinition("schema_associations", name)
}

func (b *Backend) putDefinition(table, name string, def any) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding %s definition: %w", table, err)
	}
	if _, err := db.Exec(
		"INSERT OR REPLACE INTO "+table+" (name, definition) VALUES (?, ?)",
		name, string(data),
	); err != nil {
		return fmt.Errorf("persisting %s definition: %w", table, err)
	}
	return nil
}

func (b *Backend) deleteDefinition(table, name string) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	if _, err := db.Exec(
		"DELETE FROM "+table+" WHERE name = ?", name,
	); err != nil {
		return fmt.Errorf("deleting %s definition: %w", table, err)
	}
	return nil
}
