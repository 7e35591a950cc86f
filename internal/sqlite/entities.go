package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tessellate-io/strata/pkg/types"
)

// Get implements types.EntityStore.
func (b *Backend) Get(entityType, id string) (*types.Entity, bool, error) {
	if id == "" {
		return nil, false, types.ErrInvalidID
	}
	db, err := b.handle()
	if err != nil {
		return nil, false, err
	}

	row := db.QueryRow(
		"SELECT entity_type, entity_id, properties, published_at, updated_at, version FROM entities WHERE entity_type = ? AND entity_id = ?",
		entityType, id,
	)
	e, err := hydrateEntity(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting entity %s: %w", id, err)
	}
	return e, true, nil
}

// Put implements types.EntityStore. Creation (expectedVersion 0) and
// replacement (expectedVersion > 0) both go through one transaction; the
// replacement path is compare-and-swap on the version column, so a
// concurrent writer that got there first leaves zero rows affected.
func (b *Backend) Put(e *types.Entity, expectedVersion int64) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	props, err := encodeProperties(e.Properties)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if expectedVersion == 0 {
		var one int
		err := tx.QueryRow(
			"SELECT 1 FROM entities WHERE entity_type = ? AND entity_id = ?",
			e.Type, e.ID,
		).Scan(&one)
		if err == nil {
			return types.EntityAlreadyExists(e.ID)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("checking entity existence: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO entities (entity_type, entity_id, properties, published_at, updated_at, version) VALUES (?, ?, ?, ?, ?, ?)",
			e.Type, e.ID, string(props), e.Published.UnixMilli(), e.Updated.UnixMilli(), e.Version,
		); err != nil {
			return fmt.Errorf("inserting entity: %w", err)
		}
	} else {
		res, err := tx.Exec(
			"UPDATE entities SET properties = ?, updated_at = ?, version = ? WHERE entity_type = ? AND entity_id = ? AND version = ?",
			string(props), e.Updated.UnixMilli(), e.Version, e.Type, e.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("updating entity: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("updating entity: %w", err)
		}
		if n == 0 {
			var one int
			err := tx.QueryRow(
				"SELECT 1 FROM entities WHERE entity_type = ? AND entity_id = ?",
				e.Type, e.ID,
			).Scan(&one)
			if err == sql.ErrNoRows {
				return types.EntityNotFound(e.ID)
			}
			if err != nil {
				return fmt.Errorf("checking entity existence: %w", err)
			}
			return types.PreconditionFailedStale()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entity write: %w", err)
	}
	return nil
}

// Delete implements types.EntityStore with the same version contract as
// Put.
func (b *Backend) Delete(entityType, id string, expectedVersion int64) error {
	db, err := b.handle()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := "DELETE FROM entities WHERE entity_type = ? AND entity_id = ?"
	args := []any{entityType, id}
	if expectedVersion != 0 {
		query += " AND version = ?"
		args = append(args, expectedVersion)
	}
	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	if n == 0 {
		var one int
		err := tx.QueryRow(
			"SELECT 1 FROM entities WHERE entity_type = ? AND entity_id = ?",
			entityType, id,
		).Scan(&one)
		if err == sql.ErrNoRows {
			return types.EntityNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("checking entity existence: %w", err)
		}
		return types.PreconditionFailedStale()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entity delete: %w", err)
	}
	return nil
}

// CountByType implements types.EntityStore.
func (b *Backend) CountByType(entityType string) (int64, error) {
	db, err := b.handle()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM entities WHERE entity_type = ?", entityType,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entities: %w", err)
	}
	return n, nil
}

// rowScanner abstracts sql.Row and sql.Rows for the hydrate helper.
type rowScanner interface {
	Scan(dest ...any) error
}

// hydrateEntity converts one row into a *types.Entity.
func hydrateEntity(row rowScanner) (*types.Entity, error) {
	var (
		e                    types.Entity
		propsJSON            string
		publishedMS, updated int64
	)
	if err := row.Scan(&e.Type, &e.ID, &propsJSON, &publishedMS, &updated, &e.Version); err != nil {
		return nil, err
	}
	props, err := decodeProperties([]byte(propsJSON))
	if err != nil {
		return nil, err
	}
	e.Properties = props
	e.Published = time.UnixMilli(publishedMS).UTC()
	e.Updated = time.UnixMilli(updated).UTC()
	return &e, nil
}
