package sqlite

import (
	"fmt"
	"time"

	"github.com/tessellate-io/strata/pkg/types"
)

// PutLink implements types.EntityStore.
func (b *Backend) PutLink(l *types.Link) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	if _, err := db.Exec(
		"INSERT INTO links (link_id, from_type, from_id, to_type, to_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		l.LinkID, l.FromType, l.FromID, l.ToType, l.ToID, l.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("inserting link: %w", err)
	}
	return nil
}

// DeleteLink implements types.EntityStore. The pair is unordered, so both
// orientations are matched.
func (b *Backend) DeleteLink(aType, aID, bType, bID string) (bool, error) {
	db, err := b.handle()
	if err != nil {
		return false, err
	}
	res, err := db.Exec(
		`DELETE FROM links WHERE (from_type = ? AND from_id = ? AND to_type = ? AND to_id = ?)
		    OR (from_type = ? AND from_id = ? AND to_type = ? AND to_id = ?)`,
		aType, aID, bType, bID,
		bType, bID, aType, aID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting link: %w", err)
	}
	return n > 0, nil
}

// LinksOf implements types.EntityStore.
func (b *Backend) LinksOf(entityType, id, otherType string) ([]*types.Link, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}

	query := "SELECT link_id, from_type, from_id, to_type, to_id, created_at FROM links WHERE (from_type = ? AND from_id = ?) OR (to_type = ? AND to_id = ?)"
	rows, err := db.Query(query, entityType, id, entityType, id)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	defer rows.Close()

	var out []*types.Link
	for rows.Next() {
		var (
			l         types.Link
			createdMS int64
		)
		if err := rows.Scan(&l.LinkID, &l.FromType, &l.FromID, &l.ToType, &l.ToID, &createdMS); err != nil {
			return nil, fmt.Errorf("hydrating link: %w", err)
		}
		l.CreatedAt = time.UnixMilli(createdMS).UTC()
		if otherType != "" {
			if oType, _, ok := l.Opposite(entityType, id); !ok || oType != otherType {
				continue
			}
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	return out, nil
}

// CountLinks implements types.EntityStore.
func (b *Backend) CountLinks(typeA, typeB string) (int64, error) {
	db, err := b.handle()
	if err != nil {
		return 0, err
	}

	var (
		n    int64
		scan error
	)
	if typeB == "" {
		scan = db.QueryRow(
			"SELECT COUNT(*) FROM links WHERE from_type = ? OR to_type = ?",
			typeA, typeA,
		).Scan(&n)
	} else {
		scan = db.QueryRow(
			"SELECT COUNT(*) FROM links WHERE (from_type = ? AND to_type = ?) OR (from_type = ? AND to_type = ?)",
			typeA, typeB, typeB, typeA,
		).Scan(&n)
	}
	if scan != nil {
		return 0, fmt.Errorf("counting links: %w", scan)
	}
	return n, nil
}
