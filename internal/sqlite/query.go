package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tessellate-io/strata/pkg/types"
)

// Query implements types.EntityStore. The known filter shapes push down
// into SQL through the JSON1 functions; any other Filter implementation
// falls back to a full scan with Filter.Match, which is the correctness
// reference either way.
func (b *Backend) Query(entityType string, q *types.StoreQuery) ([]*types.Entity, int64, error) {
	db, err := b.handle()
	if err != nil {
		return nil, 0, err
	}

	where := []string{"entity_type = ?"}
	args := []any{entityType}

	if q.IDs != nil {
		if len(q.IDs) == 0 {
			return nil, 0, nil
		}
		placeholders := strings.Repeat("?, ", len(q.IDs))
		where = append(where, "entity_id IN ("+placeholders[:len(placeholders)-2]+")")
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}

	filterSQL, filterArgs, pushed := translateFilter(q.Filter)
	if pushed && filterSQL != "" {
		where = append(where, filterSQL)
		args = append(args, filterArgs...)
	}

	whereClause := strings.Join(where, " AND ")

	if !pushed {
		return b.scanQuery(db, whereClause, args, q)
	}

	var total int64
	if q.NeedCount {
		if err := db.QueryRow(
			"SELECT COUNT(*) FROM entities WHERE "+whereClause, args...,
		).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("counting query matches: %w", err)
		}
	}

	query := "SELECT entity_type, entity_id, properties, published_at, updated_at, version FROM entities WHERE " + whereClause
	if q.Sort != nil {
		dir := "ASC"
		if q.Sort.Descending {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY json_extract(properties, %s) %s, entity_id ASC", quotePath(q.Sort.Property), dir)
	} else {
		query += " ORDER BY entity_id ASC"
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, q.Top, q.Skip)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var results []*types.Entity
	for rows.Next() {
		e, err := hydrateEntity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("hydrating query row: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("querying entities: %w", err)
	}
	return results, total, nil
}

// scanQuery is the in-process fallback for filters with no SQL
// translation: fetch every candidate row, then match, sort and page in
// Go.
func (b *Backend) scanQuery(db *sql.DB, whereClause string, args []any, q *types.StoreQuery) ([]*types.Entity, int64, error) {
	rows, err := db.Query(
		"SELECT entity_type, entity_id, properties, published_at, updated_at, version FROM entities WHERE "+whereClause,
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning entities: %w", err)
	}
	defer rows.Close()

	var matched []*types.Entity
	for rows.Next() {
		e, err := hydrateEntity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("hydrating scan row: %w", err)
		}
		if q.Filter != nil && !q.Filter.Match(e) {
			continue
		}
		matched = append(matched, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning entities: %w", err)
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
	return matched, total, nil
}

// quotePath renders a JSON1 path for one top-level property. Property
// names never contain double quotes, so quoting is enough.
func quotePath(prop string) string {
	return `'$."` + prop + `"'`
}

// translateFilter converts the known filter shapes into a WHERE fragment.
// ok is false for filter implementations this backend cannot push down.
func translateFilter(f types.Filter) (clause string, args []any, ok bool) {
	switch t := f.(type) {
	case nil:
		return "", nil, true

	case *types.EqFilter:
		path := quotePath(t.Property)
		switch v := t.Value.(type) {
		case nil:
			// Explicit null only; an absent property has no json_type.
			return "json_type(properties, " + path + ") = 'null'", nil, true
		case bool:
			lit := "false"
			if v {
				lit = "true"
			}
			return "json_type(properties, " + path + ") = '" + lit + "'", nil, true
		case string:
			return "json_type(properties, " + path + ") = 'text' AND json_extract(properties, " + path + ") = ?", []any{v}, true
		case int64:
			// json_extract renders JSON booleans as 1/0, so numeric
			// comparisons must be fenced to numeric-typed values.
			return "json_type(properties, " + path + ") IN ('integer', 'real') AND json_extract(properties, " + path + ") = ?", []any{v}, true
		case json.Number:
			fv, err := v.Float64()
			if err != nil {
				return "", nil, false
			}
			return "json_type(properties, " + path + ") IN ('integer', 'real') AND json_extract(properties, " + path + ") = ?", []any{fv}, true
		default:
			return "", nil, false
		}

	case *types.StartsWithFilter:
		path := quotePath(t.Property)
		return "json_type(properties, " + path + ") = 'text' AND json_extract(properties, " + path + ") LIKE ? ESCAPE '\\'",
			[]any{escapeLike(t.Prefix) + "%"}, true

	case *types.SubstringOfFilter:
		path := quotePath(t.Property)
		return "json_type(properties, " + path + ") = 'text' AND json_extract(properties, " + path + ") LIKE ? ESCAPE '\\'",
			[]any{"%" + escapeLike(t.Substr) + "%"}, true

	default:
		return "", nil, false
	}
}

// escapeLike protects LIKE metacharacters in a literal.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// sortEntities orders scan results the same way the SQL path does.
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
