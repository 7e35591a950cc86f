package engine

import (
	"strconv"
	"strings"

	"github.com/tessellate-io/strata/pkg/types"
)

// QueryOptions carries the raw query parameters for a listing, exactly as
// the transport received them. Empty strings mean "not supplied".
type QueryOptions struct {
	Filter      string
	OrderBy     string
	Top         string
	Skip        string
	InlineCount string
}

// BuildQuery validates the raw options against the entity type and the
// configured limits and compiles them into a store query. Validation is
// all-or-nothing: the first bad parameter fails the whole request.
func BuildQuery(et *types.EntityType, limits types.Limits, opts QueryOptions) (*types.StoreQuery, *types.Error) {
	q := &types.StoreQuery{Top: limits.DefaultTop}

	if opts.Filter != "" {
		f, err := ParseFilter(et, opts.Filter)
		if err != nil {
			return nil, err
		}
		q.Filter = f
	}

	if opts.OrderBy != "" {
		sort, err := parseOrderBy(et, opts.OrderBy)
		if err != nil {
			return nil, err
		}
		q.Sort = sort
	}

	if opts.Top != "" {
		n, err := boundedInt(opts.Top, limits.TopMax)
		if err != nil {
			return nil, types.QueryInvalidError("$top", opts.Top)
		}
		q.Top = n
	}

	if opts.Skip != "" {
		n, err := boundedInt(opts.Skip, limits.SkipMax)
		if err != nil {
			return nil, types.QueryInvalidError("$skip", opts.Skip)
		}
		q.Skip = n
	}

	switch opts.InlineCount {
	case "", "none":
	case "allpages":
		q.NeedCount = true
	default:
		return nil, types.InlineCountParseError(opts.InlineCount)
	}

	return q, nil
}

// parseOrderBy handles `prop [asc|desc]`. Ordering by a list-valued
// property has no defined comparison and is rejected.
func parseOrderBy(et *types.EntityType, raw string) (*types.SortSpec, *types.Error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, types.OrderByParseError()
	}
	prop := fields[0]
	if !nameRe.MatchString(prop) {
		return nil, types.OrderByParseError()
	}
	if decl := et.Property(prop); decl != nil && decl.CollectionKind == types.CollectionKindList {
		return nil, types.CannotOrderByListProperty(prop)
	}
	spec := &types.SortSpec{Property: prop}
	if len(fields) == 2 {
		switch fields[1] {
		case "asc":
		case "desc":
			spec.Descending = true
		default:
			return nil, types.OrderByParseError()
		}
	}
	return spec, nil
}

// boundedInt parses a decimal integer in [0, max].
func boundedInt(s string, max int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > max {
		return 0, strconv.ErrRange
	}
	return n, nil
}
