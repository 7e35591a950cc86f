package engine

import (
	"testing"

	"github.com/tessellate-io/strata/pkg/types"
)

func TestBuildQueryDefaults(t *testing.T) {
	et := filterTestType()
	limits := types.DefaultLimits()

	q, err := BuildQuery(et, limits, QueryOptions{})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if q.Top != limits.DefaultTop {
		t.Errorf("Top = %d, want default %d", q.Top, limits.DefaultTop)
	}
	if q.Skip != 0 || q.Filter != nil || q.Sort != nil || q.NeedCount {
		t.Errorf("unexpected defaults: %+v", q)
	}
}

func TestBuildQueryPaging(t *testing.T) {
	et := filterTestType()
	limits := types.DefaultLimits()

	tests := []struct {
		name     string
		opts     QueryOptions
		wantCode string
	}{
		{"top zero", QueryOptions{Top: "0"}, ""},
		{"top at max", QueryOptions{Top: "10000"}, ""},
		{"top above max", QueryOptions{Top: "10001"}, "PR400-OD-0029"},
		{"top negative", QueryOptions{Top: "-1"}, "PR400-OD-0029"},
		{"top garbage", QueryOptions{Top: "ten"}, "PR400-OD-0029"},
		{"skip at max", QueryOptions{Skip: "100000"}, ""},
		{"skip above max", QueryOptions{Skip: "100001"}, "PR400-OD-0029"},
		{"skip negative", QueryOptions{Skip: "-5"}, "PR400-OD-0029"},
		{"inlinecount none", QueryOptions{InlineCount: "none"}, ""},
		{"inlinecount allpages", QueryOptions{InlineCount: "allpages"}, ""},
		{"inlinecount bogus", QueryOptions{InlineCount: "some"}, "PR400-OD-0013"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildQuery(et, limits, tt.opts)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("BuildQuery(%+v): %v", tt.opts, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("BuildQuery(%+v) succeeded", tt.opts)
			}
			if err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", err.Code, tt.wantCode)
			}
		})
	}
}

func TestBuildQueryOrderBy(t *testing.T) {
	et := filterTestType()
	limits := types.DefaultLimits()

	q, err := BuildQuery(et, limits, QueryOptions{OrderBy: "name desc"})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if q.Sort == nil || q.Sort.Property != "name" || !q.Sort.Descending {
		t.Errorf("Sort = %+v", q.Sort)
	}

	q, err = BuildQuery(et, limits, QueryOptions{OrderBy: "count"})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if q.Sort == nil || q.Sort.Descending {
		t.Errorf("Sort = %+v", q.Sort)
	}

	tests := []struct {
		expr     string
		wantCode string
	}{
		{"name desc extra", "PR400-OD-0015"},
		{"name sideways", "PR400-OD-0015"},
		{"   ", "PR400-OD-0015"},
		{"tags", "PR400-OD-0040"},
		{"tags desc", "PR400-OD-0040"},
	}
	for _, tt := range tests {
		_, err := BuildQuery(et, limits, QueryOptions{OrderBy: tt.expr})
		if err == nil {
			t.Errorf("BuildQuery orderby %q succeeded", tt.expr)
			continue
		}
		if err.Code != tt.wantCode {
			t.Errorf("orderby %q code = %q, want %q", tt.expr, err.Code, tt.wantCode)
		}
	}
}

func TestBuildQueryInlineCountFlag(t *testing.T) {
	et := filterTestType()
	q, err := BuildQuery(et, types.DefaultLimits(), QueryOptions{InlineCount: "allpages"})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if !q.NeedCount {
		t.Error("NeedCount not set for allpages")
	}
}
