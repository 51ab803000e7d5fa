package sqlgen

import (
	"fmt"
	"strings"

	"github.com/roach88/filterspec/internal/filter"
)

// SortOption configures CompileSort.
type SortOption func(*sortOptions)

type sortOptions struct {
	allowed map[string]bool
}

// WithAllowedColumns rejects sort fields outside cols. Sort fields are
// identifiers, not parameters, so an allow-list is the only protection when
// they come from user input.
func WithAllowedColumns(cols ...string) SortOption {
	return func(o *sortOptions) {
		if len(cols) == 0 {
			return
		}
		o.allowed = make(map[string]bool, len(cols))
		for _, c := range cols {
			o.allowed[c] = true
		}
	}
}

// CompileSort compiles a sort group into an ORDER BY fragment (without the
// ORDER BY keywords): "[Name] ASC, [Age] DESC". An empty group yields "".
// No parameters are produced.
func CompileSort(sg filter.SortGroup, opts ...SortOption) (string, error) {
	var o sortOptions
	for _, opt := range opts {
		opt(&o)
	}

	parts := make([]string, 0, len(sg.Rules))
	for i, r := range sg.Rules {
		path := fmt.Sprintf("sort.rules[%d]", i)
		if strings.TrimSpace(r.Field) == "" {
			return "", filter.NewError(filter.CodeMalformedRule, "", "sort rule has an empty field").At(path)
		}
		if o.allowed != nil && !o.allowed[r.Field] {
			return "", filter.NewError(filter.CodeUnknownField, r.Field, "column is not sortable").At(path)
		}
		parts = append(parts, QuoteIdent(r.Field)+" "+directionToken(r.Direction))
	}
	return strings.Join(parts, ", "), nil
}

func directionToken(d filter.Direction) string {
	if d.IsDescending() {
		return "DESC"
	}
	return "ASC"
}
