package paging

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/sqlgen"
)

// Command is one SQL statement with its parameters.
type Command struct {
	SQL    string
	Params []filter.Parameter
}

// NamedArgs returns the parameters as sql.NamedArg values.
func (c Command) NamedArgs() []any {
	args := make([]any, len(c.Params))
	for i, p := range c.Params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

// Commands is the pair of statements a page request runs, along with the
// fragments they were built from.
type Commands struct {
	Count Command
	Data  Command

	// Where and OrderBy are the compiled fragments without keywords.
	// OrderBy includes the key column.
	Where   string
	OrderBy string
}

// Source executes commands. Timeouts and cancellation come from ctx.
type Source interface {
	// Count runs a single-value COUNT(*) command.
	Count(ctx context.Context, cmd Command) (int64, error)

	// Select runs cmd and scans the rows into dest, a pointer to a slice.
	Select(ctx context.Context, dest any, cmd Command) error
}

// Table describes the relation a pager reads.
type Table struct {
	// Name of the table or view.
	Name string

	// Columns to select. Empty selects *. When set, only these columns
	// (and Key) may be sorted on.
	Columns []string

	// Key is the unique column appended to every ORDER BY.
	Key string
}

// Validate reports a missing name or key.
func (t Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is required")
	}
	if strings.TrimSpace(t.Key) == "" {
		return fmt.Errorf("table %s: key column is required for stable paging", t.Name)
	}
	return nil
}

func (t Table) selectList() string {
	if len(t.Columns) == 0 {
		return "*"
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = sqlgen.QuoteIdent(c)
	}
	return strings.Join(cols, ", ")
}

func (t Table) sortOptions() []sqlgen.SortOption {
	if len(t.Columns) == 0 {
		return nil
	}
	return []sqlgen.SortOption{sqlgen.WithAllowedColumns(append([]string{t.Key}, t.Columns...)...)}
}

// hasKey reports whether sg already orders by the key column.
func (t Table) hasKey(sg filter.SortGroup) bool {
	for _, r := range sg.Rules {
		if strings.EqualFold(strings.TrimSpace(r.Field), t.Key) {
			return true
		}
	}
	return false
}
