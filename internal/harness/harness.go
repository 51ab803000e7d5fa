package harness

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/paging"
	"github.com/roach88/filterspec/internal/sqlgen"
	"github.com/roach88/filterspec/internal/store"
)

// DefaultPageSize is used for scenarios without a page section.
const DefaultPageSize = 100

// Harness is the scenario execution engine.
type Harness struct {
	store  *store.Store
	logger zerolog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger traces the commands a scenario runs.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Run setup statements and insert fixtures
// 3. Compile the query and read one page through the pager
// 4. Evaluate assertions
//
// The returned error reports a broken scenario (bad setup SQL, bad
// fixtures). A query that fails to compile or run is recorded in
// Result.Failure and fails the result unless an error assertion expects it.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:", store.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	if err := h.executeSetup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	if err := h.executeQuery(ctx, scenario, result); err != nil {
		result.Failure = err
		if !scenario.expectsError() {
			result.AddError(fmt.Sprintf("query failed: %v", err))
		}
	}

	for _, errMsg := range EvaluateAssertions(result, scenario) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup runs setup statements, then inserts fixture rows.
func (h *Harness) executeSetup(ctx context.Context, scenario *Scenario) error {
	for i, stmt := range scenario.Setup {
		if _, err := h.store.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, f := range scenario.Fixtures {
		for j, row := range f.Rows {
			query, args := insertStatement(f.Table, row)
			if _, err := h.store.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("fixtures[%d].rows[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

// insertStatement builds an INSERT for row with columns in sorted order.
func insertStatement(table string, row map[string]any) (string, []any) {
	cols := slices.Sorted(maps.Keys(row))
	quoted := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = sqlgen.QuoteIdent(c)
		args[i] = row[c]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlgen.QuoteIdent(table), strings.Join(quoted, ", "), placeholders)
	return query, args
}

func (h *Harness) executeQuery(ctx context.Context, scenario *Scenario, result *Result) error {
	// The scenario's page is copied so that running it never caches a total
	// into it.
	page := filter.NewPagination(1, DefaultPageSize)
	if scenario.Query.Page != nil {
		copied := *scenario.Query.Page
		page = &copied
	}
	table := paging.Table{Name: scenario.Table, Key: scenario.Key, Columns: scenario.Columns}

	src := &tracingSource{store: h.store, result: result}
	pager := paging.New(src, paging.WithLogger(h.logger), paging.WithMacros(macroSet(scenario.Macros)))

	cmds, err := pager.Commands(page, scenario.Query.Filter, scenario.Query.Sort, table)
	if err != nil {
		return err
	}
	result.Where = cmds.Where
	result.OrderBy = cmds.OrderBy

	var rows []map[string]any
	total, err := pager.GetPage(ctx, page, scenario.Query.Filter, scenario.Query.Sort, table, &rows)
	if err != nil {
		return err
	}
	result.Total = total
	result.Rows = rows
	return nil
}

func macroSet(values map[string]any) sqlgen.Macros {
	if len(values) == 0 {
		return nil
	}
	m := make(sqlgen.Macros, len(values))
	for token, v := range values {
		m[token] = sqlgen.Static(v)
	}
	return m
}

// tracingSource records every command before handing it to the store.
type tracingSource struct {
	store  *store.Store
	result *Result
}

func (s *tracingSource) Count(ctx context.Context, cmd paging.Command) (int64, error) {
	s.result.addTrace(EventCount, cmd.SQL, paramMap(cmd.Params))
	return s.store.Count(ctx, cmd)
}

func (s *tracingSource) Select(ctx context.Context, dest any, cmd paging.Command) error {
	s.result.addTrace(EventSelect, cmd.SQL, paramMap(cmd.Params))
	return s.store.Select(ctx, dest, cmd)
}

func paramMap(params []filter.Parameter) map[string]any {
	if len(params) == 0 {
		return nil
	}
	m := make(map[string]any, len(params))
	for _, p := range params {
		m[p.Name] = p.Value
	}
	return m
}
