package paging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/sqlgen"
)

// Pager builds and runs page commands against a Source.
type Pager struct {
	src    Source
	logger zerolog.Logger
	macros sqlgen.Macros

	// params is reset before each command is built.
	params []filter.Parameter
}

// Option configures a Pager.
type Option func(*Pager)

// WithLogger sets the logger commands are traced to at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pager) { p.logger = l }
}

// WithMacros sets the macro resolver used when compiling filters.
func WithMacros(m sqlgen.Macros) Option {
	return func(p *Pager) { p.macros = m }
}

// New returns a pager over src.
func New(src Source, opts ...Option) *Pager {
	p := &Pager{src: src, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetPage fills dest with the rows of the requested page and returns the
// total row count.
//
// The total is counted only when page.Total is nil and is then cached on
// page. Macros are resolved once per call; the count and data commands
// each carry their own copy of the filter parameters.
func (p *Pager) GetPage(ctx context.Context, page *filter.Pagination, cond filter.Condition, sort filter.SortGroup, t Table, dest any) (int64, error) {
	cmds, err := p.Commands(page, cond, sort, t)
	if err != nil {
		return 0, err
	}

	if !page.HasTotal() {
		p.trace("count", t, cmds.Count)
		n, err := p.src.Count(ctx, cmds.Count)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", t.Name, err)
		}
		page.SetTotal(n)
	}

	p.trace("select", t, cmds.Data)
	if err := p.src.Select(ctx, dest, cmds.Data); err != nil {
		return 0, fmt.Errorf("select %s page %d: %w", t.Name, page.PageNumber, err)
	}
	return *page.Total, nil
}

// Commands builds the count and data commands for a page without running
// them.
func (p *Pager) Commands(page *filter.Pagination, cond filter.Condition, sort filter.SortGroup, t Table) (Commands, error) {
	if err := page.Validate(); err != nil {
		return Commands{}, err
	}
	if err := t.Validate(); err != nil {
		return Commands{}, err
	}

	where, err := sqlgen.CompileFilter(cond, sqlgen.WithMacros(p.macros))
	if err != nil {
		return Commands{}, err
	}
	orderBy, err := sqlgen.CompileSort(sort, t.sortOptions()...)
	if err != nil {
		return Commands{}, err
	}
	if !t.hasKey(sort) {
		key := sqlgen.QuoteIdent(t.Key) + " ASC"
		if orderBy == "" {
			orderBy = key
		} else {
			orderBy += ", " + key
		}
	}

	table := sqlgen.QuoteIdent(t.Name)

	p.reset()
	p.params = append(p.params, where.Params...)
	count := p.command(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where.SQL))

	p.reset()
	p.params = append(p.params, where.Params...)
	limit := p.bind(page.Limit())
	offset := p.bind(page.Offset())
	data := p.command(fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		t.selectList(), table, where.SQL, orderBy, limit, offset))

	return Commands{Count: count, Data: data, Where: where.SQL, OrderBy: orderBy}, nil
}

func (p *Pager) reset() {
	p.params = p.params[:0]
}

// bind appends v after the parameters already in the buffer.
func (p *Pager) bind(v any) string {
	param := filter.Parameter{Name: "p" + strconv.Itoa(len(p.params)+1), Value: v}
	p.params = append(p.params, param)
	return param.Placeholder()
}

// command snapshots the buffer into a Command.
func (p *Pager) command(sql string) Command {
	params := make([]filter.Parameter, len(p.params))
	copy(params, p.params)
	return Command{SQL: sql, Params: params}
}

func (p *Pager) trace(kind string, t Table, cmd Command) {
	if e := p.logger.Debug(); e.Enabled() {
		args := zerolog.Dict()
		for _, param := range cmd.Params {
			args.Interface(param.Name, param.Value)
		}
		e.Str("table", t.Name).
			Str("sql", cmd.SQL).
			Dict("params", args).
			Msg(kind)
	}
}
