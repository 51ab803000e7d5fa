package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/paging"
	"github.com/roach88/filterspec/internal/sqlgen"
)

// CommandView is a SQL statement as printed by the CLI.
type CommandView struct {
	SQL    string             `json:"sql"`
	Params []filter.Parameter `json:"params"`
}

// SQLResult is the output of the sql command.
type SQLResult struct {
	Where   string             `json:"where"`
	OrderBy string             `json:"order_by,omitempty"`
	Params  []filter.Parameter `json:"params"`

	// Count and Data are set with --page.
	Count *CommandView `json:"count,omitempty"`
	Data  *CommandView `json:"data,omitempty"`
}

type sqlOptions struct {
	page  bool
	table tableFlags
}

// tableFlags are the flags shared by commands that address a table.
type tableFlags struct {
	name    string
	key     string
	columns []string
}

func (f *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "table", "", "table to read (default from config)")
	cmd.Flags().StringVar(&f.key, "key", "", "unique key column appended to ORDER BY (default from config)")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "columns to select; also the sortable columns")
}

// resolve fills unset flags from the configuration.
func (f *tableFlags) resolve(rootOpts *RootOptions) paging.Table {
	t := paging.Table{Name: f.name, Key: f.key, Columns: f.columns}
	if t.Name == "" {
		t.Name = rootOpts.Config.Table
	}
	if t.Key == "" {
		t.Key = rootOpts.Config.Key
	}
	return t
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sqlOptions{}

	cmd := &cobra.Command{
		Use:   "sql <spec-file>",
		Short: "Compile a spec into SQL fragments",
		Long: `Compile the filter and sort sections of a spec file into a WHERE
fragment, an ORDER BY fragment and their bound parameters.

With --page, the COUNT and SELECT commands the page command would run are
printed instead of being executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.page, "page", false, "print the paging commands")
	opts.table.register(cmd)

	return cmd
}

func runSQL(rootOpts *RootOptions, opts *sqlOptions, specPath string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	spec, err := LoadSpec(specPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "loading spec", err)
	}
	macros := rootOpts.Config.MacroSet()

	where, err := sqlgen.CompileFilter(spec.Filter, sqlgen.WithMacros(macros))
	if err != nil {
		return formatter.Fail(ExitFailure, "compiling filter", err)
	}
	orderBy, err := sqlgen.CompileSort(spec.Sort)
	if err != nil {
		return formatter.Fail(ExitFailure, "compiling sort", err)
	}
	result := SQLResult{Where: where.SQL, OrderBy: orderBy, Params: where.Params}

	if opts.page {
		page := spec.Page
		if page == nil {
			page = filter.NewPagination(1, rootOpts.Config.PageSize)
		}
		pager := paging.New(nil, paging.WithMacros(macros), paging.WithLogger(rootOpts.Logger))
		cmds, err := pager.Commands(page, spec.Filter, spec.Sort, opts.table.resolve(rootOpts))
		if err != nil {
			return formatter.Fail(ExitFailure, "building page commands", err)
		}
		result.Count = &CommandView{SQL: cmds.Count.SQL, Params: cmds.Count.Params}
		result.Data = &CommandView{SQL: cmds.Data.SQL, Params: cmds.Data.Params}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeSQLText(formatter.Writer, result)
	return nil
}

func writeSQLText(w io.Writer, r SQLResult) {
	if r.Count != nil {
		fmt.Fprintf(w, "COUNT     %s\n", r.Count.SQL)
		writeParams(w, r.Count.Params)
		fmt.Fprintf(w, "DATA      %s\n", r.Data.SQL)
		writeParams(w, r.Data.Params)
		return
	}

	fmt.Fprintf(w, "WHERE     %s\n", r.Where)
	if r.OrderBy != "" {
		fmt.Fprintf(w, "ORDER BY  %s\n", r.OrderBy)
	}
	writeParams(w, r.Params)
}

func writeParams(w io.Writer, params []filter.Parameter) {
	for _, p := range params {
		fmt.Fprintf(w, "  %s = %s\n", p.Placeholder(), formatParam(p.Value))
	}
}

func formatParam(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprint(val)
	}
}
