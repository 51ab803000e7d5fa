package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/paging"
	"github.com/roach88/filterspec/internal/store"
)

// PageResult is the output of the page command.
type PageResult struct {
	Table      string           `json:"table"`
	PageNumber int              `json:"page_number"`
	PageSize   int              `json:"page_size"`
	PageCount  int64            `json:"page_count"`
	Total      int64            `json:"total"`
	Rows       []map[string]any `json:"rows"`
}

type pageOptions struct {
	db     string
	number int
	size   int
	table  tableFlags
}

// NewPageCommand creates the page command.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &pageOptions{}

	cmd := &cobra.Command{
		Use:   "page <spec-file>",
		Short: "Run a spec against a sqlite table and print one page",
		Long: `Run the filter and sort of a spec file against a sqlite table and print
one page of matching rows as JSON objects, together with the total.

The page comes from the spec's page section; --page-number and --page-size
override it. Without either, the first page of the configured size is read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "sqlite database file (default from config)")
	cmd.Flags().IntVar(&opts.number, "page-number", 0, "page to read, 1-based")
	cmd.Flags().IntVar(&opts.size, "page-size", 0, "rows per page")
	opts.table.register(cmd)

	return cmd
}

func runPage(rootOpts *RootOptions, opts *pageOptions, specPath string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)
	logger := rootOpts.Logger.With().Str("trace_id", formatter.traceID()).Logger()

	spec, err := LoadSpec(specPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "loading spec", err)
	}
	page := opts.pagination(spec.Page, rootOpts.Config.PageSize)
	if err := page.Validate(); err != nil {
		return formatter.Fail(ExitFailure, "invalid page", err)
	}
	table := opts.table.resolve(rootOpts)

	dbPath := opts.db
	if dbPath == "" {
		dbPath = rootOpts.Config.DB
	}
	st, err := store.Open(dbPath, store.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()
	formatter.VerboseLog("Opened %s", dbPath)

	pager := paging.New(st, paging.WithLogger(logger), paging.WithMacros(rootOpts.Config.MacroSet()))

	var rows []map[string]any
	total, err := pager.GetPage(cmd.Context(), page, spec.Filter, spec.Sort, table, &rows)
	if err != nil {
		var ce *filter.CompileError
		if errors.As(err, &ce) {
			return formatter.Fail(ExitFailure, "compiling spec", err)
		}
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading page", err)
	}

	count, _ := page.PageCount()
	result := PageResult{
		Table:      table.Name,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
		PageCount:  count,
		Total:      total,
		Rows:       rows,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return writePageText(formatter.Writer, result)
}

// pagination merges the spec's page section with the flags. The returned
// value is always a fresh copy so that a cached total in the file is kept
// only when neither flag changes the window.
func (o *pageOptions) pagination(fromSpec *filter.Pagination, defaultSize int) *filter.Pagination {
	page := filter.NewPagination(1, defaultSize)
	if fromSpec != nil {
		copied := *fromSpec
		page = &copied
	}
	if o.number > 0 {
		page.PageNumber = o.number
	}
	if o.size > 0 {
		if o.size != page.PageSize {
			page.ClearTotal()
		}
		page.PageSize = o.size
	}
	return page
}

func writePageText(w io.Writer, r PageResult) error {
	fmt.Fprintf(w, "%s: page %d of %d (%d row(s) total)\n", r.Table, r.PageNumber, r.PageCount, r.Total)
	enc := json.NewEncoder(w)
	for _, row := range r.Rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
