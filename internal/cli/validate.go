package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/sqlgen"
)

// ValidationIssue is one problem found in a spec.
type ValidationIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Rules  int               `json:"rules"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

type validateOptions struct {
	columns []string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <spec-file>",
		Short: "Validate a spec without compiling it",
		Long: `Validate the filter, sort and page sections of a spec file.

Every problem is reported, not just the first. With --columns, sort fields
outside the list are rejected the same way the page command would.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "sortable columns")

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *validateOptions, specPath string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	spec, err := LoadSpec(specPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "loading spec", err)
	}
	formatter.VerboseLog("Loaded %s: %d rule(s), %d sort rule(s)", specPath, spec.Filter.RuleCount(), len(spec.Sort.Rules))

	issues := ValidateSpec(spec, opts.columns...)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, spec, issues)
	}
	return outputValidateSuccess(formatter, spec)
}

// ValidateSpec checks every section of spec and returns all problems found.
// When columns is non-empty, sort fields must be among them.
func ValidateSpec(spec filter.QuerySpec, columns ...string) []ValidationIssue {
	var issues []ValidationIssue
	issues = append(issues, issuesOf(filter.Validate(spec.Filter))...)
	issues = append(issues, issuesOf(filter.ValidateSort(spec.Sort))...)
	if len(columns) > 0 {
		// ValidateSort already covers empty fields; only the allow-list is
		// left, and CompileSort stops at the first column it rejects.
		for i, r := range spec.Sort.Rules {
			if _, err := sqlgen.CompileSort(filter.NewSort(r), sqlgen.WithAllowedColumns(columns...)); err != nil {
				var ce *filter.CompileError
				if errors.As(err, &ce) && ce.Code == filter.CodeUnknownField {
					ce.Path = fmt.Sprintf("sort.rules[%d]", i)
					issues = append(issues, issueOf(ce))
				}
			}
		}
	}
	if spec.Page != nil {
		issues = append(issues, issuesOf(spec.Page.Validate())...)
	}
	return issues
}

// issuesOf flattens a joined validation error.
func issuesOf(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var errs []error
	if _, ok := err.(*filter.CompileError); !ok {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			errs = joined.Unwrap()
		}
	}
	if errs == nil {
		errs = []error{err}
	}

	issues := make([]ValidationIssue, 0, len(errs))
	for _, e := range errs {
		var ce *filter.CompileError
		if errors.As(e, &ce) {
			issues = append(issues, issueOf(ce))
			continue
		}
		issues = append(issues, ValidationIssue{Code: ErrCodeGeneric, Message: e.Error()})
	}
	return issues
}

func issueOf(ce *filter.CompileError) ValidationIssue {
	return ValidationIssue{
		Code:    CodeFor(ce),
		Path:    ce.Path,
		Field:   ce.Field,
		Message: ce.Message,
	}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, spec filter.QuerySpec) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Rules: spec.Filter.RuleCount()})
	}

	fmt.Fprintf(formatter.Writer, "✓ Spec valid (%d rule(s), %d sort rule(s))\n", spec.Filter.RuleCount(), len(spec.Sort.Rules))
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, spec filter.QuerySpec, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Rules:  spec.Filter.RuleCount(),
				Errors: issues,
			},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintln(formatter.Writer, issue.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
