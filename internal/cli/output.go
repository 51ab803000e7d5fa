package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/roach88/filterspec/internal/filter"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation failure (spec has problems)
	ExitCommandError = 2 // Command error (unreadable spec, database unavailable, etc.)
)

// Error code constants, shared by every command.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E002" // Path not found
	ErrCodeParse    = "E003" // Spec file could not be decoded
	ErrCodeDatabase = "E004" // Database open or query failure
	ErrCodeConfig   = "E005" // Configuration error

	// Compile and validation errors
	ErrCodeMalformedRule     = "E101"
	ErrCodeUnresolvableField = "E102"
	ErrCodeEmptyCondition    = "E103"
	ErrCodeEmptySort         = "E104"
	ErrCodeUnknownField      = "E105"
	ErrCodeCoercion          = "E106"
	ErrCodeMacro             = "E107"
	ErrCodeInvalidPagination = "E108"
)

var compileCodes = map[filter.ErrorCode]string{
	filter.CodeMalformedRule:     ErrCodeMalformedRule,
	filter.CodeUnresolvableField: ErrCodeUnresolvableField,
	filter.CodeEmptyCondition:    ErrCodeEmptyCondition,
	filter.CodeEmptySort:         ErrCodeEmptySort,
	filter.CodeUnknownField:      ErrCodeUnknownField,
	filter.CodeCoercion:          ErrCodeCoercion,
	filter.CodeMacro:             ErrCodeMacro,
	filter.CodeInvalidPagination: ErrCodeInvalidPagination,
}

// CodeFor maps an error onto a CLI error code. Load errors carry their own
// code; compile errors map through their filter.ErrorCode.
func CodeFor(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if code, ok := compileCodes[filter.CodeOf(err)]; ok {
		return code
	}
	return ErrCodeGeneric
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool

	// TraceID is stamped on every JSON response. Generated on first use
	// when empty.
	TraceID string
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // correlates a response with its log lines
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E101", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

func (f *OutputFormatter) traceID() string {
	if f.TraceID == "" {
		f.TraceID = uuid.NewString()
	}
	return f.TraceID
}

// Encode writes resp as indented JSON with the formatter's trace id.
func (f *OutputFormatter) Encode(resp CLIResponse) error {
	resp.TraceID = f.traceID()
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns it wrapped with exit code. The CLI error code
// is derived with CodeFor.
func (f *OutputFormatter) Fail(exit int, message string, err error) error {
	var details any
	var ce *filter.CompileError
	if errors.As(err, &ce) {
		details = issueOf(ce)
	}
	_ = f.Error(CodeFor(err), fmt.Sprintf("%s: %v", message, err), details)
	return WrapExitError(exit, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
