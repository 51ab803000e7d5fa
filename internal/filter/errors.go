package filter

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind. Match with errors.Is; every
// *CompileError unwraps to exactly one of these.
var (
	// ErrMalformedRule: wrong value count for an operator, or an empty field.
	ErrMalformedRule = errors.New("malformed rule")

	// ErrUnresolvableField: a path segment does not exist on the target type.
	ErrUnresolvableField = errors.New("unresolvable field")

	// ErrEmptyCondition: a condition yields no expression.
	ErrEmptyCondition = errors.New("empty condition")

	// ErrEmptySort: a sort group has no rules where one is required.
	ErrEmptySort = errors.New("empty sort")

	// ErrUnknownField: a field is not in the caller's allow-list.
	ErrUnknownField = errors.New("unknown field")

	// ErrCoercion: a literal cannot be converted to the member type.
	ErrCoercion = errors.New("value coercion failed")

	// ErrMacro: a macro supplier failed.
	ErrMacro = errors.New("macro resolution failed")

	// ErrInvalidPagination: page number or size out of range.
	ErrInvalidPagination = errors.New("invalid pagination")
)

// ErrorCode categorizes compile errors for diagnostics and CLI output.
type ErrorCode string

const (
	CodeMalformedRule     ErrorCode = "MALFORMED_RULE"
	CodeUnresolvableField ErrorCode = "UNRESOLVABLE_FIELD"
	CodeEmptyCondition    ErrorCode = "EMPTY_CONDITION"
	CodeEmptySort         ErrorCode = "EMPTY_SORT"
	CodeUnknownField      ErrorCode = "UNKNOWN_FIELD"
	CodeCoercion          ErrorCode = "COERCION"
	CodeMacro             ErrorCode = "MACRO"
	CodeInvalidPagination ErrorCode = "INVALID_PAGINATION"
)

var sentinels = map[ErrorCode]error{
	CodeMalformedRule:     ErrMalformedRule,
	CodeUnresolvableField: ErrUnresolvableField,
	CodeEmptyCondition:    ErrEmptyCondition,
	CodeEmptySort:         ErrEmptySort,
	CodeUnknownField:      ErrUnknownField,
	CodeCoercion:          ErrCoercion,
	CodeMacro:             ErrMacro,
	CodeInvalidPagination: ErrInvalidPagination,
}

// CompileError reports a failure while validating or compiling a tree.
//
// Compile calls fail as a whole: when a CompileError is returned no partial
// result is.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field is the rule or sort field involved, if any.
	Field string

	// Path locates the node in the tree, e.g. "groups[0].rules[2]".
	Path string

	// Err is an underlying cause (parse failure, supplier error), optional.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" at %s", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the sentinel for Code and the underlying cause.
func (e *CompileError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError creates a CompileError.
func NewError(code ErrorCode, field, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// WrapError creates a CompileError with an underlying cause.
func WrapError(code ErrorCode, field string, err error, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
		Err:     err,
	}
}

// At returns e with its tree location set and returns it for chaining.
// An existing path is kept: the innermost location wins.
func (e *CompileError) At(path string) *CompileError {
	if e.Path == "" {
		e.Path = path
	}
	return e
}

// CodeOf extracts the ErrorCode of the first CompileError in err's chain.
// Returns "" if there is none.
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
