package harness

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/literal"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Commands run, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nCommands:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %v\n", event.Seq, event.Type, event.SQL, event.Params)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion of scenario against result and
// returns the failure messages.
func EvaluateAssertions(result *Result, scenario *Scenario) []string {
	var errs []string
	for i, a := range scenario.Assertions {
		if err := evaluate(result, scenario.Key, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, key string, a Assertion) error {
	switch a.Type {
	case AssertWhere:
		return assertFragment(a.Type, a.SQL, result.Where, result.Trace)
	case AssertOrderBy:
		return assertFragment(a.Type, a.SQL, result.OrderBy, result.Trace)
	case AssertTotal:
		return assertTotal(result, a)
	case AssertPageKeys:
		return assertPageKeys(result, key, a)
	case AssertRow:
		return assertRow(result, key, a)
	case AssertError:
		return assertError(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFragment(kind, want, got string, trace []TraceEvent) error {
	if want == got {
		return nil
	}
	return &AssertionError{Type: kind, Expected: want, Actual: got, Trace: trace}
}

func assertTotal(result *Result, a Assertion) error {
	if result.Failure == nil && result.Total == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTotal,
		Expected: fmt.Sprintf("%d row(s)", *a.Count),
		Actual:   fmt.Sprintf("%d row(s)", result.Total),
		Trace:    result.Trace,
	}
}

// assertPageKeys checks the key column of the page, in order.
func assertPageKeys(result *Result, key string, a Assertion) error {
	got := make([]any, len(result.Rows))
	for i, row := range result.Rows {
		got[i], _ = rowValue(row, key)
	}

	match := len(got) == len(a.Keys)
	for i := 0; match && i < len(got); i++ {
		match = valuesEqual(a.Keys[i], got[i])
	}
	if match {
		return nil
	}
	return &AssertionError{
		Type:     AssertPageKeys,
		Expected: fmt.Sprintf("%s %v", key, a.Keys),
		Actual:   fmt.Sprintf("%s %v", key, got),
		Trace:    result.Trace,
	}
}

// assertRow finds the page row holding a.Key and checks a.Expect against it
// (subset semantics).
func assertRow(result *Result, key string, a Assertion) error {
	for _, row := range result.Rows {
		v, _ := rowValue(row, key)
		if !valuesEqual(a.Key, v) {
			continue
		}
		for field, want := range a.Expect {
			got, ok := rowValue(row, field)
			if !ok {
				return &AssertionError{
					Type:     AssertRow,
					Expected: fmt.Sprintf("%s=%v has column %s", key, a.Key, field),
					Actual:   "column not selected",
					Trace:    result.Trace,
				}
			}
			if !valuesEqual(want, got) {
				return &AssertionError{
					Type:     AssertRow,
					Expected: fmt.Sprintf("%s=%v: %s = %v", key, a.Key, field, want),
					Actual:   fmt.Sprintf("%s = %v", field, got),
					Trace:    result.Trace,
				}
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertRow,
		Expected: fmt.Sprintf("row with %s=%v on the page", key, a.Key),
		Actual:   "not found",
		Trace:    result.Trace,
	}
}

func assertError(result *Result, a Assertion) error {
	if result.Failure == nil {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("failure with code %s", a.Code),
			Actual:   "query succeeded",
			Trace:    result.Trace,
		}
	}
	if code := filter.CodeOf(result.Failure); code != a.Code {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("failure with code %s", a.Code),
			Actual:   result.Failure.Error(),
			Trace:    result.Trace,
		}
	}
	return nil
}

// rowValue looks a column up by exact name, then case-insensitively.
func rowValue(row map[string]any, col string) (any, bool) {
	if v, ok := row[col]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, col) {
			return v, true
		}
	}
	return nil, false
}

// valuesEqual compares a YAML-decoded expectation with a scanned column.
// Numbers compare by value and booleans match sqlite's 0/1 integers.
func valuesEqual(want, got any) bool {
	w, werr := literal.FromAny(want)
	g, gerr := literal.FromAny(got)
	if werr != nil || gerr != nil {
		return reflect.DeepEqual(want, got)
	}

	if wn, ok := number(w); ok {
		gn, ok := number(g)
		return ok && wn == gn
	}
	if wb, ok := w.(literal.Bool); ok {
		if gn, ok := number(g); ok {
			return (gn != 0) == bool(wb)
		}
	}
	return w == g
}

func number(v literal.Value) (float64, bool) {
	switch n := v.(type) {
	case literal.Int:
		return float64(n), true
	case literal.Float:
		return float64(n), true
	default:
		return 0, false
	}
}
