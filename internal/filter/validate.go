package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks every rule in cond against its operator's arity and
// returns all problems joined, or nil.
//
// Validate is a pure function with no side effects. Field paths are not
// checked here; that needs a target type (see internal/expr).
func Validate(cond Condition) error {
	v := &validator{}
	for i, g := range cond.Groups {
		v.validateGroup(g, fmt.Sprintf("groups[%d]", i))
	}
	return errors.Join(v.errs...)
}

// ValidateGroup is Validate for a single group tree.
func ValidateGroup(g Group) error {
	v := &validator{}
	v.validateGroup(g, "group")
	return errors.Join(v.errs...)
}

// ValidateRule checks a single rule. The returned error, if any, is a
// *CompileError with code CodeMalformedRule.
func ValidateRule(r Rule) error {
	if strings.TrimSpace(r.Field) == "" {
		return NewError(CodeMalformedRule, "", "rule has an empty field")
	}

	min, max := r.Operator.Arity()
	n := len(r.Values)
	switch {
	case min == max && n != min:
		return NewError(CodeMalformedRule, r.Field,
			"%s requires exactly %d value(s), got %d", r.effectiveOperator(), min, n)
	case n < min:
		return NewError(CodeMalformedRule, r.Field,
			"%s requires at least %d value(s), got %d", r.effectiveOperator(), min, n)
	case max >= 0 && n > max:
		return NewError(CodeMalformedRule, r.Field,
			"%s accepts at most %d value(s), got %d", r.effectiveOperator(), max, n)
	}
	return nil
}

// effectiveOperator names the operator for messages, noting the fallback.
func (r Rule) effectiveOperator() string {
	if r.Operator.Known() {
		return string(r.Operator)
	}
	return fmt.Sprintf("%q (compiled as Equal)", string(r.Operator))
}

// ValidateSort reports sort rules with empty fields.
func ValidateSort(sg SortGroup) error {
	var errs []error
	for i, r := range sg.Rules {
		if strings.TrimSpace(r.Field) == "" {
			errs = append(errs, NewError(CodeMalformedRule, "", "sort rule has an empty field").
				At(fmt.Sprintf("sort.rules[%d]", i)))
		}
	}
	return errors.Join(errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) validateGroup(g Group, path string) {
	for i, r := range g.Rules {
		if err := ValidateRule(r); err != nil {
			var ce *CompileError
			if errors.As(err, &ce) {
				ce.At(fmt.Sprintf("%s.rules[%d]", path, i))
			}
			v.errs = append(v.errs, err)
		}
	}
	for i, sub := range g.Groups {
		v.validateGroup(sub, fmt.Sprintf("%s.groups[%d]", path, i))
	}
}
