package sqlgen

import (
	"golang.org/x/text/cases"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/literal"
)

// MacroFunc supplies the current value of a macro token, e.g. the id of the
// signed-in principal.
type MacroFunc func() (any, error)

// Macros maps macro tokens onto their suppliers.
//
// A Macros map is passed into each compile call rather than living in
// process-wide state. Populate it before compiling; compilers only read it.
type Macros map[string]MacroFunc

// Static returns a MacroFunc that always yields v.
func Static(v any) MacroFunc {
	return func() (any, error) { return v, nil }
}

// Lookup reports whether token is registered. An exact match wins;
// otherwise tokens match case-insensitively, since config keys arrive
// lowercased. Of several case-folded matches the smallest key is used.
func (m Macros) Lookup(token string) (MacroFunc, bool) {
	if len(m) == 0 {
		return nil, false
	}
	if fn, ok := m[token]; ok {
		return fn, true
	}

	fold := cases.Fold()
	want := fold.String(token)
	var (
		best string
		fn   MacroFunc
	)
	for k, f := range m {
		if fold.String(k) != want {
			continue
		}
		if fn == nil || k < best {
			best, fn = k, f
		}
	}
	return fn, fn != nil
}

// ResolveValue returns the value a literal binds as. A String literal equal
// to a registered token is replaced by the supplier's result; any other
// literal binds its native value. The boolean reports a substitution.
func (m Macros) ResolveValue(v literal.Value) (any, bool, error) {
	s, isString := v.(literal.String)
	if !isString {
		return v.Native(), false, nil
	}
	fn, ok := m.Lookup(string(s))
	if !ok {
		return v.Native(), false, nil
	}
	resolved, err := fn()
	if err != nil {
		return nil, true, filter.WrapError(filter.CodeMacro, "", err, "macro %q", string(s))
	}
	return resolved, true, nil
}
