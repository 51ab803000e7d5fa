package sqlgen

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/literal"
)

// AlwaysTrue is the fragment emitted for an empty group or condition.
const AlwaysTrue = "(1 = 1)"

const (
	tokenAnd = " AND "
	tokenOr  = " OR "
)

// Fragment is the immutable result of compiling a filter: SQL text plus the
// parameters it references, in generation order.
type Fragment struct {
	SQL    string
	Params []filter.Parameter
}

// NamedArgs returns the parameters as sql.NamedArg values for
// database/sql and sqlx.
func (f Fragment) NamedArgs() []any {
	args := make([]any, len(f.Params))
	for i, p := range f.Params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

// Option configures a compile call.
type Option func(*options)

type options struct {
	macros Macros
}

// WithMacros sets the macro resolver for the call.
func WithMacros(m Macros) Option {
	return func(o *options) { o.macros = m }
}

func newCompiler(opts []Option) *compiler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &compiler{macros: o.macros, next: 1}
}

// CompileFilter compiles a Condition into a WHERE fragment (without the
// WHERE keyword).
//
// Groups fold left to right: each additional group wraps the accumulated
// fragment and itself in parentheses. A condition with no groups yields
// AlwaysTrue.
func CompileFilter(cond filter.Condition, opts ...Option) (Fragment, error) {
	c := newCompiler(opts)

	var acc string
	for i, g := range cond.Groups {
		frag, err := c.group(g, fmt.Sprintf("groups[%d]", i))
		if err != nil {
			return Fragment{}, err
		}
		if i == 0 {
			acc = frag
			continue
		}
		acc = "(" + acc + conjunctionToken(g.Conjunction) + frag + ")"
	}
	if acc == "" {
		acc = AlwaysTrue
	}
	return c.result(acc), nil
}

// CompileGroup compiles a single group tree.
func CompileGroup(g filter.Group, opts ...Option) (Fragment, error) {
	c := newCompiler(opts)
	frag, err := c.group(g, "group")
	if err != nil {
		return Fragment{}, err
	}
	return c.result(frag), nil
}

// compiler holds the per-call counter and parameter buffer. It is never
// shared between calls.
type compiler struct {
	macros Macros
	next   int
	params []filter.Parameter
}

func (c *compiler) result(sql string) Fragment {
	params := make([]filter.Parameter, len(c.params))
	copy(params, c.params)
	return Fragment{SQL: sql, Params: params}
}

// bind records v as the next generated parameter and returns its
// placeholder.
func (c *compiler) bind(v any) string {
	p := filter.Parameter{Name: "p" + strconv.Itoa(c.next), Value: v}
	c.next++
	c.params = append(c.params, p)
	return p.Placeholder()
}

// group compiles rules then nested groups, each joined to its left
// neighbour by its own conjunction. A group holding nothing but one nested
// group is transparent: the nested group is already parenthesized.
func (c *compiler) group(g filter.Group, path string) (string, error) {
	if g.IsEmpty() {
		return AlwaysTrue, nil
	}

	var sb strings.Builder
	items := 0
	for i, r := range g.Rules {
		frag, err := c.rule(r)
		if err != nil {
			return "", locate(err, fmt.Sprintf("%s.rules[%d]", path, i))
		}
		if items > 0 {
			sb.WriteString(conjunctionToken(r.Conjunction))
		}
		sb.WriteString(frag)
		items++
	}
	for i, sub := range g.Groups {
		frag, err := c.group(sub, fmt.Sprintf("%s.groups[%d]", path, i))
		if err != nil {
			return "", err
		}
		if items > 0 {
			sb.WriteString(conjunctionToken(sub.Conjunction))
		}
		sb.WriteString(frag)
		items++
	}

	if len(g.Rules) == 0 && len(g.Groups) == 1 {
		return sb.String(), nil
	}
	return "(" + sb.String() + ")", nil
}

// rule compiles a single comparison through the operator table.
// Values are always bound as parameters, never inlined.
func (c *compiler) rule(r filter.Rule) (string, error) {
	if err := filter.ValidateRule(r); err != nil {
		return "", err
	}

	left, err := c.operand(r.Field)
	if err != nil {
		return "", err
	}

	spec := Lookup(r.Operator)
	switch spec.Kind {
	case KindNull:
		return left + spec.Text, nil

	case KindRange:
		lo, err := c.value(r.Values[0], r.Field)
		if err != nil {
			return "", err
		}
		hi, err := c.value(r.Values[1], r.Field)
		if err != nil {
			return "", err
		}
		return left + spec.Text + c.bind(lo) + " and " + c.bind(hi), nil

	case KindList:
		placeholders := make([]string, len(r.Values))
		for i, v := range r.Values {
			resolved, err := c.value(v, r.Field)
			if err != nil {
				return "", err
			}
			placeholders[i] = c.bind(resolved)
		}
		return left + spec.Text + "(" + strings.Join(placeholders, ",") + ")", nil

	case KindPattern:
		resolved, err := c.value(r.Values[0], r.Field)
		if err != nil {
			return "", err
		}
		pattern := ApplyWildcard(spec.Wildcard, PatternText(resolved))
		return left + spec.Text + c.bind(pattern), nil

	default:
		resolved, err := c.value(r.Values[0], r.Field)
		if err != nil {
			return "", err
		}
		return left + spec.Text + c.bind(resolved), nil
	}
}

// operand returns the left side of a comparison: the quoted column, or a
// parameter holding the macro's value when the field is a macro token.
func (c *compiler) operand(field string) (string, error) {
	fn, ok := c.macros.Lookup(field)
	if !ok {
		return QuoteIdent(field), nil
	}
	v, err := fn()
	if err != nil {
		return "", filter.WrapError(filter.CodeMacro, field, err, "macro %q", field)
	}
	return c.bind(v), nil
}

func (c *compiler) value(v literal.Value, field string) (any, error) {
	resolved, _, err := c.macros.ResolveValue(v)
	if err != nil {
		if ce, ok := err.(*filter.CompileError); ok {
			ce.Field = field
		}
		return nil, err
	}
	return resolved, nil
}

// PatternText renders a bound value as the text a like pattern is built
// from.
func PatternText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// QuoteIdent bracket-quotes a dotted field path segment by segment:
// "Manager.Name" becomes "[Manager].[Name]". A ] inside a segment is
// doubled.
func QuoteIdent(field string) string {
	segments := strings.Split(field, ".")
	for i, s := range segments {
		segments[i] = "[" + strings.ReplaceAll(strings.TrimSpace(s), "]", "]]") + "]"
	}
	return strings.Join(segments, ".")
}

func conjunctionToken(c filter.Conjunction) string {
	if c.IsOr() {
		return tokenOr
	}
	return tokenAnd
}

func locate(err error, path string) error {
	if ce, ok := err.(*filter.CompileError); ok {
		return ce.At(path)
	}
	return err
}
