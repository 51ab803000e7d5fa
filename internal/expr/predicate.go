package expr

import (
	"fmt"
	"reflect"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/literal"
	"github.com/roach88/filterspec/internal/sqlgen"
)

// Option configures predicate compilation.
type Option func(*compiler)

// WithMacros substitutes macro tokens the same way sqlgen.WithMacros does.
func WithMacros(m sqlgen.Macros) Option {
	return func(c *compiler) { c.macros = m }
}

// Predicate is a compiled filter over values of type T.
type Predicate[T any] struct {
	expr Node
}

// Expr returns the expression tree, for providers that translate it.
func (p *Predicate[T]) Expr() Node { return p.expr }

// Match evaluates the predicate against v.
func (p *Predicate[T]) Match(v T) bool {
	return Eval(p.expr, reflect.ValueOf(&v).Elem())
}

// Func returns Match as a plain function value.
func (p *Predicate[T]) Func() func(T) bool { return p.Match }

func (p *Predicate[T]) String() string { return p.expr.String() }

// CompilePredicate compiles cond into a predicate over T.
//
// Groups fold left to right: each group after the first joins the
// accumulated expression with its own conjunction. A condition with no
// rules anywhere fails with filter.ErrEmptyCondition.
func CompilePredicate[T any](cond filter.Condition, opts ...Option) (*Predicate[T], error) {
	if len(cond.Groups) == 0 || cond.RuleCount() == 0 {
		return nil, filter.NewError(filter.CodeEmptyCondition, "", "condition has no rules")
	}

	c := newCompiler(reflect.TypeFor[T](), opts)
	var acc Node
	for i, g := range cond.Groups {
		n, err := c.group(g, fmt.Sprintf("groups[%d]", i))
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = n
			continue
		}
		acc = Logical{Op: logicalOp(g.Conjunction), Left: acc, Right: n}
	}
	return &Predicate[T]{expr: acc}, nil
}

// CompileGroupPredicate compiles a single group into a predicate over T.
func CompileGroupPredicate[T any](g filter.Group, opts ...Option) (*Predicate[T], error) {
	if g.RuleCount() == 0 {
		return nil, filter.NewError(filter.CodeEmptyCondition, "", "group has no rules")
	}
	n, err := newCompiler(reflect.TypeFor[T](), opts).group(g, "group")
	if err != nil {
		return nil, err
	}
	return &Predicate[T]{expr: n}, nil
}

type compiler struct {
	root   reflect.Type
	macros sqlgen.Macros
}

func newCompiler(root reflect.Type, opts []Option) *compiler {
	c := &compiler{root: root}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// group combines rules then nested groups with SQL precedence: runs of AND
// bind first and the runs are joined by OR. This is how the database reads
// the text sqlgen emits for the same group.
func (c *compiler) group(g filter.Group, path string) (Node, error) {
	if g.IsEmpty() {
		return Literal{Value: true}, nil
	}

	var terms []Node
	var run Node
	add := func(conj filter.Conjunction, n Node) {
		switch {
		case run == nil:
			run = n
		case conj.IsOr():
			terms = append(terms, run)
			run = n
		default:
			run = Logical{Op: OpAnd, Left: run, Right: n}
		}
	}

	for i, r := range g.Rules {
		n, err := c.rule(r)
		if err != nil {
			return nil, locate(err, fmt.Sprintf("%s.rules[%d]", path, i))
		}
		add(r.Conjunction, n)
	}
	for i, sub := range g.Groups {
		n, err := c.group(sub, fmt.Sprintf("%s.groups[%d]", path, i))
		if err != nil {
			return nil, err
		}
		add(sub.Conjunction, n)
	}
	terms = append(terms, run)

	out := terms[0]
	for _, t := range terms[1:] {
		out = Logical{Op: OpOr, Left: out, Right: t}
	}
	return out, nil
}

func (c *compiler) rule(r filter.Rule) (Node, error) {
	if err := filter.ValidateRule(r); err != nil {
		return nil, err
	}
	if fn, ok := c.macros.Lookup(r.Field); ok {
		return c.macroRule(r, fn)
	}
	p, err := ResolvePath(c.root, r.Field)
	if err != nil {
		return nil, err
	}
	return c.build(r, p)
}

// macroRule folds a rule whose field is a macro token into a Literal by
// evaluating it against the macro's current value.
func (c *compiler) macroRule(r filter.Rule, fn sqlgen.MacroFunc) (Node, error) {
	v, err := fn()
	if err != nil {
		return nil, filter.WrapError(filter.CodeMacro, r.Field, err, "macro %q", r.Field)
	}
	spec := sqlgen.Lookup(r.Operator)
	if v == nil {
		return Literal{Value: spec.Kind == sqlgen.KindNull && !spec.Negated}, nil
	}

	rv := reflect.ValueOf(v)
	n, err := c.build(r, Path{Root: rv.Type(), Field: r.Field})
	if err != nil {
		return nil, err
	}
	return Literal{Value: Eval(n, rv)}, nil
}

// build maps one rule onto nodes through the same operator table sqlgen
// uses.
func (c *compiler) build(r filter.Rule, p Path) (Node, error) {
	m := Member{Path: p}
	spec := sqlgen.Lookup(r.Operator)

	switch spec.Kind {
	case sqlgen.KindNull:
		return NullCheck{Left: m, Negated: spec.Negated}, nil

	case sqlgen.KindRange:
		lo, err := c.constant(r.Values[0], p, r.Field)
		if err != nil {
			return nil, err
		}
		hi, err := c.constant(r.Values[1], p, r.Field)
		if err != nil {
			return nil, err
		}
		return Logical{
			Op:    OpAnd,
			Left:  Compare{Op: OpGe, Left: m, Right: lo},
			Right: Compare{Op: OpLe, Left: m, Right: hi},
		}, nil

	case sqlgen.KindList:
		op, join := OpEq, OpOr
		if spec.Negated {
			op, join = OpNe, OpAnd
		}
		var out Node
		for _, v := range r.Values {
			k, err := c.constant(v, p, r.Field)
			if err != nil {
				return nil, err
			}
			n := Compare{Op: op, Left: m, Right: k}
			if out == nil {
				out = n
				continue
			}
			out = Logical{Op: join, Left: out, Right: n}
		}
		return out, nil

	case sqlgen.KindPattern:
		resolved, err := c.resolve(r.Values[0], r.Field)
		if err != nil {
			return nil, err
		}
		pattern := sqlgen.ApplyWildcard(spec.Wildcard, sqlgen.PatternText(resolved))
		return Match{Left: m, Pattern: pattern}, nil

	default:
		k, err := c.constant(r.Values[0], p, r.Field)
		if err != nil {
			return nil, err
		}
		return Compare{Op: compareOp(spec.Operator), Left: m, Right: k}, nil
	}
}

func (c *compiler) resolve(v literal.Value, field string) (any, error) {
	resolved, _, err := c.macros.ResolveValue(v)
	if err != nil {
		if ce, ok := err.(*filter.CompileError); ok {
			ce.Field = field
		}
		return nil, err
	}
	return resolved, nil
}

// constant resolves macros in v and coerces the result to the member type.
func (c *compiler) constant(v literal.Value, p Path, field string) (Const, error) {
	resolved, err := c.resolve(v, field)
	if err != nil {
		return Const{}, err
	}
	if resolved == nil {
		return Const{}, nil
	}
	rv, err := Coerce(resolved, p.Type())
	if err != nil {
		if ce, ok := err.(*filter.CompileError); ok {
			ce.Field = field
		}
		return Const{}, err
	}
	return Const{Value: rv}, nil
}

func compareOp(op filter.Operator) CompareOp {
	switch op {
	case filter.NotEqual:
		return OpNe
	case filter.Greater:
		return OpGt
	case filter.GreaterOrEqual:
		return OpGe
	case filter.Less:
		return OpLt
	case filter.LessOrEqual:
		return OpLe
	}
	return OpEq
}

func logicalOp(c filter.Conjunction) LogicalOp {
	if c.IsOr() {
		return OpOr
	}
	return OpAnd
}

func locate(err error, path string) error {
	if ce, ok := err.(*filter.CompileError); ok {
		return ce.At(path)
	}
	return err
}
