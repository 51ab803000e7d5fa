package expr

import (
	"cmp"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Node is a compiled expression. The set of node types is closed.
type Node interface {
	node()
	String() string
}

// CompareOp is a binary comparison.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	}
	return "?"
}

// LogicalOp joins two nodes.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (op LogicalOp) String() string {
	if op == OpOr {
		return "||"
	}
	return "&&"
}

// Member reads a field path from the evaluated value.
type Member struct {
	Path Path
}

// Const is a coerced literal. The zero Const is NULL.
type Const struct {
	Value reflect.Value
}

// Compare compares a member against a constant.
type Compare struct {
	Op    CompareOp
	Left  Member
	Right Const
}

// Match tests a member against a SQL LIKE pattern.
type Match struct {
	Left    Member
	Pattern string
}

// NullCheck tests whether a member is NULL.
type NullCheck struct {
	Left    Member
	Negated bool
}

// Logical combines two nodes with short-circuit evaluation.
type Logical struct {
	Op          LogicalOp
	Left, Right Node
}

// Literal is a constant truth value: empty groups and rules over macro
// fields fold to one.
type Literal struct {
	Value bool
}

func (Member) node()    {}
func (Const) node()     {}
func (Compare) node()   {}
func (Match) node()     {}
func (NullCheck) node() {}
func (Logical) node()   {}
func (Literal) node()   {}

func (m Member) String() string { return m.Path.String() }

// IsNull reports whether c holds no value.
func (c Const) IsNull() bool { return !c.Value.IsValid() }

func (c Const) String() string {
	if c.IsNull() {
		return "nil"
	}
	v := c.Value
	switch v.Kind() {
	case reflect.String:
		return strconv.Quote(v.String())
	}
	if t, ok := v.Interface().(time.Time); ok {
		return strconv.Quote(t.Format(time.RFC3339Nano))
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return strconv.Quote(s.String())
	}
	return fmt.Sprint(v.Interface())
}

func (c Compare) String() string {
	return c.Left.String() + " " + c.Op.String() + " " + c.Right.String()
}

func (m Match) String() string {
	return m.Left.String() + " like " + strconv.Quote(m.Pattern)
}

func (n NullCheck) String() string {
	if n.Negated {
		return n.Left.String() + " != nil"
	}
	return n.Left.String() + " == nil"
}

func (l Logical) String() string {
	return l.operand(l.Left) + " " + l.Op.String() + " " + l.operand(l.Right)
}

// operand parenthesizes a child that joins with a different operator.
func (l Logical) operand(n Node) string {
	if child, ok := n.(Logical); ok && child.Op != l.Op {
		return "(" + child.String() + ")"
	}
	return n.String()
}

func (l Literal) String() string { return strconv.FormatBool(l.Value) }

// Eval evaluates n against v, a struct value or pointer to one.
func Eval(n Node, v reflect.Value) bool {
	switch n := n.(type) {
	case Literal:
		return n.Value
	case Logical:
		if n.Op == OpOr {
			return Eval(n.Left, v) || Eval(n.Right, v)
		}
		return Eval(n.Left, v) && Eval(n.Right, v)
	case Compare:
		return n.eval(v)
	case Match:
		x, ok := n.Left.value(v)
		return ok && likeMatch(n.Pattern, textOf(x))
	case NullCheck:
		_, ok := n.Left.value(v)
		return ok == n.Negated
	}
	return false
}

// Walk calls fn for n and every node beneath it, depth first. Returning
// false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	switch n := n.(type) {
	case Logical:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Compare:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Match:
		Walk(n.Left, fn)
	case NullCheck:
		Walk(n.Left, fn)
	}
}

// value returns the dereferenced member. ok is false when it is NULL.
func (m Member) value(root reflect.Value) (reflect.Value, bool) {
	v, ok := m.Path.Get(root)
	if !ok {
		return reflect.Value{}, false
	}
	return indirect(v)
}

func (c Compare) eval(root reflect.Value) bool {
	if c.Right.IsNull() {
		return false
	}
	x, ok := c.Left.value(root)
	if !ok {
		return false
	}
	d, ok := compareValues(x, c.Right.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return d == 0
	case OpNe:
		return d != 0
	case OpGt:
		return d > 0
	case OpGe:
		return d >= 0
	case OpLt:
		return d < 0
	case OpLe:
		return d <= 0
	}
	return false
}

// compareValues orders two non-NULL values. ok is false when they have no
// common ordering.
func compareValues(a, b reflect.Value) (int, bool) {
	ak, bk := a.Kind(), b.Kind()
	switch {
	case isSigned(ak) && isSigned(bk):
		return cmp.Compare(a.Int(), b.Int()), true
	case isUnsigned(ak) && isUnsigned(bk):
		return cmp.Compare(a.Uint(), b.Uint()), true
	case isNumeric(ak) && isNumeric(bk):
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		return cmp.Compare(x, y), true
	case ak == reflect.String && bk == reflect.String:
		return strings.Compare(a.String(), b.String()), true
	case ak == reflect.Bool && bk == reflect.Bool:
		return cmp.Compare(boolRank(a.Bool()), boolRank(b.Bool())), true
	}

	if a.Type() != b.Type() {
		return 0, false
	}
	if a.Type() == timeType {
		return a.Interface().(time.Time).Compare(b.Interface().(time.Time)), true
	}
	if ak == reflect.Array && a.Type().Elem().Kind() == reflect.Uint8 {
		for i := range a.Len() {
			if d := cmp.Compare(a.Index(i).Uint(), b.Index(i).Uint()); d != 0 {
				return d, true
			}
		}
		return 0, true
	}
	if a.Type().Comparable() && a.CanInterface() {
		if a.Equal(b) {
			return 0, true
		}
		if d := strings.Compare(textOf(a), textOf(b)); d != 0 {
			return d, true
		}
		return 1, true
	}
	return 0, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumeric(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || k == reflect.Float32 || k == reflect.Float64
}
