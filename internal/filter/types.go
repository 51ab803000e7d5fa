package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/filterspec/internal/literal"
)

// Operator names a rule comparison. See the package documentation for the
// arity each operator requires.
type Operator string

const (
	Equal          Operator = "Equal"
	NotEqual       Operator = "NotEqual"
	Greater        Operator = "Greater"
	GreaterOrEqual Operator = "GreaterOrEqual"
	Less           Operator = "Less"
	LessOrEqual    Operator = "LessOrEqual"
	Contains       Operator = "Contains"
	Between        Operator = "Between"
	In             Operator = "In"
	NotIn          Operator = "NotIn"
	IsNull         Operator = "IsNull"
	IsNotNull      Operator = "IsNotNull"
	StartsWith     Operator = "StartsWith"
	EndsWith       Operator = "EndsWith"
	Like           Operator = "Like"
)

// Operators lists every known operator in declaration order.
var Operators = []Operator{
	Equal, NotEqual, Greater, GreaterOrEqual, Less, LessOrEqual,
	Contains, Between, In, NotIn, IsNull, IsNotNull, StartsWith, EndsWith, Like,
}

// operatorAliases maps lower-cased spellings onto canonical operators.
var operatorAliases = map[string]Operator{
	"eq": Equal, "=": Equal, "==": Equal,
	"ne": NotEqual, "neq": NotEqual, "<>": NotEqual, "!=": NotEqual,
	"gt": Greater, ">": Greater,
	"gte": GreaterOrEqual, "ge": GreaterOrEqual, ">=": GreaterOrEqual,
	"lt": Less, "<": Less,
	"lte": LessOrEqual, "le": LessOrEqual, "<=": LessOrEqual,
	"nin": NotIn,
}

func init() {
	for _, op := range Operators {
		operatorAliases[strings.ToLower(string(op))] = op
	}
}

// ParseOperator returns the canonical operator for s.
// Matching is case-insensitive and accepts short aliases ("gte", ">=").
// Unknown names are returned verbatim; they compile as Equal.
func ParseOperator(s string) Operator {
	if op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op
	}
	return Operator(s)
}

// Known reports whether op is one of the closed set of operators.
func (op Operator) Known() bool {
	return slices.Contains(Operators, op)
}

// Arity returns the minimum and maximum number of values op accepts.
// max is -1 when there is no upper bound.
func (op Operator) Arity() (min, max int) {
	switch op {
	case Between:
		return 2, 2
	case In, NotIn:
		return 1, -1
	case IsNull, IsNotNull:
		return 0, 0
	default:
		return 1, 1
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Operator) UnmarshalText(text []byte) error {
	*op = ParseOperator(string(text))
	return nil
}

// Conjunction joins a rule or group with its left neighbour.
// The zero value behaves as And.
type Conjunction string

const (
	And Conjunction = "And"
	Or  Conjunction = "Or"
)

// IsOr reports whether c is Or. Anything else, including the zero value,
// is treated as And.
func (c Conjunction) IsOr() bool {
	return c == Or
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Conjunction) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "and", "&&":
		*c = And
	case "or", "||":
		*c = Or
	default:
		return fmt.Errorf("invalid conjunction %q: must be And or Or", string(text))
	}
	return nil
}

// Rule is a single field comparison.
type Rule struct {
	Field       string       `json:"field" yaml:"field"`
	Operator    Operator     `json:"operator" yaml:"operator"`
	Values      literal.List `json:"values,omitempty" yaml:"values,omitempty"`
	Conjunction Conjunction  `json:"conjunction,omitempty" yaml:"conjunction,omitempty"`
}

// NewRule builds an And-joined rule. It panics if a value is not a
// supported literal; use it for statically known filters.
func NewRule(field string, op Operator, vals ...any) Rule {
	return Rule{
		Field:       field,
		Operator:    op,
		Values:      literal.MustOf(vals...),
		Conjunction: And,
	}
}

// Or returns a copy of r joined to its left neighbour with Or.
func (r Rule) Or() Rule {
	r.Conjunction = Or
	return r
}

// Group is an ordered list of rules followed by nested groups.
// A group with no rules and no groups is trivially satisfied.
type Group struct {
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Rules       []Rule      `json:"rules,omitempty" yaml:"rules,omitempty"`
	Groups      []Group     `json:"groups,omitempty" yaml:"groups,omitempty"`
	Conjunction Conjunction `json:"conjunction,omitempty" yaml:"conjunction,omitempty"`
}

// NewGroup builds an And-joined group from rules.
func NewGroup(rules ...Rule) Group {
	return Group{Rules: rules, Conjunction: And}
}

// Or returns a copy of g joined to its left sibling with Or.
func (g Group) Or() Group {
	g.Conjunction = Or
	return g
}

// Named returns a copy of g with the given name.
func (g Group) Named(name string) Group {
	g.Name = name
	return g
}

// With returns a copy of g with groups appended as nested groups.
// The receiver's slices are not modified.
func (g Group) With(groups ...Group) Group {
	g.Groups = append(slices.Clone(g.Groups), groups...)
	return g
}

// IsEmpty reports whether g has no rules and no nested groups.
func (g Group) IsEmpty() bool {
	return len(g.Rules) == 0 && len(g.Groups) == 0
}

// RuleCount returns the number of rules in g and all nested groups.
func (g Group) RuleCount() int {
	n := len(g.Rules)
	for _, sub := range g.Groups {
		n += sub.RuleCount()
	}
	return n
}

// Condition is the top of a filter tree: groups folded left to right.
type Condition struct {
	Groups []Group `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// NewCondition builds a condition from groups.
func NewCondition(groups ...Group) Condition {
	return Condition{Groups: groups}
}

// RuleCount returns the number of rules in the whole tree.
func (c Condition) RuleCount() int {
	n := 0
	for _, g := range c.Groups {
		n += g.RuleCount()
	}
	return n
}

// Parameter is a compiler-generated named placeholder bound to a value.
// Names are "p1", "p2", ... and unique within one compile call.
type Parameter struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Placeholder returns the parameter as written in SQL text ("@p1").
func (p Parameter) Placeholder() string {
	return "@" + p.Name
}

// Direction is a sort direction. The zero value behaves as Ascending.
type Direction string

const (
	Ascending  Direction = "Ascending"
	Descending Direction = "Descending"
)

// IsDescending reports whether d is Descending.
func (d Direction) IsDescending() bool {
	return d == Descending
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "asc", "ascending":
		*d = Ascending
	case "desc", "descending":
		*d = Descending
	default:
		return fmt.Errorf("invalid sort direction %q: must be Ascending or Descending", string(text))
	}
	return nil
}

// SortRule orders by one field.
type SortRule struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Asc returns an ascending sort rule.
func Asc(field string) SortRule {
	return SortRule{Field: field, Direction: Ascending}
}

// Desc returns a descending sort rule.
func Desc(field string) SortRule {
	return SortRule{Field: field, Direction: Descending}
}

// SortGroup is an ordered list of sort rules; the first is primary.
type SortGroup struct {
	Rules []SortRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// NewSort builds a sort group.
func NewSort(rules ...SortRule) SortGroup {
	return SortGroup{Rules: rules}
}

// IsEmpty reports whether sg has no rules.
func (sg SortGroup) IsEmpty() bool {
	return len(sg.Rules) == 0
}

// QuerySpec is the file-level envelope of a filter, a sort and an optional
// page request, as loaded by the CLI.
type QuerySpec struct {
	Filter Condition   `json:"filter" yaml:"filter"`
	Sort   SortGroup   `json:"sort" yaml:"sort"`
	Page   *Pagination `json:"page,omitempty" yaml:"page,omitempty"`
}
