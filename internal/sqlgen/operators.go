package sqlgen

import (
	"strings"

	"github.com/roach88/filterspec/internal/filter"
)

// OperatorKind describes how an operator consumes its values.
type OperatorKind int

const (
	// KindCompare: left <op> @p
	KindCompare OperatorKind = iota
	// KindPattern: left like @p, with wildcards applied to the value
	KindPattern
	// KindList: left in (@p1,@p2,...)
	KindList
	// KindRange: left between @p1 and @p2
	KindRange
	// KindNull: left is null
	KindNull
)

// Wildcard says where a pattern operator adds the % token.
type Wildcard int

const (
	WildcardNone Wildcard = iota
	// WildcardSuffix appends: value% (StartsWith)
	WildcardSuffix
	// WildcardPrefix prepends: %value (EndsWith)
	WildcardPrefix
	// WildcardBoth wraps: %value% (Contains)
	WildcardBoth
	// WildcardAuto wraps unless the value already holds a % (Like)
	WildcardAuto
)

// OperatorSpec is one row of the operator table.
type OperatorSpec struct {
	Operator filter.Operator
	Kind     OperatorKind
	Text     string // emitted between the operand and the parameter(s)
	Wildcard Wildcard
	Negated  bool // NotEqual, NotIn, IsNotNull
}

// Operators maps each known operator onto its SQL text and semantics.
var Operators = map[filter.Operator]OperatorSpec{
	filter.Equal:          {Operator: filter.Equal, Kind: KindCompare, Text: " = "},
	filter.NotEqual:       {Operator: filter.NotEqual, Kind: KindCompare, Text: " <> ", Negated: true},
	filter.Greater:        {Operator: filter.Greater, Kind: KindCompare, Text: " > "},
	filter.GreaterOrEqual: {Operator: filter.GreaterOrEqual, Kind: KindCompare, Text: " >= "},
	filter.Less:           {Operator: filter.Less, Kind: KindCompare, Text: " < "},
	filter.LessOrEqual:    {Operator: filter.LessOrEqual, Kind: KindCompare, Text: " <= "},
	filter.Like:           {Operator: filter.Like, Kind: KindPattern, Text: " like ", Wildcard: WildcardAuto},
	filter.StartsWith:     {Operator: filter.StartsWith, Kind: KindPattern, Text: " like ", Wildcard: WildcardSuffix},
	filter.EndsWith:       {Operator: filter.EndsWith, Kind: KindPattern, Text: " like ", Wildcard: WildcardPrefix},
	filter.Contains:       {Operator: filter.Contains, Kind: KindPattern, Text: " like ", Wildcard: WildcardBoth},
	filter.In:             {Operator: filter.In, Kind: KindList, Text: " in "},
	filter.NotIn:          {Operator: filter.NotIn, Kind: KindList, Text: " not in ", Negated: true},
	filter.Between:        {Operator: filter.Between, Kind: KindRange, Text: " between "},
	filter.IsNull:         {Operator: filter.IsNull, Kind: KindNull, Text: " is null"},
	filter.IsNotNull:      {Operator: filter.IsNotNull, Kind: KindNull, Text: " is not null", Negated: true},
}

// Lookup returns the table row for op. Unknown operators fall back to the
// Equal row; this is documented behaviour, not an error.
func Lookup(op filter.Operator) OperatorSpec {
	if spec, ok := Operators[op]; ok {
		return spec
	}
	return Operators[filter.Equal]
}

// ApplyWildcard adds the % token a pattern operator requires. A token
// already present at that end is not duplicated.
func ApplyWildcard(w Wildcard, s string) string {
	switch w {
	case WildcardSuffix:
		return withSuffix(s)
	case WildcardPrefix:
		return withPrefix(s)
	case WildcardBoth:
		return withPrefix(withSuffix(s))
	case WildcardAuto:
		if strings.Contains(s, "%") {
			return s
		}
		return "%" + s + "%"
	default:
		return s
	}
}

func withSuffix(s string) string {
	if strings.HasSuffix(s, "%") {
		return s
	}
	return s + "%"
}

func withPrefix(s string) string {
	if strings.HasPrefix(s, "%") {
		return s
	}
	return "%" + s
}
