// Package filter defines the serializable filter and sort model shared by
// every compiler in filterspec.
//
// A filter tree has three levels:
//
//	Condition ─┬─ Group ─┬─ Rule   (field, operator, values)
//	           │         ├─ Rule
//	           │         └─ Group  (nested, recursively)
//	           └─ Group
//
// Every Rule and Group carries a Conjunction describing how it joins with its
// left neighbour. There is no operator precedence beyond the parentheses each
// group implies: siblings fold left to right.
//
// A SortGroup is an ordered list of SortRule values; the first rule is the
// primary key and the rest break ties in listed order.
//
// Model values are plain data. Compilers in internal/sqlgen and internal/expr
// read them and never mutate them, so a tree may be shared between the SQL and
// in-memory targets.
//
// # Arity
//
// Operators constrain the number of values a rule carries:
//
//	Between            exactly 2
//	In, NotIn          1 or more
//	IsNull, IsNotNull  none
//	everything else    exactly 1
//
// Validate reports every violation in a tree at once; compilers reject the
// first violation they meet with ErrMalformedRule.
//
// # Unknown operators
//
// An operator name outside the closed set is preserved as-is and compiles as
// Equal. This fallback is deliberate and documented; it is not an error.
package filter
