// Package expr compiles filter trees and sort groups into typed, inspectable
// expressions evaluated against Go values.
//
// Where internal/sqlgen produces SQL text for a database, expr produces the
// same semantics in process:
//
//	pred, err := expr.CompilePredicate[Person](cond)
//	ord, err := expr.CompileOrdering[Person](sort)
//	page := expr.From(people).Where(pred).Order(ord).Skip(20).Take(10).Items()
//
// # Paths
//
// Rule and sort fields are dotted paths ("Manager.Name") resolved segment by
// segment against the target type with reflect. A segment matches an
// exported struct field by Go name, then by `db` tag, then by `json` tag, then
// case-insensitively. Pointers along the way are dereferenced. A segment
// that matches nothing fails compilation with filter.ErrUnresolvableField.
// Resolved paths are cached per (type, field).
//
// # Coercion
//
// Literals are converted to the declared type of the final member when the
// expression is compiled, so evaluation compares like with like and a
// provider translating the tree receives correctly typed constants. A
// literal that cannot be converted fails compilation with filter.ErrCoercion.
//
// # Semantics
//
// Evaluation mirrors the SQL produced by sqlgen so that both targets select
// the same rows:
//
//   - A nil pointer anywhere on a path makes the member NULL. NULL fails every
//     comparison, including NotEqual, In and NotIn; only IsNull matches it.
//   - Like, StartsWith, EndsWith and Contains bind the same pattern sqlgen
//     binds and match it as SQL LIKE: % and _ wildcards, ASCII
//     case-insensitive.
//   - Inside a group AND binds tighter than OR; the groups of a Condition
//     fold left to right.
//   - Between is inclusive on both ends.
//
// And and Or short-circuit. In and NotIn become chains of equality or
// inequality nodes, one per value; large lists make large trees.
package expr
