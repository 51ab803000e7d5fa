// Package sqlgen compiles filter trees and sort groups into parameterized
// SQL fragments.
//
// The dialect is fixed: identifiers are bracket-quoted ([Age]) and
// parameters are named with an @ prefix (@p1). SQLite and SQL Server both
// accept this form.
//
// Two entry points cover the filter side:
//
//	frag, err := sqlgen.CompileFilter(cond)    // a whole Condition
//	frag, err := sqlgen.CompileGroup(group)    // one Group tree
//
// and one the sort side:
//
//	orderBy, err := sqlgen.CompileSort(sort, sqlgen.WithAllowedColumns("Name", "Age"))
//
// # Injection safety
//
// Every literal becomes a generated parameter. No literal value is ever
// concatenated into the SQL text; only identifiers, operator tokens and
// generated placeholders are. Field names are quoted but NOT validated
// against a schema: an unknown column produces SQL the database rejects.
// Callers that accept field names from users should pass an allow-list to
// CompileSort and check filter fields the same way.
//
// # Grouping
//
// Inside a group, rules come first and nested groups second; each item is
// joined to the previous one by its own conjunction and the standard SQL
// precedence applies (AND binds tighter than OR). Each group is wrapped in
// parentheses. The groups of a Condition fold left to right, each step
// parenthesized, so
//
//	A, OR B, AND C   =>   ((A OR B) AND C)
//
// An empty group or condition compiles to the always-true fragment (1 = 1).
//
// # State
//
// Each compile call builds its own counter and parameter buffer and returns
// an immutable Fragment, so calls may run concurrently.
package sqlgen
