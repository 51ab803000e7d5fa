// Package literal provides the typed literal values carried by filter rules.
//
// Filter specifications arrive as untyped JSON, YAML or CUE documents. This
// package turns the scalar values found there into a small sealed set of
// types so that compilers can reason about them without type assertions on
// arbitrary Go values:
//
//   - Null:   an explicit null
//   - String: UTF-8 text
//   - Int:    a whole number, always int64
//   - Float:  a number with a fractional part or exponent
//   - Bool:   true or false
//
// Integers are kept distinct from floats during decoding (JSON numbers are
// decoded with UseNumber), so "18" stays an Int and binds as an int64
// parameter rather than a float64.
//
// literal imports nothing internal; it is the foundation layer for
// internal/filter.
package literal
