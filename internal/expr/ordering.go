package expr

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/filterspec/internal/filter"
)

// OrderKey is one resolved sort key.
type OrderKey struct {
	Path       Path
	Descending bool
}

// Ordering is a chain of sort keys over T: a primary key followed by
// tie-breakers. Orderings are immutable; each ThenBy returns a new one.
//
// Resolution errors are carried along the chain and reported by Err so that
// a builder expression can be written in one go:
//
//	ord := expr.OrderBy[Person]("LastName").ThenByDescending("Age")
//	if err := ord.Err(); err != nil { ... }
type Ordering[T any] struct {
	keys []OrderKey
	err  error
}

// OrderBy starts an ascending ordering on field.
func OrderBy[T any](field string) *Ordering[T] {
	return (&Ordering[T]{}).then(field, false)
}

// OrderByDescending starts a descending ordering on field.
func OrderByDescending[T any](field string) *Ordering[T] {
	return (&Ordering[T]{}).then(field, true)
}

// ThenBy adds an ascending tie-breaker.
func (o *Ordering[T]) ThenBy(field string) *Ordering[T] {
	return o.then(field, false)
}

// ThenByDescending adds a descending tie-breaker.
func (o *Ordering[T]) ThenByDescending(field string) *Ordering[T] {
	return o.then(field, true)
}

func (o *Ordering[T]) then(field string, desc bool) *Ordering[T] {
	next := &Ordering[T]{keys: slices.Clone(o.keys), err: o.err}
	if next.err != nil {
		return next
	}
	p, err := ResolvePath(reflect.TypeFor[T](), field)
	if err != nil {
		next.err = locate(err, fmt.Sprintf("sort.rules[%d]", len(o.keys)))
		return next
	}
	next.keys = append(next.keys, OrderKey{Path: p, Descending: desc})
	return next
}

// Err returns the first resolution error in the chain.
func (o *Ordering[T]) Err() error { return o.err }

// Keys returns the sort keys in priority order.
func (o *Ordering[T]) Keys() []OrderKey { return slices.Clone(o.keys) }

// Compare orders a and b key by key. NULL sorts before any value when
// ascending and after every value when descending.
func (o *Ordering[T]) Compare(a, b T) int {
	va := reflect.ValueOf(&a).Elem()
	vb := reflect.ValueOf(&b).Elem()
	for _, k := range o.keys {
		m := Member{Path: k.Path}
		x, xok := m.value(va)
		y, yok := m.value(vb)

		var d int
		switch {
		case !xok && !yok:
		case !xok:
			d = -1
		case !yok:
			d = 1
		default:
			d, _ = compareValues(x, y)
		}
		if k.Descending {
			d = -d
		}
		if d != 0 {
			return d
		}
	}
	return 0
}

// Sort orders items in place. Equal elements keep their relative order.
func (o *Ordering[T]) Sort(items []T) {
	slices.SortStableFunc(items, o.Compare)
}

func (o *Ordering[T]) String() string {
	var sb strings.Builder
	for i, k := range o.keys {
		switch {
		case i == 0 && k.Descending:
			sb.WriteString("OrderByDescending")
		case i == 0:
			sb.WriteString("OrderBy")
		case k.Descending:
			sb.WriteString(".ThenByDescending")
		default:
			sb.WriteString(".ThenBy")
		}
		sb.WriteString("(" + k.Path.String() + ")")
	}
	return sb.String()
}

// CompileOrdering compiles sg into an ordering over T. The first rule is
// the primary key and each later rule a tie-breaker. An empty sort group
// fails with filter.ErrEmptySort.
func CompileOrdering[T any](sg filter.SortGroup) (*Ordering[T], error) {
	if sg.IsEmpty() {
		return nil, filter.NewError(filter.CodeEmptySort, "", "sort group has no rules")
	}
	if err := filter.ValidateSort(sg); err != nil {
		return nil, err
	}

	o := &Ordering[T]{}
	for _, r := range sg.Rules {
		o = o.then(r.Field, r.Direction.IsDescending())
	}
	if o.err != nil {
		return nil, o.err
	}
	return o, nil
}
