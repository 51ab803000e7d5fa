package expr

import (
	"slices"

	"github.com/roach88/filterspec/internal/filter"
)

// Sequence is an in-memory query over a slice. Each step returns a new
// Sequence; the source slice is never modified.
type Sequence[T any] struct {
	items []T
}

// From starts a sequence over a copy of items.
func From[T any](items []T) *Sequence[T] {
	return &Sequence[T]{items: slices.Clone(items)}
}

// Where keeps the items matching p. A nil predicate keeps everything.
func (s *Sequence[T]) Where(p *Predicate[T]) *Sequence[T] {
	if p == nil {
		return s
	}
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if p.Match(it) {
			out = append(out, it)
		}
	}
	return &Sequence[T]{items: out}
}

// Order sorts the items stably by o. A nil ordering keeps source order.
func (s *Sequence[T]) Order(o *Ordering[T]) *Sequence[T] {
	if o == nil {
		return s
	}
	out := slices.Clone(s.items)
	o.Sort(out)
	return &Sequence[T]{items: out}
}

// Skip drops the first n items.
func (s *Sequence[T]) Skip(n int64) *Sequence[T] {
	if n <= 0 {
		return s
	}
	if n >= int64(len(s.items)) {
		return &Sequence[T]{}
	}
	return &Sequence[T]{items: s.items[n:]}
}

// Take keeps at most n items.
func (s *Sequence[T]) Take(n int64) *Sequence[T] {
	if n < 0 {
		return s
	}
	if n >= int64(len(s.items)) {
		return s
	}
	return &Sequence[T]{items: s.items[:n:n]}
}

// Count returns the number of items.
func (s *Sequence[T]) Count() int64 { return int64(len(s.items)) }

// Items returns a copy of the items.
func (s *Sequence[T]) Items() []T { return slices.Clone(s.items) }

// Page returns the page of s that p requests. When p carries no total, the
// count of s is cached on p first; an existing total is left as is.
func Page[T any](s *Sequence[T], p *filter.Pagination) ([]T, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.HasTotal() {
		p.SetTotal(s.Count())
	}
	return s.Skip(p.Offset()).Take(p.Limit()).Items(), nil
}
