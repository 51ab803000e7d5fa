package expr

import (
	"reflect"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"

	"github.com/roach88/filterspec/internal/filter"
)

const pathCacheSize = 1024

type pathKey struct {
	root  reflect.Type
	field string
}

// pathCache memoizes ResolvePath. lru.Cache is safe for concurrent use.
var pathCache, _ = lru.New[pathKey, Path](pathCacheSize)

// Segment is one resolved step of a path.
type Segment struct {
	Name  string       // Go field name
	Index []int        // reflect index sequence, including embedded fields
	Type  reflect.Type // declared field type
}

// Path is a dotted field path resolved against a root type.
// A Path with no segments addresses the root value itself.
type Path struct {
	Root     reflect.Type
	Field    string // as written in the rule
	Segments []Segment
}

// Type returns the declared type of the final member.
func (p Path) Type() reflect.Type {
	if len(p.Segments) == 0 {
		return p.Root
	}
	return p.Segments[len(p.Segments)-1].Type
}

// String renders the path with Go field names.
func (p Path) String() string {
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
	}
	return strings.Join(names, ".")
}

// Get walks the path from v. ok is false when a nil pointer is met before
// the final member; the final member itself is returned as-is and may be a
// nil pointer.
func (p Path) Get(v reflect.Value) (reflect.Value, bool) {
	for _, seg := range p.Segments {
		var ok bool
		if v, ok = indirect(v); !ok {
			return reflect.Value{}, false
		}
		field, err := v.FieldByIndexErr(seg.Index)
		if err != nil {
			// nil embedded pointer
			return reflect.Value{}, false
		}
		v = field
	}
	return v, v.IsValid()
}

// indirect dereferences pointers and interfaces. ok is false on nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// baseType strips pointer indirections from t.
func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// ResolvePath resolves field against root one segment at a time.
func ResolvePath(root reflect.Type, field string) (Path, error) {
	if root == nil {
		return Path{}, filter.NewError(filter.CodeUnresolvableField, field, "nil root type")
	}
	key := pathKey{root: root, field: field}
	if p, ok := pathCache.Get(key); ok {
		return p, nil
	}

	p, err := resolvePath(root, field)
	if err != nil {
		return Path{}, err
	}
	pathCache.Add(key, p)
	return p, nil
}

func resolvePath(root reflect.Type, field string) (Path, error) {
	if strings.TrimSpace(field) == "" {
		return Path{}, filter.NewError(filter.CodeMalformedRule, field, "empty field path")
	}

	p := Path{Root: root, Field: field}
	fold := cases.Fold()
	current := root
	for _, name := range strings.Split(field, ".") {
		name = strings.TrimSpace(name)
		st := baseType(current)
		if st.Kind() != reflect.Struct {
			return Path{}, filter.NewError(filter.CodeUnresolvableField, field,
				"cannot access %q on non-struct type %s", name, st)
		}
		sf, ok := findField(st, name, fold)
		if !ok {
			return Path{}, filter.NewError(filter.CodeUnresolvableField, field,
				"type %s has no readable field %q", st, name)
		}
		p.Segments = append(p.Segments, Segment{Name: sf.Name, Index: sf.Index, Type: sf.Type})
		current = sf.Type
	}
	return p, nil
}

// findField matches name against exported fields of st: Go name, then db
// tag, then json tag, then case-folded Go name.
func findField(st reflect.Type, name string, fold cases.Caser) (reflect.StructField, bool) {
	if sf, ok := st.FieldByName(name); ok && sf.IsExported() {
		return sf, true
	}

	visible := reflect.VisibleFields(st)
	for _, tag := range []string{"db", "json"} {
		for _, sf := range visible {
			if sf.IsExported() && !sf.Anonymous && tagName(sf, tag) == name {
				return sf, true
			}
		}
	}

	folded := fold.String(name)
	for _, sf := range visible {
		if sf.IsExported() && !sf.Anonymous && fold.String(sf.Name) == folded {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

func tagName(sf reflect.StructField, key string) string {
	tag, ok := sf.Tag.Lookup(key)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
