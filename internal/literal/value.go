package literal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Value is a sealed interface representing a typed scalar literal.
// Only Null, String, Int, Float and Bool implement it.
type Value interface {
	literal() // Sealed - only these types implement it

	// Native returns the Go value handed to a database driver.
	Native() any
}

// Null represents an explicit null literal.
type Null struct{}

func (Null) literal() {}

// Native returns nil.
func (Null) Native() any { return nil }

// String returns "null".
func (Null) String() string { return "null" }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalYAML implements yaml.Marshaler for Null.
func (Null) MarshalYAML() (any, error) {
	return nil, nil
}

// String represents a text literal.
type String string

func (String) literal() {}

// Native returns the string.
func (s String) Native() any { return string(s) }

// Int represents an integer literal. Always int64.
type Int int64

func (Int) literal() {}

// Native returns the int64.
func (i Int) Native() any { return int64(i) }

// Float represents a non-integral number literal.
type Float float64

func (Float) literal() {}

// Native returns the float64.
func (f Float) Native() any { return float64(f) }

// Bool represents a boolean literal.
type Bool bool

func (Bool) literal() {}

// Native returns the bool.
func (b Bool) Native() any { return bool(b) }

// FromAny converts a decoded Go value into a Value.
//
// Accepted inputs are the shapes produced by encoding/json (with UseNumber),
// gopkg.in/yaml.v3 and CUE decoding: nil, bool, string, signed and unsigned
// integers, floats, json.Number and time.Time. Values that are already a
// Value are returned unchanged.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		return fromNumber(string(val))
	case time.Time:
		return String(val.Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer out of int64 range: %d", u)
	}
	return Int(int64(u)), nil
}

// fromNumber keeps integral numbers as Int and everything else as Float.
func fromNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %s: %w", s, err)
	}
	return Float(f), nil
}

// Parse decodes a single JSON scalar into a Value.
// Arrays and objects are rejected: rule values are flat.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	switch raw.(type) {
	case []any, map[string]any:
		return nil, fmt.Errorf("literal must be a scalar, got %s", kindOf(data))
	}
	return FromAny(raw)
}

// MustOf converts Go values into a List, panicking on unsupported types.
// Intended for tests and statically known filters.
func MustOf(vals ...any) List {
	list, err := Of(vals...)
	if err != nil {
		panic(err)
	}
	return list
}

// Of converts Go values into a List.
func Of(vals ...any) (List, error) {
	list := make(List, len(vals))
	for i, v := range vals {
		lit, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
		list[i] = lit
	}
	return list, nil
}

// Format renders a Value for diagnostics. Strings are quoted.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// List is an ordered list of literal values.
//
// When decoding, a bare scalar is accepted as a one-element list so that
// specifications can write `values: 18` instead of `values: [18]`.
type List []Value

// Natives returns the driver values of every element.
func (l List) Natives() []any {
	out := make([]any, len(l))
	for i, v := range l {
		out[i] = v.Native()
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty JSON value")
	}
	if data[0] != '[' {
		v, err := Parse(data)
		if err != nil {
			return err
		}
		*l = List{v}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = make(List, len(raw))
	for i, elem := range raw {
		v, err := Parse(elem)
		if err != nil {
			return fmt.Errorf("values[%d]: %w", i, err)
		}
		(*l)[i] = v
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for List.
func (l *List) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v, err := decodeYAMLScalar(node)
		if err != nil {
			return err
		}
		*l = List{v}
		return nil
	}
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: values must be a scalar or a sequence", node.Line)
	}

	*l = make(List, len(node.Content))
	for i, elem := range node.Content {
		if elem.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: values[%d] must be a scalar", elem.Line, i)
		}
		v, err := decodeYAMLScalar(elem)
		if err != nil {
			return fmt.Errorf("values[%d]: %w", i, err)
		}
		(*l)[i] = v
	}
	return nil
}

func decodeYAMLScalar(node *yaml.Node) (Value, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	v, err := FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return v, nil
}

func kindOf(data []byte) string {
	switch bytes.TrimSpace(data)[0] {
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "scalar"
	}
}
