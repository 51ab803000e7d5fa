package expr

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/filterspec/internal/filter"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// timeLayouts are tried in order when a string is coerced to time.Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var errNilValue = errors.New("nil value")

// Coerce converts v to the base (pointer-stripped) type of target.
//
// Basic kinds convert between one another where no information is lost;
// strings parse into numbers, booleans and times; any type whose pointer
// implements encoding.TextUnmarshaler (uuid.UUID, netip.Addr) parses from a
// string. Failures are *filter.CompileError with CodeCoercion.
func Coerce(v any, target reflect.Type) (reflect.Value, error) {
	base := baseType(target)
	out, err := coerce(reflect.ValueOf(v), base)
	if err != nil {
		return reflect.Value{}, filter.WrapError(filter.CodeCoercion, "", err,
			"cannot convert %v (%T) to %s", v, v, base)
	}
	return out, nil
}

func coerce(src reflect.Value, base reflect.Type) (reflect.Value, error) {
	src, ok := indirect(src)
	if !ok {
		return reflect.Value{}, errNilValue
	}
	if src.Type() == base {
		return src, nil
	}
	// named types over the same kind, e.g. type Status int
	if src.Kind() == base.Kind() && isBasicKind(base.Kind()) && src.Type().ConvertibleTo(base) {
		return src.Convert(base), nil
	}

	if base == timeType {
		return coerceTime(src)
	}

	out := reflect.New(base).Elem()
	switch base.Kind() {
	case reflect.String:
		out.SetString(textOf(src))
		return out, nil

	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
		return out, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt(src)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", i, base)
		}
		out.SetInt(i)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := toInt(src)
		if err != nil {
			return reflect.Value{}, err
		}
		if i < 0 {
			return reflect.Value{}, fmt.Errorf("%d is negative", i)
		}
		if out.OverflowUint(uint64(i)) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", i, base)
		}
		out.SetUint(uint64(i))
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, err := toFloat(src)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("%g overflows %s", f, base)
		}
		out.SetFloat(f)
		return out, nil
	}

	if src.Kind() == reflect.String && reflect.PointerTo(base).Implements(textUnmarshalerType) {
		ptr := reflect.New(base)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(src.String())); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported target type %s", base)
}

func coerceTime(src reflect.Value) (reflect.Value, error) {
	if src.Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("%s is not a timestamp", src.Type())
	}
	s := strings.TrimSpace(src.String())
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return reflect.ValueOf(t), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%q is not a recognized timestamp", s)
}

func toInt(src reflect.Value) (int64, error) {
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return src.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := src.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return floatToInt(src.Float())
	case reflect.Bool:
		if src.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		s := strings.TrimSpace(src.String())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", s)
		}
		return floatToInt(f)
	}
	return 0, fmt.Errorf("%s is not numeric", src.Type())
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%g is not an integer", f)
	}
	return int64(f), nil
}

func toFloat(src reflect.Value) (float64, error) {
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(src.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(src.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return src.Float(), nil
	case reflect.String:
		s := strings.TrimSpace(src.String())
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%s is not numeric", src.Type())
}

// toBool accepts only what sqlite equates with a stored boolean: true,
// false, the integers 0 and 1, and the texts "0" and "1". Any other value
// matches no row on the database side, so it is rejected here.
func toBool(src reflect.Value) (bool, error) {
	switch src.Kind() {
	case reflect.Bool:
		return src.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return bitOf(src.Int(), src)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if src.Uint() > 1 {
			return false, fmt.Errorf("%d is not a boolean", src.Uint())
		}
		return src.Uint() == 1, nil
	case reflect.String:
		switch src.String() {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", src.String())
	}
	return false, fmt.Errorf("%s is not a boolean", src.Type())
}

func bitOf(i int64, src reflect.Value) (bool, error) {
	if i != 0 && i != 1 {
		return false, fmt.Errorf("%v is not a boolean", src.Interface())
	}
	return i == 1, nil
}

// textOf renders a value the way it is matched against a like pattern.
func textOf(v reflect.Value) string {
	v, ok := indirect(v)
	if !ok {
		return ""
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		// sqlite stores booleans as integers
		if v.Bool() {
			return "1"
		}
		return "0"
	case reflect.Float32, reflect.Float64:
		return realText(v.Float())
	}
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case time.Time:
			return x.Format(time.RFC3339Nano)
		case fmt.Stringer:
			return x.String()
		}
		return fmt.Sprint(v.Interface())
	}
	return ""
}

// realText renders f as sqlite renders a REAL as text: 15 significant
// digits, always with a decimal point.
func realText(f float64) string {
	switch {
	case math.IsNaN(f):
		// sqlite stores NaN as NULL
		return ""
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	if strings.Contains(s, ".") {
		return s
	}
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}

func isBasicKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
