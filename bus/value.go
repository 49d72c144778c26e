package bus

import (
	"fmt"
	"reflect"

	"github.com/godbus/dbus/v5"
	"golang.org/x/exp/constraints"
)

// Kind is the wire kind of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindByte
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindDouble
	KindString
	KindObjectPath
	KindStrings
	KindBytes
	KindDict
	KindOther
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindBool:       "bool",
	KindByte:       "byte",
	KindInt16:      "int16",
	KindUint16:     "uint16",
	KindInt32:      "int32",
	KindUint32:     "uint32",
	KindInt64:      "int64",
	KindUint64:     "uint64",
	KindDouble:     "double",
	KindString:     "string",
	KindObjectPath: "object path",
	KindStrings:    "string array",
	KindBytes:      "byte array",
	KindDict:       "dict",
	KindOther:      "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a property value as received from the bus, tagged with its wire kind.
type Value struct {
	kind Kind
	sig  dbus.Signature
	v    any
}

// ValueOf classifies a variant.
func ValueOf(v dbus.Variant) Value {
	val := Value{sig: v.Signature(), v: v.Value()}
	switch x := val.v.(type) {
	case nil:
		val.kind = KindInvalid
	case bool:
		val.kind = KindBool
	case byte:
		val.kind = KindByte
	case int16:
		val.kind = KindInt16
	case uint16:
		val.kind = KindUint16
	case int32:
		val.kind = KindInt32
	case uint32:
		val.kind = KindUint32
	case int64:
		val.kind = KindInt64
	case uint64:
		val.kind = KindUint64
	case float64:
		val.kind = KindDouble
	case string:
		val.kind = KindString
	case dbus.ObjectPath:
		val.kind = KindObjectPath
	case []string:
		val.kind = KindStrings
	case []byte:
		val.kind = KindBytes
	case map[string]dbus.Variant:
		val.kind = KindDict
		d := make(map[string]Value, len(x))
		for k, e := range x {
			d[k] = ValueOf(e)
		}
		val.v = d
	default:
		val.kind = KindOther
	}
	return val
}

// MakeValue wraps a Go value the way godbus would encode it.
func MakeValue(v any) Value {
	return ValueOf(dbus.MakeVariant(v))
}

// Kind returns the wire kind.
func (v Value) Kind() Kind { return v.kind }

// Signature returns the D-Bus signature of the value.
func (v Value) Signature() dbus.Signature { return v.sig }

// Raw returns the decoded Go value. Dictionaries are returned as map[string]Value.
func (v Value) Raw() any { return v.v }

func (v Value) String() string {
	if v.kind == KindInvalid {
		return "<invalid>"
	}
	return fmt.Sprint(v.v)
}

func (v Value) mismatch(want string) error {
	return &TypeMismatchError{Want: want, Got: v.kind.String()}
}

// Bool extracts a boolean.
func (v Value) Bool() (bool, error) {
	b, ok := v.v.(bool)
	if !ok {
		return false, v.mismatch("bool")
	}
	return b, nil
}

// Str extracts a string. Object paths are accepted too.
func (v Value) Str() (string, error) {
	switch s := v.v.(type) {
	case string:
		return s, nil
	case dbus.ObjectPath:
		return string(s), nil
	}
	return "", v.mismatch("string")
}

// ObjectPath extracts an object path.
func (v Value) ObjectPath() (dbus.ObjectPath, error) {
	p, ok := v.v.(dbus.ObjectPath)
	if !ok {
		return "", v.mismatch("object path")
	}
	return p, nil
}

// Strings extracts a string array.
func (v Value) Strings() ([]string, error) {
	s, ok := v.v.([]string)
	if !ok {
		return nil, v.mismatch("string array")
	}
	return s, nil
}

// Bytes extracts a byte array.
func (v Value) Bytes() ([]byte, error) {
	b, ok := v.v.([]byte)
	if !ok {
		return nil, v.mismatch("byte array")
	}
	return b, nil
}

// Float extracts a double.
func (v Value) Float() (float64, error) {
	f, ok := v.v.(float64)
	if !ok {
		return 0, v.mismatch("double")
	}
	return f, nil
}

// Dict extracts an a{sv} dictionary.
func (v Value) Dict() (map[string]Value, error) {
	d, ok := v.v.(map[string]Value)
	if !ok {
		return nil, v.mismatch("dict")
	}
	return d, nil
}

// Int extracts any integer kind into T, failing when the value does not fit.
func Int[T constraints.Integer](v Value) (T, error) {
	var zero T
	var want = reflect.TypeOf(zero).String()
	switch x := v.v.(type) {
	case byte:
		return fitUnsigned[T](uint64(x), v, want)
	case uint16:
		return fitUnsigned[T](uint64(x), v, want)
	case uint32:
		return fitUnsigned[T](uint64(x), v, want)
	case uint64:
		return fitUnsigned[T](x, v, want)
	case int16:
		return fitSigned[T](int64(x), v, want)
	case int32:
		return fitSigned[T](int64(x), v, want)
	case int64:
		return fitSigned[T](x, v, want)
	}
	return zero, v.mismatch(want)
}

func fitUnsigned[T constraints.Integer](x uint64, v Value, want string) (T, error) {
	t := T(x)
	if t < 0 || uint64(t) != x {
		return 0, &TypeMismatchError{Want: want, Got: fmt.Sprintf("%s %d", v.kind, x)}
	}
	return t, nil
}

func fitSigned[T constraints.Integer](x int64, v Value, want string) (T, error) {
	t := T(x)
	if int64(t) != x || (x < 0) != (t < 0) {
		return 0, &TypeMismatchError{Want: want, Got: fmt.Sprintf("%s %d", v.kind, x)}
	}
	return t, nil
}

// As extracts the value as T. Integer targets go through Int, so any integer kind
// that fits is accepted; other targets need an exact dynamic type match, except
// that a Value target returns v itself.
func As[T any](v Value) (T, error) {
	var zero T
	switch p := any(&zero).(type) {
	case *Value:
		*p = v
		return zero, nil
	case *int:
		n, err := Int[int](v)
		*p = n
		return zero, err
	case *int8:
		n, err := Int[int8](v)
		*p = n
		return zero, err
	case *int16:
		n, err := Int[int16](v)
		*p = n
		return zero, err
	case *int32:
		n, err := Int[int32](v)
		*p = n
		return zero, err
	case *int64:
		n, err := Int[int64](v)
		*p = n
		return zero, err
	case *uint:
		n, err := Int[uint](v)
		*p = n
		return zero, err
	case *uint8:
		n, err := Int[uint8](v)
		*p = n
		return zero, err
	case *uint16:
		n, err := Int[uint16](v)
		*p = n
		return zero, err
	case *uint32:
		n, err := Int[uint32](v)
		*p = n
		return zero, err
	case *uint64:
		n, err := Int[uint64](v)
		*p = n
		return zero, err
	case *float64:
		if f, ok := v.v.(float64); ok {
			*p = f
			return zero, nil
		}
	}
	if t, ok := v.v.(T); ok {
		return t, nil
	}
	if isStringLike(v.v, zero) {
		return reflect.ValueOf(v.v).Convert(reflect.TypeOf(zero)).Interface().(T), nil
	}
	return zero, v.mismatch(fmt.Sprintf("%T", zero))
}

// isStringLike allows string <-> object path style conversions between named
// string types and nothing else.
func isStringLike(src, dst any) bool {
	st, dt := reflect.TypeOf(src), reflect.TypeOf(dst)
	return st != nil && dt != nil && st.Kind() == reflect.String && dt.Kind() == reflect.String
}
