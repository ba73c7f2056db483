package spec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ParseValue converts the textual form of a default into a value of type
// t. Slices are written comma separated.
func ParseValue(value string, t reflect.Type) (any, error) {
	v := reflect.New(t).Elem()
	if err := setFieldValue(v, value); err != nil {
		return nil, err
	}

	return v.Interface(), nil
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	if field.Type() == reflect.TypeFor[time.Time]() {
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ts))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		parts := strings.Split(value, ",")
		s := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			if err := setFieldValue(s.Index(i), strings.TrimSpace(p)); err != nil {
				return err
			}
		}
		field.Set(s)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

var typeNames = map[string]reflect.Type{
	"string":   reflect.TypeFor[string](),
	"int":      reflect.TypeFor[int](),
	"int32":    reflect.TypeFor[int32](),
	"int64":    reflect.TypeFor[int64](),
	"uint":     reflect.TypeFor[uint](),
	"uint64":   reflect.TypeFor[uint64](),
	"float32":  reflect.TypeFor[float32](),
	"float64":  reflect.TypeFor[float64](),
	"bool":     reflect.TypeFor[bool](),
	"duration": reflect.TypeFor[time.Duration](),
	"time":     reflect.TypeFor[time.Time](),
	"any":      reflect.TypeFor[any](),
}

// LookupType resolves the scalar type names used in catalogs. A "[]"
// prefix yields a slice of the named type.
func LookupType(name string) (reflect.Type, error) {
	if elem, ok := strings.CutPrefix(name, "[]"); ok {
		t, err := LookupType(elem)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(t), nil
	}

	t, ok := typeNames[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}

	return t, nil
}
