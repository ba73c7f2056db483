package builder

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/adamwoolhether/restbuilder/spec"
)

var errTooDeep = errors.New("nesting exceeds max depth")

type queryPair struct {
	key    string
	values []string // more than one only for the comma format
}

type queryEncoder struct {
	cfg   spec.QueryConfig
	pairs []queryPair
}

// encodeQuery renders the present query fields in declaration order, or
// sorted by key when the config asks for it. Absent fields are omitted.
func encodeQuery(cfg spec.QueryConfig, fields []spec.Field, values map[string]any) (string, error) {
	enc := queryEncoder{cfg: cfg}

	for _, f := range fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if err := enc.value(f.Key(), v, 0); err != nil {
			return "", &QuerySerializationError{Field: f.Name, Err: err}
		}
	}

	if cfg.Sort {
		slices.SortStableFunc(enc.pairs, func(a, b queryPair) int {
			return cmp.Compare(a.key, b.key)
		})
	}

	return enc.String(), nil
}

func (e *queryEncoder) value(key string, v any, depth int) error {
	v, ok := indirect(v)
	if !ok {
		return nil
	}

	if b, ok := v.([]byte); ok {
		e.add(key, string(b))
		return nil
	}

	if isScalar(v) {
		s, err := formatScalar(v)
		if err != nil {
			return err
		}
		e.add(key, s)
		return nil
	}

	if depth >= e.cfg.Depth() {
		return fmt.Errorf("%w: %q at depth %d", errTooDeep, key, depth)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return e.list(key, rv, depth)

	case reflect.Map:
		type entry struct {
			key string
			val reflect.Value
		}
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := formatScalar(iter.Key().Interface())
			if err != nil {
				return fmt.Errorf("map key under %q: %w", key, err)
			}
			entries = append(entries, entry{key: k, val: iter.Value()})
		}
		slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.key, b.key) })

		for _, en := range entries {
			if err := e.value(key+"["+en.key+"]", en.val.Interface(), depth+1); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		rt := rv.Type()
		for i := range rt.NumField() {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}

			name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if name == "-" && opts == "" {
				continue
			}
			if name == "" {
				name = sf.Name
			}

			fv := rv.Field(i)
			if strings.Contains(opts, "omitempty") && fv.IsZero() {
				continue
			}
			if err := e.value(key+"["+name+"]", fv.Interface(), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("%w: %T under %q", errUnsupportedValue, v, key)
}

func (e *queryEncoder) list(key string, rv reflect.Value, depth int) error {
	if e.cfg.ArrayFormat == spec.ArrayComma {
		parts := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			elem, ok := indirect(rv.Index(i).Interface())
			if !ok {
				continue
			}
			if !isScalar(elem) {
				return fmt.Errorf("%w: comma list %q holds %T", errUnsupportedValue, key, elem)
			}
			s, err := formatScalar(elem)
			if err != nil {
				return err
			}
			parts = append(parts, s)
		}
		if len(parts) > 0 {
			e.pairs = append(e.pairs, queryPair{key: key, values: parts})
		}
		return nil
	}

	for i := range rv.Len() {
		k := key
		switch e.cfg.ArrayFormat {
		case spec.ArrayBrackets:
			k = key + "[]"
		case spec.ArrayIndexed:
			k = key + "[" + strconv.Itoa(i) + "]"
		}
		if err := e.value(k, rv.Index(i).Interface(), depth+1); err != nil {
			return err
		}
	}

	return nil
}

func (e *queryEncoder) add(key, value string) {
	e.pairs = append(e.pairs, queryPair{key: key, values: []string{value}})
}

func (e *queryEncoder) String() string {
	var sb strings.Builder

	for i, p := range e.pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(escapeQuery(p.key, !e.cfg.EncodeBrackets, e.cfg.SpaceAsPlus))
		sb.WriteByte('=')
		for j, v := range p.values {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(escapeQuery(v, false, e.cfg.SpaceAsPlus))
		}
	}

	return sb.String()
}

// escapeQuery percent-encodes everything but unreserved characters.
// Brackets survive when keepBrackets is set.
func escapeQuery(s string, keepBrackets, spaceAsPlus bool) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c):
			sb.WriteByte(c)
		case keepBrackets && (c == '[' || c == ']'):
			sb.WriteByte(c)
		case c == ' ' && spaceAsPlus:
			sb.WriteByte('+')
		default:
			writeEscaped(&sb, c)
		}
	}

	return sb.String()
}
