package spec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/adamwoolhether/restbuilder/internal/casing"
)

// Struct tags read by FromStruct.
//
//	rest:"path"                  path parameter
//	rest:"query" / "query=name"  query parameter, optionally renamed
//	rest:"header=X-Api-Key"      header sent under exactly that name
//	rest:"body" / "body=name"    body member
//	rest:"body,whole"            the entire body
//	rest:"-"                     ignored
//
// Flags may follow the role: optional, convert, default (zero value).
// The json tag name is used as the wire name when no rename is given and
// its omitempty option makes the field optional. A default tag holds a
// textual default and a validate tag holds go-playground/validator rules.
const (
	tagRest     = "rest"
	tagDefault  = "default"
	tagValidate = "validate"
	tagJSON     = "json"
)

// FromStruct derives a Specification named after Req from its exported
// fields.
func FromStruct[Req any](method, path string, optFns ...Option) (*Specification, error) {
	return FromType(reflect.TypeFor[Req](), method, path, optFns...)
}

// FromType is FromStruct for a reflect.Type.
func FromType(t reflect.Type, method, path string, optFns ...Option) (*Specification, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &DefinitionError{Spec: t.String(), Err: fmt.Errorf("%w: %s is not a struct", ErrInvalidName, t)}
	}

	fieldOpts := make([]Option, 0, t.NumField()+len(optFns)+1)
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		f, skip, err := fieldFromStruct(sf)
		if err != nil {
			return nil, &DefinitionError{Spec: t.Name(), Field: sf.Name, Err: err}
		}
		if skip {
			continue
		}

		fieldOpts = append(fieldOpts, func(o *options) error {
			o.fields = append(o.fields, f)
			return nil
		})
	}

	fieldOpts = append(fieldOpts, func(o *options) error {
		o.structType = t
		return nil
	})

	return New(t.Name(), method, path, append(fieldOpts, optFns...)...)
}

func fieldFromStruct(sf reflect.StructField) (Field, bool, error) {
	rest := sf.Tag.Get(tagRest)
	if rest == "-" {
		return Field{}, true, nil
	}

	f := Field{
		Name:    casing.Snake(sf.Name),
		Type:    sf.Type,
		goIndex: sf.Index,
	}

	if f.Type.Kind() == reflect.Pointer {
		f.Type = f.Type.Elem()
		f.Optional = true
	}

	if jsonTag := sf.Tag.Get(tagJSON); jsonTag != "" && jsonTag != "-" {
		name, opts := tagOptions(jsonTag)
		if name != "" && name != f.Name {
			f.Rename = name
		}
		if tagContains(opts, "omitempty") || tagContains(opts, "omitzero") {
			f.Optional = true
			f.omitEmpty = true
		}
	}

	if err := applyRestTag(&f, rest); err != nil {
		return Field{}, false, err
	}

	if def, ok := sf.Tag.Lookup(tagDefault); ok {
		v, err := ParseValue(def, f.Type)
		if err != nil {
			return Field{}, false, fmt.Errorf("%w: default %q: %w", ErrInvalidField, def, err)
		}
		f.def, f.hasDef = v, true
	}

	f.Rules = sf.Tag.Get(tagValidate)

	return f, false, nil
}

func applyRestTag(f *Field, tag string) error {
	for tag != "" {
		var opt string
		opt, tag, _ = strings.Cut(tag, ",")
		key, value, hasValue := strings.Cut(strings.TrimSpace(opt), "=")
		if hasValue && value == "" {
			return fmt.Errorf("%w: empty name for %q", ErrInvalidField, key)
		}

		var err error
		switch key {
		case "path":
			err = assignRole(f, RolePath)
		case "query":
			err = assignRole(f, RoleQuery)
		case "body":
			err = assignRole(f, RoleBody)
		case "header":
			err = assignRole(f, RoleHeader)
		case "whole":
			err = assignRole(f, RoleBody)
			f.Whole = true
		case "optional":
			f.Optional = true
		case "convert":
			f.Convert = true
		case "default":
			f.zeroDef = true
		case "":
		default:
			err = fmt.Errorf("%w: unknown rest tag option %q", ErrInvalidField, key)
		}
		if err != nil {
			return err
		}

		if !hasValue {
			continue
		}

		switch key {
		case "header":
			f.HeaderName = value
		case "path", "query", "body":
			f.Rename = value
		default:
			return fmt.Errorf("%w: %q takes no value", ErrInvalidField, key)
		}
	}

	return nil
}

// tagOptions splits a struct tag value on comma and returns
// the name and remaining options.
func tagOptions(tag string) (string, string) {
	name, opts, _ := strings.Cut(tag, ",")
	return name, opts
}

// tagContains reports whether a comma-separated list of options
// contains a particular option.
func tagContains(opts string, name string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == name {
			return true
		}
	}
	return false
}
