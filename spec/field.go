package spec

import (
	"errors"
	"fmt"
	"reflect"
)

// Validator inspects a present field value and returns a non-nil error
// describing why it is rejected.
type Validator func(value any) error

// Field describes one field of a Specification.
type Field struct {
	// Name is the key used by builder setters.
	Name string
	Role Role
	// Rename replaces Name on the wire: the query key, body member or
	// path placeholder. For headers it is Title-Cased like Name.
	Rename string
	// HeaderName is used verbatim as the header name.
	HeaderName string
	// Optional fields may be left unset without a MissingField error.
	Optional bool
	// Type is the declared value type. When set, builder values must be
	// assignable to it, or convertible when Convert is set.
	Type    reflect.Type
	Convert bool
	// Rules holds go-playground/validator tags, e.g. "min=1,max=100".
	Rules      string
	Validators []Validator
	// Whole marks the body field whose value is the entire body.
	Whole bool

	def       any
	hasDef    bool
	defFn     func() any
	zeroDef   bool
	goIndex   []int
	omitEmpty bool
}

// Key returns the wire name of the field.
func (f Field) Key() string {
	if f.Rename != "" {
		return f.Rename
	}

	return f.Name
}

// HasDefault reports whether the field declares a default value.
func (f Field) HasDefault() bool {
	return f.hasDef || f.defFn != nil || (f.zeroDef && f.Type != nil)
}

// DefaultValue returns the default applied when the field is unset.
func (f Field) DefaultValue() (any, bool) {
	switch {
	case f.defFn != nil:
		return f.defFn(), true
	case f.hasDef:
		return f.def, true
	case f.zeroDef && f.Type != nil:
		return reflect.Zero(f.Type).Interface(), true
	}

	return nil, false
}

// OmitEmpty reports whether a zero value read from a struct is treated
// as absent.
func (f Field) OmitEmpty() bool {
	return f.omitEmpty
}

// StructIndex returns the index sequence of the struct field backing f,
// or nil when the specification was not derived from a struct.
func (f Field) StructIndex() []int {
	return f.goIndex
}

// FieldOption configures a Field.
type FieldOption func(*Field) error

// Path marks the field as a path parameter.
func Path() FieldOption {
	return func(f *Field) error { return assignRole(f, RolePath) }
}

// Query marks the field as a query parameter.
func Query() FieldOption {
	return func(f *Field) error { return assignRole(f, RoleQuery) }
}

// Header marks the field as a header.
func Header() FieldOption {
	return func(f *Field) error { return assignRole(f, RoleHeader) }
}

// Body marks the field as a body member.
func Body() FieldOption {
	return func(f *Field) error { return assignRole(f, RoleBody) }
}

// Rename sets the wire name of the field.
func Rename(name string) FieldOption {
	return func(f *Field) error {
		if name == "" {
			return fmt.Errorf("%w: empty rename", ErrInvalidField)
		}
		f.Rename = name
		return nil
	}
}

// HeaderName marks the field as a header sent under exactly name.
func HeaderName(name string) FieldOption {
	return func(f *Field) error {
		if name == "" {
			return fmt.Errorf("%w: empty header name", ErrInvalidField)
		}
		if err := assignRole(f, RoleHeader); err != nil {
			return err
		}
		f.HeaderName = name
		return nil
	}
}

// Optional allows the field to stay unset.
func Optional() FieldOption {
	return func(f *Field) error {
		f.Optional = true
		return nil
	}
}

// Default supplies v when the field is unset at build time.
func Default(v any) FieldOption {
	return func(f *Field) error {
		if v == nil {
			return fmt.Errorf("%w: nil default", ErrInvalidField)
		}
		f.def, f.hasDef = v, true
		return nil
	}
}

// DefaultFunc calls fn for a fresh default each time the field is unset
// at build time.
func DefaultFunc(fn func() any) FieldOption {
	return func(f *Field) error {
		if fn == nil {
			return fmt.Errorf("%w: nil default func", ErrInvalidField)
		}
		f.defFn = fn
		return nil
	}
}

// DefaultZero uses the zero value of the field's declared Type.
func DefaultZero() FieldOption {
	return func(f *Field) error {
		f.zeroDef = true
		return nil
	}
}

// OfType declares the Go type of the field's values.
func OfType(t reflect.Type) FieldOption {
	return func(f *Field) error {
		if t == nil {
			return fmt.Errorf("%w: nil type", ErrInvalidField)
		}
		f.Type = t
		return nil
	}
}

// Typed declares T as the Go type of the field's values.
func Typed[T any]() FieldOption {
	return OfType(reflect.TypeFor[T]())
}

// Convert converts set values to the declared Type when they are not
// directly assignable.
func Convert() FieldOption {
	return func(f *Field) error {
		f.Convert = true
		return nil
	}
}

// Validate appends custom validators run against present values.
func Validate(fns ...Validator) FieldOption {
	return func(f *Field) error {
		for _, fn := range fns {
			if fn == nil {
				return fmt.Errorf("%w: nil validator", ErrInvalidField)
			}
		}
		f.Validators = append(f.Validators, fns...)
		return nil
	}
}

// Rules sets go-playground/validator tags checked against present values.
func Rules(tag string) FieldOption {
	return func(f *Field) error {
		f.Rules = tag
		return nil
	}
}

// Whole marks a body field whose value is encoded as the entire body.
func Whole() FieldOption {
	return func(f *Field) error {
		if err := assignRole(f, RoleBody); err != nil {
			return err
		}
		f.Whole = true
		return nil
	}
}

// check validates the field definition in isolation.
func (f *Field) check() error {
	if f.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidField)
	}

	if f.Convert && f.Type == nil {
		return fmt.Errorf("%w: convert requires a declared type", ErrInvalidField)
	}

	if f.zeroDef && f.Type == nil {
		return fmt.Errorf("%w: zero default requires a declared type", ErrInvalidField)
	}

	if f.HeaderName != "" && f.Role != RoleHeader {
		return fmt.Errorf("%w: header name on %s field", ErrInvalidField, f.Role)
	}

	if f.hasDef && f.Type != nil {
		if _, err := Coerce(f.def, f.Type, f.Convert); err != nil {
			return fmt.Errorf("%w: default: %w", ErrInvalidField, err)
		}
	}

	if f.Rules != "" {
		if err := checkRules(f.Rules); err != nil {
			return fmt.Errorf("%w: rules: %w", ErrInvalidField, err)
		}
	}

	return nil
}

// ErrTypeMismatch is returned by Coerce when a value cannot be stored in
// a field of the declared type.
var ErrTypeMismatch = errors.New("type mismatch")

// Coerce returns v as a value of type t. Pointers are dereferenced.
// Values that are not assignable are converted only when convert is set.
func Coerce(v any, t reflect.Type, convert bool) (any, error) {
	if t == nil || v == nil {
		return v, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && t.Kind() != reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch {
	case rv.Type().AssignableTo(t):
		return rv.Interface(), nil
	case convert && rv.Type().ConvertibleTo(t) && convertSafe(rv.Kind(), t.Kind()):
		return rv.Convert(t).Interface(), nil
	}

	return nil, fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, t, rv.Type())
}

// convertSafe rejects the reflect conversions that compile but change
// meaning, such as int to string producing a rune.
func convertSafe(from, to reflect.Kind) bool {
	if to == reflect.String {
		return from == reflect.String || from == reflect.Slice
	}
	if from == reflect.String {
		return to == reflect.String || to == reflect.Slice
	}

	return true
}
