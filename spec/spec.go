// Package spec describes REST endpoints: the HTTP method, the path
// template and the role each field plays in the request.
//
// Specifications are constructed once, validated at construction, and
// are immutable afterwards, so they can be shared freely between
// goroutines and builders.
package spec

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/adamwoolhether/restbuilder/codec"
)

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Specification is the static description of one endpoint.
type Specification struct {
	name         string
	method       string
	template     Template
	fields       []Field
	byName       map[string]int
	response     reflect.Type
	responseHint string
	query        *QueryConfig
	codec        codec.Codec
	structType   reflect.Type
}

// Option configures a Specification under construction.
type Option func(*options) error

type options struct {
	fields       []Field
	response     reflect.Type
	responseHint string
	query        *QueryConfig
	codec        codec.Codec
	defaultAll   bool
	structType   reflect.Type
}

// WithField declares a field. Fields keep their declaration order, which
// is also the default query and body order.
func WithField(name string, optFns ...FieldOption) Option {
	return func(o *options) error {
		f := Field{Name: name}
		for _, opt := range optFns {
			if err := opt(&f); err != nil {
				return &DefinitionError{Field: name, Err: err}
			}
		}
		o.fields = append(o.fields, f)
		return nil
	}
}

// WithResponse records T as the response type hint.
func WithResponse[T any]() Option {
	return WithResponseType(reflect.TypeFor[T]())
}

// WithResponseType records t as the response type hint.
func WithResponseType(t reflect.Type) Option {
	return func(o *options) error {
		if t == nil {
			return fmt.Errorf("response type must not be nil")
		}
		o.response = t
		o.responseHint = t.String()
		return nil
	}
}

// WithResponseHint records a response type name without a Go type, as
// catalogs and OpenAPI documents do.
func WithResponseHint(name string) Option {
	return func(o *options) error {
		o.responseHint = name
		return nil
	}
}

// WithQueryConfig replaces the default query serialization rules.
func WithQueryConfig(cfg QueryConfig) Option {
	return func(o *options) error {
		if cfg.MaxDepth < 0 {
			return fmt.Errorf("query max depth must not be negative")
		}
		o.query = &cfg
		return nil
	}
}

// WithCodec sets the body codec. JSON is used when unset.
func WithCodec(c codec.Codec) Option {
	return func(o *options) error {
		if c == nil {
			return fmt.Errorf("codec must not be nil")
		}
		o.codec = c
		return nil
	}
}

// WithDefaults gives every typed field without an explicit default its
// zero value as default.
func WithDefaults() Option {
	return func(o *options) error {
		o.defaultAll = true
		return nil
	}
}

// New validates and returns a Specification.
func New(name, method, path string, optFns ...Option) (*Specification, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &DefinitionError{Spec: name, Err: ErrInvalidName}
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			var de *DefinitionError
			if errors.As(err, &de) {
				de.Spec = name
				return nil, de
			}
			return nil, &DefinitionError{Spec: name, Err: err}
		}
	}

	m := strings.ToUpper(method)
	if !methods[m] {
		return nil, &DefinitionError{Spec: name, Err: fmt.Errorf("%w: %q", ErrInvalidMethod, method)}
	}

	tmpl, err := ParseTemplate(path)
	if err != nil {
		return nil, &DefinitionError{Spec: name, Err: err}
	}

	s := Specification{
		name:         name,
		method:       m,
		template:     tmpl,
		fields:       opts.fields,
		byName:       make(map[string]int, len(opts.fields)),
		response:     opts.response,
		responseHint: opts.responseHint,
		query:        opts.query,
		codec:        opts.codec,
		structType:   opts.structType,
	}
	if s.codec == nil {
		s.codec = codec.JSON
	}

	if err := s.check(opts.defaultAll); err != nil {
		return nil, err
	}

	return &s, nil
}

// MustNew is New that panics on error, for package level declarations.
func MustNew(name, method, path string, optFns ...Option) *Specification {
	s, err := New(name, method, path, optFns...)
	if err != nil {
		panic(err)
	}

	return s
}

func (s *Specification) check(defaultAll bool) error {
	pathKeys := make(map[string]string)
	bodyKeys := make(map[string]string)
	var wholeBody string
	bodyCount := 0

	for i := range s.fields {
		f := &s.fields[i]
		if defaultAll && f.Type != nil && !f.HasDefault() {
			f.zeroDef = true
		}

		if err := f.check(); err != nil {
			return &DefinitionError{Spec: s.name, Field: f.Name, Err: err}
		}

		if _, dup := s.byName[f.Name]; dup {
			return &DefinitionError{Spec: s.name, Field: f.Name, Err: ErrDuplicateField}
		}
		s.byName[f.Name] = i

		switch f.Role {
		case RolePath:
			if other, dup := pathKeys[f.Key()]; dup {
				return &DefinitionError{Spec: s.name, Field: f.Name, Err: fmt.Errorf("%w: placeholder %q also bound to %s", ErrDuplicateField, f.Key(), other)}
			}
			pathKeys[f.Key()] = f.Name
		case RoleBody:
			bodyCount++
			if f.Whole {
				if wholeBody != "" {
					return &DefinitionError{Spec: s.name, Field: f.Name, Err: fmt.Errorf("%w: second whole body field", ErrInvalidField)}
				}
				wholeBody = f.Name
				continue
			}
			if other, dup := bodyKeys[f.Key()]; dup {
				return &DefinitionError{Spec: s.name, Field: f.Name, Err: fmt.Errorf("%w: body key %q also bound to %s", ErrDuplicateField, f.Key(), other)}
			}
			bodyKeys[f.Key()] = f.Name
		}
	}

	if wholeBody != "" && bodyCount > 1 {
		return &DefinitionError{Spec: s.name, Field: wholeBody, Err: fmt.Errorf("%w: whole body field cannot share the body", ErrInvalidField)}
	}

	params := make(map[string]bool)
	for _, p := range s.template.Params() {
		params[p] = true
		if _, ok := pathKeys[p]; !ok {
			return &DefinitionError{Spec: s.name, Err: fmt.Errorf("%w: {%s}", ErrUnboundPlaceholder, p)}
		}
	}

	for key, name := range pathKeys {
		if !params[key] {
			return &DefinitionError{Spec: s.name, Field: name, Err: ErrUnusedPathField}
		}
	}

	return nil
}

// Name returns the declared specification name.
func (s *Specification) Name() string { return s.name }

// Method returns the upper case HTTP method.
func (s *Specification) Method() string { return s.method }

// Template returns the parsed path template.
func (s *Specification) Template() Template { return s.template }

// Response returns the declared response type, or nil.
func (s *Specification) Response() reflect.Type { return s.response }

// ResponseHint returns the response type name, or "".
func (s *Specification) ResponseHint() string { return s.responseHint }

// Codec returns the body codec.
func (s *Specification) Codec() codec.Codec { return s.codec }

// StructType returns the request struct the specification was derived
// from, or nil.
func (s *Specification) StructType() reflect.Type { return s.structType }

// QueryConfig returns the custom query configuration and whether one
// was declared.
func (s *Specification) QueryConfig() (QueryConfig, bool) {
	if s.query == nil {
		return QueryConfig{}, false
	}

	return *s.query, true
}

// Fields returns the fields in declaration order.
func (s *Specification) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Specification) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}

	return s.fields[i], true
}

// FieldsWithRole returns the fields with role r in declaration order.
func (s *Specification) FieldsWithRole(r Role) []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Role == r {
			out = append(out, f)
		}
	}

	return out
}

func (s *Specification) String() string {
	return s.method + " " + s.template.String()
}
