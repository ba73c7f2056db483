package spec

import (
	"errors"
	"fmt"
	"io"

	"github.com/adamwoolhether/restbuilder/codec"
	"gopkg.in/yaml.v3"
)

// ErrUnknownValidator is returned when a catalog references a validator
// that was not supplied to LoadCatalog.
var ErrUnknownValidator = errors.New("unknown validator")

// Catalog is a set of endpoint specifications loaded from YAML, together
// with the base URL they are served from.
type Catalog struct {
	BaseURL   string
	Endpoints []Endpoint
}

// Endpoint pairs a specification with its optional facade alias.
type Endpoint struct {
	Spec  *Specification
	Alias string
}

type catalogFile struct {
	BaseURL   string         `yaml:"base_url"`
	Endpoints []endpointFile `yaml:"endpoints"`
}

type endpointFile struct {
	Name     string      `yaml:"name"`
	Alias    string      `yaml:"alias"`
	Method   string      `yaml:"method"`
	Path     string      `yaml:"path"`
	Response string      `yaml:"response"`
	Codec    string      `yaml:"codec"`
	Defaults bool        `yaml:"defaults"`
	Query    *queryFile  `yaml:"query"`
	Fields   []fieldFile `yaml:"fields"`
}

type queryFile struct {
	Sort           bool   `yaml:"sort"`
	ArrayFormat    string `yaml:"array_format"`
	SpaceAsPlus    bool   `yaml:"space_as_plus"`
	EncodeBrackets bool   `yaml:"encode_brackets"`
	MaxDepth       int    `yaml:"max_depth"`
}

type fieldFile struct {
	Name        string   `yaml:"name"`
	Role        string   `yaml:"role"`
	Rename      string   `yaml:"rename"`
	Header      string   `yaml:"header"`
	Optional    bool     `yaml:"optional"`
	Default     *string  `yaml:"default"`
	DefaultZero bool     `yaml:"default_zero"`
	Type        string   `yaml:"type"`
	Convert     bool     `yaml:"convert"`
	Rules       string   `yaml:"rules"`
	Validate    []string `yaml:"validate"`
	Whole       bool     `yaml:"whole"`
}

// LoadCatalog decodes a YAML endpoint catalog. Validator names listed
// under a field's validate key are resolved through validators.
//
//	base_url: https://jsonplaceholder.typicode.com
//	endpoints:
//	  - name: GetPost
//	    method: GET
//	    path: /posts/{id}
//	    fields:
//	      - {name: id, role: path, type: int}
func LoadCatalog(r io.Reader, validators map[string]Validator) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	cat := Catalog{
		BaseURL:   file.BaseURL,
		Endpoints: make([]Endpoint, 0, len(file.Endpoints)),
	}

	for _, ef := range file.Endpoints {
		s, err := ef.spec(validators)
		if err != nil {
			return nil, err
		}
		cat.Endpoints = append(cat.Endpoints, Endpoint{Spec: s, Alias: ef.Alias})
	}

	return &cat, nil
}

func (ef endpointFile) spec(validators map[string]Validator) (*Specification, error) {
	var optFns []Option

	if ef.Response != "" {
		optFns = append(optFns, WithResponseHint(ef.Response))
	}

	if ef.Codec != "" {
		c, err := codec.Lookup(ef.Codec)
		if err != nil {
			return nil, &DefinitionError{Spec: ef.Name, Err: err}
		}
		optFns = append(optFns, WithCodec(c))
	}

	if ef.Defaults {
		optFns = append(optFns, WithDefaults())
	}

	if ef.Query != nil {
		af, err := ParseArrayFormat(ef.Query.ArrayFormat)
		if err != nil {
			return nil, &DefinitionError{Spec: ef.Name, Err: err}
		}
		optFns = append(optFns, WithQueryConfig(QueryConfig{
			Sort:           ef.Query.Sort,
			ArrayFormat:    af,
			SpaceAsPlus:    ef.Query.SpaceAsPlus,
			EncodeBrackets: ef.Query.EncodeBrackets,
			MaxDepth:       ef.Query.MaxDepth,
		}))
	}

	for _, ff := range ef.Fields {
		fieldOpts, err := ff.options(validators)
		if err != nil {
			return nil, &DefinitionError{Spec: ef.Name, Field: ff.Name, Err: err}
		}
		optFns = append(optFns, WithField(ff.Name, fieldOpts...))
	}

	return New(ef.Name, ef.Method, ef.Path, optFns...)
}

func (ff fieldFile) options(validators map[string]Validator) ([]FieldOption, error) {
	role, err := ParseRole(ff.Role)
	if err != nil {
		return nil, err
	}

	var opts []FieldOption
	switch role {
	case RolePath:
		opts = append(opts, Path())
	case RoleQuery:
		opts = append(opts, Query())
	case RoleBody:
		opts = append(opts, Body())
	case RoleHeader:
		opts = append(opts, Header())
	}

	if ff.Rename != "" {
		opts = append(opts, Rename(ff.Rename))
	}
	if ff.Header != "" {
		opts = append(opts, HeaderName(ff.Header))
	}
	if ff.Optional {
		opts = append(opts, Optional())
	}
	if ff.Whole {
		opts = append(opts, Whole())
	}
	if ff.Convert {
		opts = append(opts, Convert())
	}
	if ff.Rules != "" {
		opts = append(opts, Rules(ff.Rules))
	}
	if ff.DefaultZero {
		opts = append(opts, DefaultZero())
	}

	var typ = typeNames["string"]
	if ff.Type != "" {
		t, err := LookupType(ff.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidField, err)
		}
		typ = t
		opts = append(opts, OfType(t))
	}

	if ff.Default != nil {
		v, err := ParseValue(*ff.Default, typ)
		if err != nil {
			return nil, fmt.Errorf("%w: default %q: %w", ErrInvalidField, *ff.Default, err)
		}
		opts = append(opts, Default(v))
	}

	for _, name := range ff.Validate {
		fn, ok := validators[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownValidator, name)
		}
		opts = append(opts, Validate(fn))
	}

	return opts, nil
}
