// Package openapi derives endpoint specifications from an OpenAPI 3
// document.
//
// Every operation becomes one specification. Path, query and header
// parameters become fields of the matching role and the properties of an
// object request body become body fields. Any other request body is bound
// to a single whole body field named "body". Cookie parameters are not
// represented.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/adamwoolhether/restbuilder/codec"
	"github.com/adamwoolhether/restbuilder/internal/casing"
	"github.com/adamwoolhether/restbuilder/spec"
)

var (
	ErrNoOperations          = errors.New("document declares no operations")
	ErrUnsupportedParameter  = errors.New("unsupported parameter")
	ErrUnsupportedMediaType  = errors.New("unsupported request media type")
	errMissingParameterValue = errors.New("parameter reference has no value")
)

const componentPrefix = "#/components/schemas/"

var methodOrder = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
}

// mediaTypes are the request and response media types with a codec, in
// order of preference.
var mediaTypes = []struct {
	mime  string
	codec codec.Codec
}{
	{"application/json", codec.JSON},
	{"application/msgpack", codec.MsgPack},
	{"application/x-msgpack", codec.MsgPack},
}

// Load parses and validates a JSON or YAML OpenAPI 3 document and
// converts it with FromDocument.
func Load(ctx context.Context, data []byte) (*spec.Catalog, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("loading openapi document: %w", err)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validating openapi document: %w", err)
	}

	return FromDocument(doc)
}

// FromDocument converts every operation of doc into a specification.
// Operations are ordered by path, then by method. The first server URL,
// if any, becomes the catalog base URL.
func FromDocument(doc *openapi3.T) (*spec.Catalog, error) {
	if doc == nil || doc.Paths == nil {
		return nil, ErrNoOperations
	}

	var cat spec.Catalog
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		cat.BaseURL = doc.Servers[0].URL
	}

	paths := doc.Paths.Map()
	for _, path := range slices.Sorted(maps.Keys(paths)) {
		item := paths[path]
		if item == nil {
			continue
		}

		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}

			s, err := fromOperation(method, path, item.Parameters, op)
			if err != nil {
				return nil, fmt.Errorf("converting %s %s: %w", method, path, err)
			}

			cat.Endpoints = append(cat.Endpoints, spec.Endpoint{Spec: s})
		}
	}

	if len(cat.Endpoints) == 0 {
		return nil, ErrNoOperations
	}

	return &cat, nil
}

func fromOperation(method, path string, shared openapi3.Parameters, op *openapi3.Operation) (*spec.Specification, error) {
	name := op.OperationID
	if name == "" {
		name = operationName(method, path)
	}

	params, err := mergeParameters(shared, op.Parameters)
	if err != nil {
		return nil, err
	}

	var opts []spec.Option
	taken := make(map[string]bool)

	for _, p := range params {
		if p.In == openapi3.ParameterInCookie {
			continue
		}

		fieldName := casing.Snake(p.Name)
		if fieldName == "" {
			return nil, fmt.Errorf("%w: %s parameter %q has no usable name", ErrUnsupportedParameter, p.In, p.Name)
		}
		taken[fieldName] = true

		var fopts []spec.FieldOption
		switch p.In {
		case openapi3.ParameterInPath:
			// Wire names of path parameters never reach the request, so the
			// placeholder is renamed to the field name.
			path = strings.ReplaceAll(path, "{"+p.Name+"}", "{"+fieldName+"}")
			fopts = append(fopts, spec.Path())
		case openapi3.ParameterInQuery:
			fopts = append(fopts, spec.Query())
			if fieldName != p.Name {
				fopts = append(fopts, spec.Rename(p.Name))
			}
		case openapi3.ParameterInHeader:
			fopts = append(fopts, spec.HeaderName(p.Name))
		default:
			return nil, fmt.Errorf("%w: %q in %q", ErrUnsupportedParameter, p.Name, p.In)
		}

		if !p.Required && p.In != openapi3.ParameterInPath {
			fopts = append(fopts, spec.Optional())
		}

		fopts = append(fopts, schemaOptions(p.Schema)...)
		opts = append(opts, spec.WithField(fieldName, fopts...))
	}

	var bodyCodec codec.Codec
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		bodyOpts, c, err := bodyFields(op.RequestBody.Value, taken)
		if err != nil {
			return nil, err
		}
		opts = append(opts, bodyOpts...)
		bodyCodec = c
	}

	hint, respCodec := response(op.Responses)
	if hint != "" {
		opts = append(opts, spec.WithResponseHint(hint))
	}

	switch {
	case bodyCodec != nil:
		opts = append(opts, spec.WithCodec(bodyCodec))
	case respCodec != nil:
		opts = append(opts, spec.WithCodec(respCodec))
	}

	return spec.New(name, method, path, opts...)
}

// mergeParameters applies operation parameters over the path item's
// shared ones. A parameter is identified by its location and name.
func mergeParameters(shared, own openapi3.Parameters) ([]*openapi3.Parameter, error) {
	type key struct{ in, name string }

	var out []*openapi3.Parameter
	index := make(map[key]int)

	for _, refs := range []openapi3.Parameters{shared, own} {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				return nil, errMissingParameterValue
			}

			k := key{ref.Value.In, ref.Value.Name}
			if i, ok := index[k]; ok {
				out[i] = ref.Value
				continue
			}
			index[k] = len(out)
			out = append(out, ref.Value)
		}
	}

	return out, nil
}

func bodyFields(rb *openapi3.RequestBody, taken map[string]bool) ([]spec.Option, codec.Codec, error) {
	var media *openapi3.MediaType
	var c codec.Codec
	for _, mt := range mediaTypes {
		if m := rb.Content.Get(mt.mime); m != nil {
			media, c = m, mt.codec
			break
		}
	}
	if media == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, strings.Join(slices.Sorted(maps.Keys(rb.Content)), ", "))
	}

	var schema *openapi3.Schema
	if media.Schema != nil {
		schema = media.Schema.Value
	}

	if schema == nil || !hasType(schema, openapi3.TypeObject) || len(schema.Properties) == 0 {
		name := "body"
		if taken[name] {
			name = "request_body"
		}

		fopts := []spec.FieldOption{spec.Whole()}
		if !rb.Required {
			fopts = append(fopts, spec.Optional())
		}

		return []spec.Option{spec.WithField(name, fopts...)}, c, nil
	}

	var opts []spec.Option
	for _, prop := range slices.Sorted(maps.Keys(schema.Properties)) {
		name := casing.Snake(prop)
		if name == "" {
			return nil, nil, fmt.Errorf("%w: body property %q has no usable name", ErrUnsupportedParameter, prop)
		}
		if taken[name] {
			name = "body_" + name
		}
		taken[name] = true

		fopts := []spec.FieldOption{spec.Body()}
		if name != prop {
			fopts = append(fopts, spec.Rename(prop))
		}
		if !slices.Contains(schema.Required, prop) {
			fopts = append(fopts, spec.Optional())
		}
		fopts = append(fopts, schemaOptions(schema.Properties[prop])...)

		opts = append(opts, spec.WithField(name, fopts...))
	}

	return opts, c, nil
}

// response returns the type hint and codec of the first success response
// carrying a known media type.
func response(responses *openapi3.Responses) (string, codec.Codec) {
	if responses == nil {
		return "", nil
	}

	for _, code := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted} {
		resp := responses.Status(code)
		if resp == nil || resp.Value == nil {
			continue
		}

		for _, mt := range mediaTypes {
			m := resp.Value.Content.Get(mt.mime)
			if m == nil || m.Schema == nil {
				continue
			}
			return schemaName(m.Schema), mt.codec
		}
	}

	return "", nil
}

// schemaName returns the component name of a direct schema reference, or
// "[]Name" for an array of one.
func schemaName(ref *openapi3.SchemaRef) string {
	if ref == nil {
		return ""
	}

	if name, ok := strings.CutPrefix(ref.Ref, componentPrefix); ok {
		return name
	}

	if ref.Value != nil && hasType(ref.Value, openapi3.TypeArray) {
		if name := schemaName(ref.Value.Items); name != "" {
			return "[]" + name
		}
	}

	return ""
}

// schemaOptions maps the scalar parts of a schema onto field options: a
// Go type, a default and validator rules.
func schemaOptions(ref *openapi3.SchemaRef) []spec.FieldOption {
	if ref == nil || ref.Value == nil {
		return nil
	}
	s := ref.Value

	t := goType(s)
	if t == nil {
		return nil
	}

	opts := []spec.FieldOption{spec.OfType(t), spec.Convert()}

	if s.Default != nil && t.Kind() != reflect.Slice {
		if v, err := spec.Coerce(s.Default, t, true); err == nil {
			opts = append(opts, spec.Default(v))
		}
	}

	if r := rulesFor(s, t); r != "" {
		opts = append(opts, spec.Rules(r))
	}

	return opts
}

func goType(s *openapi3.Schema) reflect.Type {
	switch {
	case hasType(s, openapi3.TypeString):
		if s.Format == "date-time" {
			return reflect.TypeFor[time.Time]()
		}
		return reflect.TypeFor[string]()
	case hasType(s, openapi3.TypeInteger):
		if s.Format == "int32" {
			return reflect.TypeFor[int32]()
		}
		return reflect.TypeFor[int64]()
	case hasType(s, openapi3.TypeNumber):
		if s.Format == "float" {
			return reflect.TypeFor[float32]()
		}
		return reflect.TypeFor[float64]()
	case hasType(s, openapi3.TypeBoolean):
		return reflect.TypeFor[bool]()
	case hasType(s, openapi3.TypeArray):
		if s.Items == nil || s.Items.Value == nil {
			return nil
		}
		elem := goType(s.Items.Value)
		if elem == nil || elem.Kind() == reflect.Slice {
			return nil
		}
		return reflect.SliceOf(elem)
	}

	return nil
}

var formatRules = map[string]string{
	"email": "email",
	"uuid":  "uuid",
	"uri":   "uri",
	"ipv4":  "ipv4",
	"ipv6":  "ipv6",
}

// rulesFor translates schema constraints into validator rules. Bounds
// that the validator cannot express for the field's kind are dropped.
func rulesFor(s *openapi3.Schema, t reflect.Type) string {
	var rules []string

	switch t.Kind() {
	case reflect.String:
		if s.MinLength > 0 {
			rules = append(rules, "min="+strconv.FormatUint(s.MinLength, 10))
		}
		if s.MaxLength != nil {
			rules = append(rules, "max="+strconv.FormatUint(*s.MaxLength, 10))
		}
		if r, ok := formatRules[s.Format]; ok {
			rules = append(rules, r)
		}
		if r := oneOf(s.Enum); r != "" {
			rules = append(rules, r)
		}
	case reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		if s.Min != nil && isWhole(*s.Min) {
			rules = append(rules, "min="+strconv.FormatInt(int64(*s.Min), 10))
		}
		if s.Max != nil && isWhole(*s.Max) {
			rules = append(rules, "max="+strconv.FormatInt(int64(*s.Max), 10))
		}
	case reflect.Slice:
		if s.MinItems > 0 {
			rules = append(rules, "min="+strconv.FormatUint(s.MinItems, 10))
		}
		if s.MaxItems != nil {
			rules = append(rules, "max="+strconv.FormatUint(*s.MaxItems, 10))
		}
	}

	return strings.Join(rules, ",")
}

// oneOf renders a string enum as a oneof rule. Values containing spaces
// or rule separators cannot be expressed and disable the rule.
func oneOf(enum []any) string {
	if len(enum) == 0 {
		return ""
	}

	values := make([]string, 0, len(enum))
	for _, e := range enum {
		v, ok := e.(string)
		if !ok || v == "" || strings.ContainsAny(v, " ,|=") {
			return ""
		}
		values = append(values, v)
	}

	return "oneof=" + strings.Join(values, " ")
}

func isWhole(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) < 1<<53
}

func hasType(s *openapi3.Schema, typ string) bool {
	return s != nil && s.Type != nil && slices.Contains(*s.Type, typ)
}

// operationName builds a name for operations without an operationId:
// GET /posts/{id}/comments becomes getPostsByIdComments.
func operationName(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))

	for _, seg := range strings.Split(path, "/") {
		if param, ok := strings.CutPrefix(seg, "{"); ok {
			b.WriteString("By")
			seg = strings.TrimSuffix(param, "}")
		}

		words := strings.FieldsFunc(seg, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			runes := []rune(w)
			runes[0] = unicode.ToUpper(runes[0])
			b.WriteString(string(runes))
		}
	}

	return b.String()
}
