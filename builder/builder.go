// Package builder turns a specification and a set of field values into
// an immutable Request, and dispatches it through a transport.
//
// A Builder is owned by one goroutine. It starts Accumulating, accepts
// values through Set, and ends Finalized or Failed on the first Build.
package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/adamwoolhether/restbuilder/spec"
	"github.com/adamwoolhether/restbuilder/transport"
)

// State is the lifecycle position of a Builder.
type State int

const (
	Accumulating State = iota
	Finalized
	Failed
)

func (s State) String() string {
	switch s {
	case Finalized:
		return "finalized"
	case Failed:
		return "failed"
	}

	return "accumulating"
}

// Hook adjusts a finished Request. It runs last, after dynamic headers.
type Hook func(Request) (Request, error)

// Builder accumulates field values for one specification.
type Builder struct {
	spec    *spec.Specification
	values  map[string]any
	pending []pendingErr
	headers []headerKV
	state   State

	baseURL   string
	hook      Hook
	transport transport.Transport
	async     transport.AsyncTransport
	timeout   time.Duration
	logger    *slog.Logger
}

type pendingErr struct {
	name string
	err  error
}

// structKey files errors raised by SetStruct itself.
const structKey = "\x00struct"

// Option seeds a Builder at construction.
type Option func(*Builder)

// WithBaseURL sets the URL prefix joined with the expanded path.
func WithBaseURL(u string) Option {
	return func(b *Builder) { b.baseURL = u }
}

// WithHook installs the request hook.
func WithHook(h Hook) Option {
	return func(b *Builder) { b.hook = h }
}

// WithTransport sets the transport used by Send and SendInto.
func WithTransport(t transport.Transport) Option {
	return func(b *Builder) { b.transport = t }
}

// WithAsyncTransport sets the transport used by SendAsync. Without it
// SendAsync runs the blocking transport on a goroutine.
func WithAsyncTransport(at transport.AsyncTransport) Option {
	return func(b *Builder) { b.async = at }
}

// WithLogger sets the logger used for send diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// New returns an Accumulating builder for s.
func New(s *spec.Specification, optFns ...Option) *Builder {
	b := &Builder{
		spec:   s,
		values: make(map[string]any),
		logger: slog.Default(),
	}
	for _, opt := range optFns {
		opt(b)
	}

	return b
}

// Spec returns the specification the builder was created from.
func (b *Builder) Spec() *spec.Specification { return b.spec }

// State returns the lifecycle state.
func (b *Builder) State() State { return b.state }

// Value returns the value currently set for name, before defaults.
func (b *Builder) Value(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Set stores value for the named field, replacing any earlier value.
// A nil value, or a nil pointer, leaves the field absent. Unknown names
// and values of the wrong type are reported by Build.
//
// Setters are ignored once the builder left the Accumulating state.
func (b *Builder) Set(name string, value any) *Builder {
	if b.state != Accumulating {
		return b
	}

	b.clearPending(name)
	delete(b.values, name)

	f, ok := b.spec.Field(name)
	if !ok {
		b.pending = append(b.pending, pendingErr{name: name, err: &ValidationError{Field: name, Reason: "unknown field"}})
		return b
	}

	v, err := spec.Coerce(value, f.Type, f.Convert)
	if err != nil {
		b.pending = append(b.pending, pendingErr{name: name, err: &ValidationError{Field: name, Reason: err.Error(), Err: err}})
		return b
	}

	if _, ok := indirect(v); ok {
		b.values[name] = v
	}

	return b
}

// Unset makes the named field absent again.
func (b *Builder) Unset(name string) *Builder {
	if b.state != Accumulating {
		return b
	}

	b.clearPending(name)
	delete(b.values, name)

	return b
}

// SetStruct sets every field of a struct-derived specification from v,
// which must be of the struct type, or a pointer to it. Nil pointers are
// unset. Zero values are unset for omitempty fields and for fields with
// a default, so the default applies.
func (b *Builder) SetStruct(v any) *Builder {
	if b.state != Accumulating {
		return b
	}

	b.clearPending(structKey)

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}

	st := b.spec.StructType()
	if st == nil || !rv.IsValid() || rv.Type() != st {
		b.pending = append(b.pending, pendingErr{
			name: structKey,
			err:  &ValidationError{Field: b.spec.Name(), Reason: fmt.Sprintf("expected %v, got %T", st, v)},
		})
		return b
	}

	for _, f := range b.spec.Fields() {
		idx := f.StructIndex()
		if idx == nil {
			continue
		}

		fv := rv.FieldByIndex(idx)
		switch {
		case fv.Kind() == reflect.Pointer && fv.IsNil():
			b.Unset(f.Name)
		case (f.OmitEmpty() || f.HasDefault()) && fv.IsZero():
			b.Unset(f.Name)
		default:
			b.Set(f.Name, fv.Interface())
		}
	}

	return b
}

// Header adds a dynamic header. Dynamic headers override header fields
// of the same name.
func (b *Builder) Header(name, value string) *Builder {
	if b.state != Accumulating {
		return b
	}

	b.headers = append(b.headers, headerKV{name: name, value: value})

	return b
}

// BaseURL overrides the base URL.
func (b *Builder) BaseURL(u string) *Builder {
	if b.state != Accumulating {
		return b
	}

	b.baseURL = u

	return b
}

// Timeout bounds the send. It has no effect on Build.
func (b *Builder) Timeout(d time.Duration) *Builder {
	if b.state != Accumulating {
		return b
	}

	b.timeout = d

	return b
}

// Clone returns an Accumulating copy holding the same values, options
// and dynamic headers. It is the way to retry after a failed Build.
func (b *Builder) Clone() *Builder {
	c := *b
	c.values = maps.Clone(b.values)
	c.pending = slices.Clone(b.pending)
	c.headers = slices.Clone(b.headers)
	c.state = Accumulating

	return &c
}

// Build validates the accumulated values and assembles the Request. The
// builder is consumed either way: success leaves it Finalized, failure
// leaves it Failed, and further calls return ErrBuilderConsumed.
func (b *Builder) Build() (Request, error) {
	if b.state != Accumulating {
		return Request{}, ErrBuilderConsumed
	}

	req, err := b.assemble()
	if err != nil {
		b.state = Failed
		return Request{}, err
	}

	b.state = Finalized

	return req, nil
}

func (b *Builder) assemble() (Request, error) {
	values, err := b.resolve()
	if err != nil {
		return Request{}, err
	}

	params := make(map[string]any)
	for _, f := range b.spec.FieldsWithRole(spec.RolePath) {
		if v, ok := values[f.Name]; ok {
			if v, ok := indirect(v); ok {
				params[f.Key()] = v
			}
		}
	}

	path, err := expandPath(b.spec.Template(), params)
	if err != nil {
		return Request{}, err
	}

	cfg, _ := b.spec.QueryConfig()
	query, err := encodeQuery(cfg, b.spec.FieldsWithRole(spec.RoleQuery), values)
	if err != nil {
		return Request{}, err
	}

	c := b.spec.Codec()
	body, err := encodeBody(c, b.spec.FieldsWithRole(spec.RoleBody), values)
	if err != nil {
		return Request{}, err
	}

	headers, err := assembleHeaders(b.spec.FieldsWithRole(spec.RoleHeader), values, b.headers)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		endpoint: b.spec.Name(),
		method:   b.spec.Method(),
		headers:  headers,
		body:     body,
	}
	if body != nil && req.ContentType() == "" {
		req.headers = setHeader(req.headers, "Content-Type", c.ContentType())
	}

	req.url, err = joinURL(b.baseURL, path, query)
	if err != nil {
		return Request{}, err
	}

	if b.hook != nil {
		req, err = b.hook(req)
		if err != nil {
			return Request{}, fmt.Errorf("running request hook: %w", err)
		}
	}

	return req, nil
}

func (b *Builder) clearPending(name string) {
	b.pending = slices.DeleteFunc(b.pending, func(p pendingErr) bool { return p.name == name })
}

var errBaseURLSuffix = errors.New("base url must not carry a query or fragment")

// joinURL appends path and query to base. An empty base yields a
// relative reference.
func joinURL(base, path, query string) (string, error) {
	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return "", &URLBuildError{URL: base, Err: err}
		}
		if u.RawQuery != "" || u.Fragment != "" {
			return "", &URLBuildError{URL: base, Err: errBaseURLSuffix}
		}
	}

	full := strings.TrimRight(base, "/") + path
	if query != "" {
		full += "?" + query
	}

	if _, err := url.Parse(full); err != nil {
		return "", &URLBuildError{URL: full, Err: err}
	}

	return full, nil
}
