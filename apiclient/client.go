// Package apiclient groups endpoint specifications behind one facade
// that shares a base URL, a request hook and a transport. Each endpoint
// is reachable by a snake case name and yields a fresh builder per call.
package apiclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/adamwoolhether/restbuilder/builder"
	"github.com/adamwoolhether/restbuilder/internal/casing"
	"github.com/adamwoolhether/restbuilder/spec"
	"github.com/adamwoolhether/restbuilder/transport"
)

var (
	ErrDuplicateEndpoint = errors.New("duplicate endpoint name")
	ErrUnknownEndpoint   = errors.New("unknown endpoint")
	ErrInvalidBaseURL    = errors.New("invalid base url")
	ErrMissingTransport  = errors.New("transport must not be nil")
)

// Config is the configuration shared by every endpoint of a Client.
type Config struct {
	// BaseURL prefixes every expanded path, e.g. https://api.example.com/v1.
	BaseURL string
	// Hook runs on every built request.
	Hook builder.Hook
	// Timeout bounds each send unless the builder sets its own.
	Timeout time.Duration
}

func (c Config) validate() error {
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.BaseURL == "" {
		return nil
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q needs a scheme and host", ErrInvalidBaseURL, c.BaseURL)
	}

	return nil
}

// Client is immutable once built. Hot swapping the transport or the
// config returns a new Client sharing the endpoint registrations.
type Client struct {
	cfg       Config
	transport transport.Transport
	async     transport.AsyncTransport
	logger    *slog.Logger
	endpoints map[string]*spec.Specification
	names     []string
}

// New builds a facade over t. Endpoint names are the alias when given,
// otherwise the snake case form of the specification name. t may be nil
// when WithAsyncTransport is given, in which case Send blocks on it.
func New(cfg Config, t transport.Transport, optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	switch {
	case t == nil && opts.async == nil:
		return nil, ErrMissingTransport
	case t == nil:
		t = transport.Blocking(opts.async)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := Client{
		cfg:       cfg,
		transport: t,
		async:     opts.async,
		logger:    slog.Default(),
		endpoints: make(map[string]*spec.Specification, len(opts.endpoints)),
	}
	if opts.logger != nil {
		c.logger = opts.logger
	}

	for _, r := range opts.endpoints {
		name := r.alias
		if name == "" {
			name = casing.Snake(r.spec.Name())
		}

		if prev, dup := c.endpoints[name]; dup {
			return nil, fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateEndpoint, name, prev.Name(), r.spec.Name())
		}
		c.endpoints[name] = r.spec
		c.names = append(c.names, name)
	}

	c.logger.Debug("api client ready", "base_url", cfg.BaseURL, "endpoints", len(c.names))

	return &c, nil
}

// FromCatalog builds a facade over every endpoint of cat, using the
// catalog's base URL unless cfg sets one.
func FromCatalog(cat *spec.Catalog, cfg Config, t transport.Transport, optFns ...Option) (*Client, error) {
	if cat == nil {
		return nil, errors.New("catalog must not be nil")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = cat.BaseURL
	}

	regs := make([]Option, 0, len(cat.Endpoints)+len(optFns))
	for _, ep := range cat.Endpoints {
		if ep.Alias != "" {
			regs = append(regs, WithAlias(ep.Spec, ep.Alias))
			continue
		}
		regs = append(regs, WithEndpoint(ep.Spec))
	}

	return New(cfg, t, append(regs, optFns...)...)
}

// Endpoint returns a new builder for the named endpoint, seeded with the
// client's base URL, hook, transports and logger.
func (c *Client) Endpoint(name string) (*builder.Builder, error) {
	s, ok := c.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}

	optFns := []builder.Option{
		builder.WithBaseURL(c.cfg.BaseURL),
		builder.WithLogger(c.logger),
	}
	if c.cfg.Hook != nil {
		optFns = append(optFns, builder.WithHook(c.cfg.Hook))
	}
	if c.transport != nil {
		optFns = append(optFns, builder.WithTransport(c.transport))
	}
	if c.async != nil {
		optFns = append(optFns, builder.WithAsyncTransport(c.async))
	}

	b := builder.New(s, optFns...)
	if c.cfg.Timeout > 0 {
		b.Timeout(c.cfg.Timeout)
	}

	return b, nil
}

// MustEndpoint is Endpoint for names known to be registered. It panics
// otherwise.
func (c *Client) MustEndpoint(name string) *builder.Builder {
	b, err := c.Endpoint(name)
	if err != nil {
		panic(err)
	}

	return b
}

// Spec returns the specification registered under name.
func (c *Client) Spec(name string) (*spec.Specification, bool) {
	s, ok := c.endpoints[name]
	return s, ok
}

// Names lists endpoint names in registration order.
func (c *Client) Names() []string {
	return slices.Clone(c.names)
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// WithTransport returns a copy of c sending through t. Builders already
// handed out keep the transport they were created with.
func (c *Client) WithTransport(t transport.Transport) *Client {
	cpy := c.clone()
	cpy.transport = t
	return cpy
}

// WithAsyncTransport returns a copy of c using at for asynchronous sends.
func (c *Client) WithAsyncTransport(at transport.AsyncTransport) *Client {
	cpy := c.clone()
	cpy.async = at
	return cpy
}

// WithConfig returns a copy of c using cfg.
func (c *Client) WithConfig(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cpy := c.clone()
	cpy.cfg = cfg
	return cpy, nil
}

// WithBaseURL returns a copy of c targeting baseURL.
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	cfg := c.cfg
	cfg.BaseURL = baseURL
	return c.WithConfig(cfg)
}

// clone shares the registrations, which are never written after New.
func (c *Client) clone() *Client {
	cpy := *c
	return &cpy
}
