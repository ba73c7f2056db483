package apiclient

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/restbuilder/spec"
	"github.com/adamwoolhether/restbuilder/transport"
)

// Option is a functional option for configuring a [Client] via [New].
type Option func(*options) error
type options struct {
	endpoints []registration
	async     transport.AsyncTransport
	logger    *slog.Logger
}

type registration struct {
	spec  *spec.Specification
	alias string
}

// WithEndpoint registers specifications under their derived snake case
// names.
func WithEndpoint(specs ...*spec.Specification) Option {
	return func(o *options) error {
		for _, s := range specs {
			if s == nil {
				return errors.New("specification must not be nil")
			}
			o.endpoints = append(o.endpoints, registration{spec: s})
		}
		return nil
	}
}

// WithAlias registers s under alias instead of its derived name.
func WithAlias(s *spec.Specification, alias string) Option {
	return func(o *options) error {
		if s == nil {
			return errors.New("specification must not be nil")
		}
		if alias == "" {
			return errors.New("alias must not be empty")
		}
		o.endpoints = append(o.endpoints, registration{spec: s, alias: alias})
		return nil
	}
}

// WithAsyncTransport sets the transport used by Builder.SendAsync.
func WithAsyncTransport(at transport.AsyncTransport) Option {
	return func(o *options) error {
		if at == nil {
			return errors.New("async transport must not be nil")
		}
		o.async = at
		return nil
	}
}

// WithLogger injects a custom [slog.Logger], handed to every builder.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}
