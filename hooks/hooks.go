// Package hooks provides request hooks for cross-cutting concerns:
// authentication, request ids and shared headers.
package hooks

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adamwoolhether/restbuilder/builder"
)

// Chain runs hooks in order, feeding each the previous result. Nil hooks
// are skipped.
func Chain(hooks ...builder.Hook) builder.Hook {
	return func(req builder.Request) (builder.Request, error) {
		for _, h := range hooks {
			if h == nil {
				continue
			}

			var err error
			req, err = h(req)
			if err != nil {
				return builder.Request{}, err
			}
		}

		return req, nil
	}
}

// StaticHeaders sets every header in headers, replacing values the
// request already carries.
func StaticHeaders(headers map[string]string) builder.Hook {
	return func(req builder.Request) (builder.Request, error) {
		for k, v := range headers {
			req = req.WithHeader(k, v)
		}

		return req, nil
	}
}

// DefaultHeaders sets the headers the request does not carry yet.
func DefaultHeaders(headers map[string]string) builder.Hook {
	return func(req builder.Request) (builder.Request, error) {
		for k, v := range headers {
			if _, ok := req.Header(k); !ok {
				req = req.WithHeader(k, v)
			}
		}

		return req, nil
	}
}

// RequestID stamps a random UUID under header unless the request has
// one already. An empty header means X-Request-Id.
func RequestID(header string) builder.Hook {
	if header == "" {
		header = "X-Request-Id"
	}

	return func(req builder.Request) (builder.Request, error) {
		if _, ok := req.Header(header); ok {
			return req, nil
		}

		id, err := uuid.NewRandom()
		if err != nil {
			return builder.Request{}, fmt.Errorf("generating request id: %w", err)
		}

		return req.WithHeader(header, id.String()), nil
	}
}

// Log writes each finished request to logger at debug level.
func Log(logger *slog.Logger) builder.Hook {
	return func(req builder.Request) (builder.Request, error) {
		logger.Debug("request built", "endpoint", req.Endpoint(), "method", req.Method(), "url", req.URL(), "body_bytes", len(req.Body()))
		return req, nil
	}
}
