// Package httptransport sends assembled requests over net/http. Its
// [Client] satisfies transport.Transport, and transport.Async turns it
// into an asynchronous transport.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/restbuilder/transport/httptransport/throttle"
)

// Client wraps an *http.Client. It sets a default *http.Client and
// *http.Transport, which can be customized via optional funcs.
type Client struct {
	c          *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	maxErrBody int64
}

// Build instantiates a Client with the provided options.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:          &http.Client{},
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer(""),
		maxErrBody: maxErrBodySize,
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		hc := *opts.client
		client.c = &hc
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.maxErrBody > 0 {
		client.maxErrBody = opts.maxErrBody
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case client.c.Transport != nil:
		transport = client.c.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Send issues the request and returns the body of a 2xx response. Header
// names are sent exactly as given. Any other status yields an
// [UnexpectedStatusError].
func (c *Client) Send(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	ctx, span := c.startSpan(ctx, method, url)
	defer span.End()

	var payload io.Reader
	if body != nil {
		payload = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for k, v := range headers {
		req.Header[k] = []string{v}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	var out []byte
	readFn := func(resp *http.Response) error {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		out = b
		return nil
	}

	if err := c.exec(req, span, readFn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return out, nil
}

// startSpan opens the client span for one send.
func (c *Client) startSpan(ctx context.Context, method, url string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "httptransport.send", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", url),
	)

	return ctx, span
}

// exec runs the request and hands a 2xx response to fn.
func (c *Client) exec(req *http.Request, span trace.Span, fn func(*http.Response) error) error {
	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("exec http do: %w", err)
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err = io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err = resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxErrBody))
		if err != nil {
			b = []byte("unable to read body")
		}

		return statusError(resp.StatusCode, b)
	}

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}
