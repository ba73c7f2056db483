package builder

import (
	"context"
	"time"

	"github.com/adamwoolhether/restbuilder/transport"
)

// Send builds the request and dispatches it through the blocking
// transport, returning the raw response body. Transport failures are
// returned as *transport.Error.
func (b *Builder) Send(ctx context.Context) ([]byte, error) {
	if b.transport == nil {
		return nil, ErrMissingTransport
	}

	req, err := b.prepare()
	if err != nil {
		return nil, err
	}

	ctx, cancel := b.sendContext(ctx)
	defer cancel()

	start := time.Now()
	body, err := b.transport.Send(ctx, req.Method(), req.URL(), req.Headers(), req.Body())
	if err != nil {
		err = transport.Wrap(err)
		b.logger.Debug("request failed", "endpoint", req.Endpoint(), "method", req.Method(), "url", req.URL(), "error", err)
		return nil, err
	}
	b.logger.Debug("request sent", "endpoint", req.Endpoint(), "method", req.Method(), "url", req.URL(), "took", time.Since(start))

	return body, nil
}

// SendAsync builds the request and starts the send without blocking.
// The channel delivers exactly one Result, build errors included.
func (b *Builder) SendAsync(ctx context.Context) <-chan transport.Result {
	out := make(chan transport.Result, 1)

	at := b.async
	if at == nil && b.transport != nil {
		at = transport.Async(b.transport)
	}
	if at == nil {
		out <- transport.Result{Err: ErrMissingTransport}
		close(out)
		return out
	}

	req, err := b.prepare()
	if err != nil {
		out <- transport.Result{Err: err}
		close(out)
		return out
	}

	ctx, cancel := b.sendContext(ctx)
	in := at.SendAsync(ctx, req.Method(), req.URL(), req.Headers(), req.Body())

	go func() {
		defer close(out)
		defer cancel()

		var res transport.Result
		select {
		case r, ok := <-in:
			res = r
			if !ok {
				res = transport.Result{Err: transport.ErrNoResult}
			}
		case <-ctx.Done():
			res = transport.Result{Err: ctx.Err()}
		}

		if res.Err != nil {
			res.Err = transport.Wrap(res.Err)
			b.logger.Debug("async request failed", "endpoint", req.Endpoint(), "method", req.Method(), "url", req.URL(), "error", res.Err)
		}
		out <- res
	}()

	return out
}

// SendInto sends the request and decodes the response body into dst
// with the specification's codec. An empty body leaves dst untouched.
func (b *Builder) SendInto(ctx context.Context, dst any) error {
	body, err := b.Send(ctx)
	if err != nil {
		return err
	}

	return b.decode(body, dst)
}

// SendAs sends the request built by b and decodes the response into a
// new T.
func SendAs[T any](ctx context.Context, b *Builder) (T, error) {
	var v T
	if err := b.SendInto(ctx, &v); err != nil {
		return v, err
	}

	return v, nil
}

func (b *Builder) decode(body []byte, dst any) error {
	if len(body) == 0 || dst == nil {
		return nil
	}

	c := b.spec.Codec()
	if err := c.Unmarshal(body, dst); err != nil {
		return &ResponseDecodeError{Codec: c.Name(), Body: body, Err: err}
	}

	return nil
}

func (b *Builder) prepare() (Request, error) {
	if b.baseURL == "" {
		return Request{}, ErrMissingBaseURL
	}

	return b.Build()
}

func (b *Builder) sendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout > 0 {
		return context.WithTimeout(ctx, b.timeout)
	}

	return context.WithCancel(ctx)
}
