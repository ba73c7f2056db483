// Package transport defines the capability the request builders dispatch
// through. The core depends only on these interfaces; concrete network
// clients live elsewhere, see the httptransport subpackage.
package transport

import (
	"context"
)

// Transport sends a fully assembled request and blocks until the
// response bytes or an error are available.
type Transport interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error)
}

// AsyncTransport starts a send and returns immediately. The returned
// channel delivers exactly one Result and is then closed.
type AsyncTransport interface {
	SendAsync(ctx context.Context, method, url string, headers map[string]string, body []byte) <-chan Result
}

// Result is the outcome of an asynchronous send.
type Result struct {
	Body []byte
	Err  error
}

// Func adapts an ordinary function to a Transport.
type Func func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error)

// Send calls f.
func (f Func) Send(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	return f(ctx, method, url, headers, body)
}

// Async runs a blocking Transport on its own goroutine per send.
func Async(t Transport) AsyncTransport {
	return async{t: t}
}

type async struct {
	t Transport
}

func (a async) SendAsync(ctx context.Context, method, url string, headers map[string]string, body []byte) <-chan Result {
	out := make(chan Result, 1)

	go func() {
		defer close(out)

		b, err := a.t.Send(ctx, method, url, headers, body)
		out <- Result{Body: b, Err: err}
	}()

	return out
}

// Blocking waits on an AsyncTransport, making it usable where a
// Transport is expected.
func Blocking(at AsyncTransport) Transport {
	return Func(func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		select {
		case res, ok := <-at.SendAsync(ctx, method, url, headers, body):
			if !ok {
				return nil, Wrap(ErrNoResult)
			}
			return res.Body, res.Err
		case <-ctx.Done():
			return nil, Wrap(ctx.Err())
		}
	})
}
