package builder_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/adamwoolhether/restbuilder/builder"
	"github.com/adamwoolhether/restbuilder/transport"
	"github.com/google/go-cmp/cmp"
)

type post struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	UserID int    `json:"userId"`
}

type sent struct {
	method  string
	url     string
	headers map[string]string
	body    string
}

func recorder(resp string, got *sent) transport.Func {
	return func(_ context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		*got = sent{method: method, url: url, headers: headers, body: string(body)}
		return []byte(resp), nil
	}
}

func TestSend(t *testing.T) {
	var got sent
	b := builder.New(createPost,
		builder.WithBaseURL(baseURL),
		builder.WithTransport(recorder(`{"id":101,"title":"Hi","userId":1}`, &got)),
	)

	resp, err := b.Set("title", "Hi").Set("userId", 1).Send(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	exp := sent{
		method:  http.MethodPost,
		url:     baseURL + "/posts",
		headers: map[string]string{"Content-Type": "application/json"},
		body:    `{"title":"Hi","userId":1}`,
	}
	if diff := cmp.Diff(exp, got, cmp.AllowUnexported(sent{})); diff != "" {
		t.Errorf("sent request mismatch (-exp +got):\n%s", diff)
	}
	if exp := `{"id":101,"title":"Hi","userId":1}`; string(resp) != exp {
		t.Errorf("exp response %s, got %s", exp, resp)
	}
}

func TestSendInto(t *testing.T) {
	var got sent
	b := builder.New(getPost,
		builder.WithBaseURL(baseURL),
		builder.WithTransport(recorder(`{"id":7,"title":"Hello","userId":2}`, &got)),
	)

	p, err := builder.SendAs[post](t.Context(), b.Set("id", 7))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if diff := cmp.Diff(post{ID: 7, Title: "Hello", UserID: 2}, p); diff != "" {
		t.Errorf("response mismatch (-exp +got):\n%s", diff)
	}
	if exp := baseURL + "/posts/7"; got.url != exp {
		t.Errorf("exp url %q, got %q", exp, got.url)
	}
}

func TestSendInto_DecodeError(t *testing.T) {
	var got sent
	b := builder.New(getPost,
		builder.WithBaseURL(baseURL),
		builder.WithTransport(recorder(`not json`, &got)),
	)

	var p post
	err := b.Set("id", 7).SendInto(t.Context(), &p)

	var rde *builder.ResponseDecodeError
	if !errors.As(err, &rde) {
		t.Fatalf("exp *ResponseDecodeError, got %v", err)
	}
	if string(rde.Body) != "not json" {
		t.Errorf("exp body kept on the error, got %q", rde.Body)
	}
}

func TestSend_Preconditions(t *testing.T) {
	var got sent
	rec := recorder("", &got)

	tests := map[string]struct {
		opts []builder.Option
		exp  error
	}{
		"no base url":  {opts: []builder.Option{builder.WithTransport(rec)}, exp: builder.ErrMissingBaseURL},
		"no transport": {opts: []builder.Option{builder.WithBaseURL(baseURL)}, exp: builder.ErrMissingTransport},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b := builder.New(getPost, tc.opts...).Set("id", 1)

			if _, err := b.Send(t.Context()); !errors.Is(err, tc.exp) {
				t.Fatalf("exp %v, got %v", tc.exp, err)
			}
			if b.State() != builder.Accumulating {
				t.Errorf("a send that never built must leave the builder accumulating, got %v", b.State())
			}
		})
	}
}

func TestSend_TransportErrors(t *testing.T) {
	errRefused := errors.New("connection refused")

	tests := map[string]struct {
		fn      transport.Func
		timeout time.Duration
		expKind transport.Kind
		expIs   error
	}{
		"failed": {
			fn: func(context.Context, string, string, map[string]string, []byte) ([]byte, error) {
				return nil, errRefused
			},
			expKind: transport.KindFailed,
			expIs:   errRefused,
		},
		"canceled": {
			fn: func(context.Context, string, string, map[string]string, []byte) ([]byte, error) {
				return nil, context.Canceled
			},
			expKind: transport.KindCanceled,
			expIs:   transport.ErrCanceled,
		},
		"timeout": {
			fn: func(ctx context.Context, _ string, _ string, _ map[string]string, _ []byte) ([]byte, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			timeout: 10 * time.Millisecond,
			expKind: transport.KindTimeout,
			expIs:   transport.ErrTimeout,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b := builder.New(getPost, builder.WithBaseURL(baseURL), builder.WithTransport(tc.fn)).
				Set("id", 1).
				Timeout(tc.timeout)

			_, err := b.Send(t.Context())

			var te *transport.Error
			if !errors.As(err, &te) {
				t.Fatalf("exp *transport.Error, got %v", err)
			}
			if te.Kind != tc.expKind {
				t.Errorf("exp kind %v, got %v", tc.expKind, te.Kind)
			}
			if !errors.Is(err, tc.expIs) {
				t.Errorf("exp errors.Is %v, got %v", tc.expIs, err)
			}
			if !errors.Is(err, transport.ErrTransport) {
				t.Errorf("exp errors.Is ErrTransport")
			}
		})
	}
}

func TestSendAsync(t *testing.T) {
	var got sent
	b := builder.New(getPost,
		builder.WithBaseURL(baseURL),
		builder.WithTransport(recorder(`{"id":7}`, &got)),
	)

	res := <-b.Set("id", 7).SendAsync(t.Context())
	if res.Err != nil {
		t.Fatalf("expected no error, got: %v", res.Err)
	}
	if exp := `{"id":7}`; string(res.Body) != exp {
		t.Errorf("exp body %s, got %s", exp, res.Body)
	}
	if exp := baseURL + "/posts/7"; got.url != exp {
		t.Errorf("exp url %q, got %q", exp, got.url)
	}
}

type asyncFunc func(ctx context.Context) <-chan transport.Result

func (f asyncFunc) SendAsync(ctx context.Context, _, _ string, _ map[string]string, _ []byte) <-chan transport.Result {
	return f(ctx)
}

func TestSendAsync_AsyncTransport(t *testing.T) {
	hang := asyncFunc(func(context.Context) <-chan transport.Result {
		return make(chan transport.Result)
	})

	ctx, cancel := context.WithCancel(t.Context())
	ch := builder.New(getPost, builder.WithBaseURL(baseURL), builder.WithAsyncTransport(hang)).
		Set("id", 7).
		SendAsync(ctx)
	cancel()

	res, ok := <-ch
	if !ok {
		t.Fatal("exp a result before the channel closes")
	}
	if !errors.Is(res.Err, transport.ErrCanceled) {
		t.Errorf("exp ErrCanceled, got %v", res.Err)
	}
	if _, ok := <-ch; ok {
		t.Errorf("exp the channel to close after one result")
	}
}

func TestSendAsync_BuildError(t *testing.T) {
	var got sent
	ch := builder.New(createPost, builder.WithBaseURL(baseURL), builder.WithTransport(recorder("", &got))).
		Set("userId", 1).
		SendAsync(t.Context())

	res := <-ch
	if !errors.Is(res.Err, builder.ErrMissingField) {
		t.Fatalf("exp ErrMissingField, got %v", res.Err)
	}
	if got.url != "" {
		t.Errorf("exp nothing sent, got %q", got.url)
	}
}
