package throttle_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamwoolhether/restbuilder/transport/httptransport/throttle"
)

func TestNewRoundTripper_Validation(t *testing.T) {
	tests := map[string]struct {
		cfg    throttle.Config
		expErr error
	}{
		"zero rps":       {cfg: throttle.Config{RPS: 0, Burst: 10}, expErr: throttle.ErrMustNotBeZero},
		"negative rps":   {cfg: throttle.Config{RPS: -5, Burst: 10}, expErr: throttle.ErrMustNotBeZero},
		"zero burst":     {cfg: throttle.Config{RPS: 10, Burst: 0}, expErr: throttle.ErrMustNotBeZero},
		"negative burst": {cfg: throttle.Config{RPS: 10, Burst: -5}, expErr: throttle.ErrMustNotBeZero},
		"valid":          {cfg: throttle.Config{RPS: 10, Burst: 20}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rt, err := throttle.NewRoundTripper(tc.cfg, nil, http.DefaultTransport)
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp err %v; got: %v", tc.expErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("exp nil err, got: %v", err)
			}
			if rt == nil {
				t.Error("exp non-nil RoundTripper")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := map[string]struct {
		cfg         throttle.Config
		requests    int
		reqTimeout  time.Duration
		preCancel   bool
		expFailures int
		expIs       error
		minDuration time.Duration
		maxDuration time.Duration
	}{
		"within burst": {
			cfg:         throttle.Config{RPS: 5, Burst: 5},
			requests:    5,
			maxDuration: 200 * time.Millisecond,
		},
		"over burst waits": {
			cfg:         throttle.Config{RPS: 10, Burst: 5},
			requests:    8,
			reqTimeout:  time.Second,
			minDuration: 250 * time.Millisecond,
		},
		"over burst times out": {
			cfg:         throttle.Config{RPS: 5, Burst: 2},
			requests:    5,
			reqTimeout:  50 * time.Millisecond,
			expFailures: 3,
			expIs:       throttle.ErrWaitingFailed,
		},
		"pre-cancelled": {
			cfg:         throttle.Config{RPS: 20, Burst: 10},
			requests:    1,
			preCancel:   true,
			expFailures: 1,
			expIs:       throttle.ErrContextEnded,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			var logs atomic.Int32
			logger := slog.New(countingHandler{n: &logs})

			rt, err := throttle.NewRoundTripper(tc.cfg, func() *slog.Logger { return logger }, http.DefaultTransport)
			if err != nil {
				t.Fatal(err)
			}
			client := &http.Client{Transport: rt}

			var wg sync.WaitGroup
			errs := make([]error, tc.requests)
			start := time.Now()

			for i := range tc.requests {
				wg.Go(func() {
					ctx := t.Context()
					if tc.reqTimeout > 0 {
						var cancel context.CancelFunc
						ctx, cancel = context.WithTimeout(ctx, tc.reqTimeout)
						defer cancel()
					}
					if tc.preCancel {
						var cancel context.CancelFunc
						ctx, cancel = context.WithCancel(ctx)
						cancel()
					}

					req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
					if err != nil {
						errs[i] = err
						return
					}

					resp, err := client.Do(req)
					if err != nil {
						errs[i] = err
						return
					}
					resp.Body.Close()
				})
			}
			wg.Wait()
			took := time.Since(start)

			failures := 0
			for _, err := range errs {
				if err == nil {
					continue
				}
				failures++
				if tc.expIs != nil && !errors.Is(err, tc.expIs) {
					t.Errorf("exp errors.Is %v, got %v", tc.expIs, err)
				}
			}

			if failures != tc.expFailures {
				t.Errorf("exp %d failed requests, got %d", tc.expFailures, failures)
			}
			if exp := int32(tc.requests - failures); calls.Load() != exp {
				t.Errorf("exp %d calls to reach the server, got %d", exp, calls.Load())
			}
			if tc.minDuration > 0 && took < tc.minDuration {
				t.Errorf("exp the throttle to slow requests to >= %v, took %v", tc.minDuration, took)
			}
			if tc.maxDuration > 0 && took > tc.maxDuration {
				t.Errorf("exp requests to finish within %v, took %v", tc.maxDuration, took)
			}
			if tc.minDuration > 0 && logs.Load() == 0 {
				t.Errorf("exp throttle wait logs")
			}
		})
	}
}

type countingHandler struct {
	n *atomic.Int32
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countingHandler) Handle(context.Context, slog.Record) error {
	h.n.Add(1)
	return nil
}
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countingHandler) WithGroup(string) slog.Handler      { return h }
