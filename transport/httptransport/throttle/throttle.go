// Package throttle limits the rate of outbound HTTP requests with a
// token bucket from golang.org/x/time/rate.
//
// The HTTP transport installs it through httptransport.WithThrottle, but
// the RoundTripper works with any http.Client:
//
//	rt, err := throttle.NewRoundTripper(throttle.Config{RPS: 10, Burst: 5}, nil, http.DefaultTransport)
//	hc := &http.Client{Transport: rt}
//
// Requests over the limit block until a token frees up or their context
// ends.
package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config holds the sustained requests per second and the burst size.
type Config struct {
	RPS   int
	Burst int
}

// Validate rejects non-positive limits.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}

	return nil
}

type throttle struct {
	limiter *rate.Limiter
	cfg     Config
	next    http.RoundTripper
	logger  func() *slog.Logger
}

// NewRoundTripper wraps next with a limiter. logger is resolved per
// request so the caller may swap loggers after construction. A nil
// logger func, or one returning nil, disables the wait logs.
func NewRoundTripper(cfg Config, logger func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		next:    next,
		logger:  logger,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	start := time.Now()
	if logger := t.logger(); logger != nil && t.limiter.Tokens() < 1 {
		logger.Info("throttle tokens exhausted", "rate", t.cfg.RPS, "burst", t.cfg.Burst, "path", r.URL.Path)

		defer func() {
			logger.Info("throttle wait complete", "waited", time.Since(start).String(), "rate", t.cfg.RPS, "burst", t.cfg.Burst)
		}()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	// The wait may have consumed the remaining deadline.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
