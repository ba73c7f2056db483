package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a transport failure.
type Kind int

const (
	KindFailed Kind = iota
	KindCanceled
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindCanceled:
		return "canceled"
	case KindTimeout:
		return "timeout"
	}

	return "failed"
}

var (
	// ErrTransport matches every *Error.
	ErrTransport = errors.New("transport error")
	// ErrCanceled matches transport errors caused by cancellation.
	ErrCanceled = errors.New("transport canceled")
	// ErrTimeout matches transport errors caused by a deadline or timeout.
	ErrTimeout = errors.New("transport timeout")

	// ErrNoResult is reported when an AsyncTransport closes its channel
	// without delivering a Result.
	ErrNoResult = errors.New("async transport closed without a result")
)

// Error wraps whatever a Transport reported. The core never interprets
// status codes; it only relays and classifies.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
}

// Unwrap exposes the kind sentinel, ErrTransport and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{ErrTransport, e.Err}
	switch e.Kind {
	case KindCanceled:
		errs = append(errs, ErrCanceled)
	case KindTimeout:
		errs = append(errs, ErrTimeout)
	}

	return errs
}

// Wrap classifies err as an *Error. Nil stays nil and an existing *Error
// is returned unchanged.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return err
	}

	return &Error{Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}

	return KindFailed
}
