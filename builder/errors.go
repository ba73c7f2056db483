package builder

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField         = errors.New("missing required field")
	ErrMissingPathParameter = errors.New("missing path parameter")
	ErrValidation           = errors.New("validation failed")
	ErrQuerySerialization   = errors.New("query serialization failed")
	ErrBodySerialization    = errors.New("body serialization failed")
	ErrURLBuild             = errors.New("url build failed")
	ErrResponseDecode       = errors.New("response decoding failed")

	// ErrMissingBaseURL is returned by the send operations when neither
	// the builder nor its client carries a base URL.
	ErrMissingBaseURL = errors.New("no base url configured")
	// ErrMissingTransport is returned by the send operations when no
	// transport has been attached.
	ErrMissingTransport = errors.New("no transport configured")
	// ErrBuilderConsumed is returned when Build is called on a builder
	// that already finalized or failed.
	ErrBuilderConsumed = errors.New("builder already consumed")
)

// MissingFieldError reports a required field left unset with no default.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// MissingPathParameterError reports a path placeholder with no value.
type MissingPathParameterError struct {
	Name string
}

func (e *MissingPathParameterError) Error() string {
	return fmt.Sprintf("missing path parameter %q", e.Name)
}

func (e *MissingPathParameterError) Unwrap() error {
	return ErrMissingPathParameter
}

// ValidationError reports a value rejected by a validator, a rule, or a
// type check at Set time.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}

	return []error{ErrValidation, e.Err}
}

// QuerySerializationError reports a query value that could not be
// encoded.
type QuerySerializationError struct {
	Field string
	Err   error
}

func (e *QuerySerializationError) Error() string {
	return fmt.Sprintf("serializing query field %q: %v", e.Field, e.Err)
}

func (e *QuerySerializationError) Unwrap() []error {
	return []error{ErrQuerySerialization, e.Err}
}

// BodySerializationError reports a body the codec refused.
type BodySerializationError struct {
	Codec string
	Err   error
}

func (e *BodySerializationError) Error() string {
	return fmt.Sprintf("serializing %s body: %v", e.Codec, e.Err)
}

func (e *BodySerializationError) Unwrap() []error {
	return []error{ErrBodySerialization, e.Err}
}

// URLBuildError reports an invalid URL after path and query assembly.
type URLBuildError struct {
	URL string
	Err error
}

func (e *URLBuildError) Error() string {
	return fmt.Sprintf("building url %q: %v", e.URL, e.Err)
}

func (e *URLBuildError) Unwrap() []error {
	return []error{ErrURLBuild, e.Err}
}

// ResponseDecodeError reports a response body that could not be decoded
// into the destination.
type ResponseDecodeError struct {
	Codec string
	Body  []byte
	Err   error
}

func (e *ResponseDecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Codec, e.Err)
}

func (e *ResponseDecodeError) Unwrap() []error {
	return []error{ErrResponseDecode, e.Err}
}
