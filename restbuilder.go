// Package restbuilder builds and sends REST requests from declarative
// endpoint specifications.
//
// Specifications live in package spec, requests are assembled by package
// builder and sent through any transport.Transport. NewClient registers
// specifications behind a shared configuration.
package restbuilder

import (
	"fmt"

	"github.com/adamwoolhether/restbuilder/apiclient"
	"github.com/adamwoolhether/restbuilder/transport"
	"github.com/adamwoolhether/restbuilder/transport/httptransport"
)

// NewClient instantiates a new *apiclient.Client sending through t.
func NewClient(cfg apiclient.Config, t transport.Transport, opts ...apiclient.Option) (*apiclient.Client, error) {
	return apiclient.New(cfg, t, opts...)
}

// NewHTTPClient is NewClient over an HTTP transport built from httpOpts.
// If not specified, a copy of http.DefaultClient is used.
func NewHTTPClient(cfg apiclient.Config, httpOpts []httptransport.Option, opts ...apiclient.Option) (*apiclient.Client, error) {
	t, err := httptransport.Build(httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("building http transport: %w", err)
	}

	return apiclient.New(cfg, t, opts...)
}
