package builder

import (
	"maps"
	"slices"
	"strings"
)

// Request is the immutable output of a successful Build. It carries no
// reference back to the builder that produced it.
type Request struct {
	endpoint string
	method   string
	url      string
	headers  map[string]string
	body     []byte
}

// Endpoint returns the name of the specification the request was built
// from.
func (r Request) Endpoint() string { return r.endpoint }

// Method returns the HTTP method.
func (r Request) Method() string { return r.method }

// URL returns base URL, expanded path and encoded query.
func (r Request) URL() string { return r.url }

// Body returns a copy of the encoded body, or nil when there is none.
func (r Request) Body() []byte { return slices.Clone(r.body) }

// Headers returns a copy of the header map.
func (r Request) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// Header looks a header up case-insensitively.
func (r Request) Header(name string) (string, bool) {
	if v, ok := r.headers[name]; ok {
		return v, true
	}
	for k, v := range r.headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}

	return "", false
}

// ContentType returns the Content-Type header, if any.
func (r Request) ContentType() string {
	v, _ := r.Header("Content-Type")
	return v
}

// WithHeader returns a copy of r with the header set, replacing any
// header of the same name regardless of case.
func (r Request) WithHeader(name, value string) Request {
	r.headers = setHeader(maps.Clone(r.headers), name, value)
	return r
}

// WithoutHeader returns a copy of r with the header removed.
func (r Request) WithoutHeader(name string) Request {
	h := maps.Clone(r.headers)
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
	r.headers = h

	return r
}

// WithURL returns a copy of r sent to url.
func (r Request) WithURL(url string) Request {
	r.url = url
	return r
}

// WithBody returns a copy of r carrying body.
func (r Request) WithBody(body []byte) Request {
	r.body = slices.Clone(body)
	return r
}

func setHeader(h map[string]string, name, value string) map[string]string {
	if h == nil {
		h = make(map[string]string)
	}
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
	h[name] = value

	return h
}
