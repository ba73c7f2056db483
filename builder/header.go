package builder

import (
	"github.com/adamwoolhether/restbuilder/internal/casing"
	"github.com/adamwoolhether/restbuilder/spec"
)

// headerName returns the wire name of a header field.
func headerName(f spec.Field) string {
	if f.HeaderName != "" {
		return f.HeaderName
	}

	return casing.Header(f.Key())
}

// assembleHeaders collects present, non-empty header fields in
// declaration order, then applies the dynamic headers on top. Names
// compare case-insensitively and the last write wins.
func assembleHeaders(fields []spec.Field, values map[string]any, dynamic []headerKV) (map[string]string, error) {
	h := make(map[string]string)

	for _, f := range fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		v, ok = indirect(v)
		if !ok {
			continue
		}

		s, err := formatScalar(v)
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Reason: "header value: " + err.Error(), Err: err}
		}
		if s == "" {
			continue
		}

		h = setHeader(h, headerName(f), s)
	}

	for _, kv := range dynamic {
		h = setHeader(h, kv.name, kv.value)
	}

	return h, nil
}

type headerKV struct {
	name  string
	value string
}
