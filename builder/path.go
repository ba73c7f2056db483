package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adamwoolhether/restbuilder/spec"
)

const upperhex = "0123456789ABCDEF"

// errDotSegment rejects values that would expand to a whole "." or ".."
// segment, which servers and proxies resolve against the parent path.
var errDotSegment = errors.New("value is a dot segment")

// expandPath substitutes every placeholder of tpl with the escaped value
// bound to it in params.
func expandPath(tpl spec.Template, params map[string]any) (string, error) {
	var sb strings.Builder

	segs := tpl.Segments()
	for i, seg := range segs {
		if seg.Param == "" {
			sb.WriteString(seg.Literal)
			continue
		}

		v, ok := params[seg.Param]
		if !ok {
			return "", &MissingPathParameterError{Name: seg.Param}
		}

		s, err := formatScalar(v)
		if err != nil {
			return "", &URLBuildError{URL: tpl.String(), Err: fmt.Errorf("path parameter %q: %w", seg.Param, err)}
		}

		escaped := escapePathSegment(s)
		if opensSegment(sb.String()) && closesSegment(segs, i) && isDotSegment(escaped) {
			return "", &URLBuildError{URL: tpl.String(), Err: fmt.Errorf("path parameter %q: %w", seg.Param, errDotSegment)}
		}

		sb.WriteString(escaped)
	}

	return sb.String(), nil
}

func opensSegment(prefix string) bool {
	return prefix == "" || strings.HasSuffix(prefix, "/")
}

func closesSegment(segs []spec.Segment, i int) bool {
	if i == len(segs)-1 {
		return true
	}

	next := segs[i+1]
	return next.Param == "" && strings.HasPrefix(next.Literal, "/")
}

// isDotSegment reports whether the escaped segment means "." or "..",
// counting %2E as a dot.
func isDotSegment(escaped string) bool {
	s := strings.ReplaceAll(strings.ReplaceAll(escaped, "%2E", "."), "%2e", ".")
	return s == "." || s == ".."
}

// escapePathSegment percent-encodes s for use inside one path segment.
// Slashes are escaped. Existing %XX triplets are kept as they are.
func escapePathSegment(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			sb.WriteString(s[i : i+3])
			i += 2
		case keepInPath(c):
			sb.WriteByte(c)
		default:
			writeEscaped(&sb, c)
		}
	}

	return sb.String()
}

// keepInPath reports whether c is a pchar other than a percent sign:
// unreserved, sub-delims, ':' or '@'.
func keepInPath(c byte) bool {
	if isUnreserved(c) {
		return true
	}

	switch c {
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '@':
		return true
	}

	return false
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	return c == '-' || c == '.' || c == '_' || c == '~'
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}

	return false
}

func writeEscaped(sb *strings.Builder, c byte) {
	sb.WriteByte('%')
	sb.WriteByte(upperhex[c>>4])
	sb.WriteByte(upperhex[c&15])
}
