package spec

import (
	"fmt"
	"strings"
)

// Segment is one piece of a parsed path template: either literal text or
// a placeholder name.
type Segment struct {
	Literal string
	Param   string
}

// Template is a parsed path template such as "/users/{id}/posts".
type Template struct {
	raw      string
	segments []Segment
	params   []string
}

// ParseTemplate parses a path template. Placeholders are written as
// {name} where name is made of letters, digits and underscores.
func ParseTemplate(s string) (Template, error) {
	if !strings.HasPrefix(s, "/") {
		return Template{}, fmt.Errorf("%w: %q must start with '/'", ErrInvalidTemplate, s)
	}

	t := Template{raw: s}
	seen := make(map[string]bool)

	rest := s
	for rest != "" {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			t.segments = append(t.segments, Segment{Literal: rest})
			break
		}

		if rest[open] == '}' {
			return Template{}, fmt.Errorf("%w: %q has unmatched '}'", ErrInvalidTemplate, s)
		}

		if open > 0 {
			t.segments = append(t.segments, Segment{Literal: rest[:open]})
		}

		end := strings.IndexAny(rest[open+1:], "{}")
		if end < 0 || rest[open+1+end] != '}' {
			return Template{}, fmt.Errorf("%w: %q has unterminated placeholder", ErrInvalidTemplate, s)
		}

		name := rest[open+1 : open+1+end]
		if !validParam(name) {
			return Template{}, fmt.Errorf("%w: %q has invalid placeholder %q", ErrInvalidTemplate, s, name)
		}

		t.segments = append(t.segments, Segment{Param: name})
		if !seen[name] {
			seen[name] = true
			t.params = append(t.params, name)
		}

		rest = rest[open+1+end+1:]
	}

	return t, nil
}

func validParam(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}

	return true
}

// String returns the template as written.
func (t Template) String() string {
	return t.raw
}

// Segments returns the parsed pieces in order.
func (t Template) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Params returns each distinct placeholder name in order of first use.
func (t Template) Params() []string {
	out := make([]string, len(t.params))
	copy(out, t.params)
	return out
}
