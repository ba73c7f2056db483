package spec

import (
	"fmt"
	"strings"
)

// ArrayFormat selects how slice values are written into a query string.
type ArrayFormat int

const (
	// ArrayRepeat writes a=1&a=2.
	ArrayRepeat ArrayFormat = iota
	// ArrayBrackets writes a[]=1&a[]=2.
	ArrayBrackets
	// ArrayIndexed writes a[0]=1&a[1]=2.
	ArrayIndexed
	// ArrayComma writes a=1,2.
	ArrayComma
)

// ParseArrayFormat resolves an ArrayFormat by name.
func ParseArrayFormat(s string) (ArrayFormat, error) {
	switch strings.ToLower(s) {
	case "", "repeat":
		return ArrayRepeat, nil
	case "brackets":
		return ArrayBrackets, nil
	case "indexed", "index":
		return ArrayIndexed, nil
	case "comma":
		return ArrayComma, nil
	}

	return ArrayRepeat, fmt.Errorf("unknown array format %q", s)
}

// DefaultMaxDepth bounds the nesting of maps and structs in query values.
const DefaultMaxDepth = 5

// QueryConfig customises query string serialization. The zero value
// writes keys in declaration order with repeated keys for slices.
type QueryConfig struct {
	// Sort orders top level keys alphabetically instead of by declaration.
	Sort        bool
	ArrayFormat ArrayFormat
	// SpaceAsPlus encodes spaces as '+' rather than "%20".
	SpaceAsPlus bool
	// EncodeBrackets percent-encodes the '[' and ']' of nested keys.
	EncodeBrackets bool
	// MaxDepth limits map and struct nesting. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Depth returns the effective nesting limit.
func (c QueryConfig) Depth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}

	return c.MaxDepth
}
