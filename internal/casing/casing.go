// Package casing converts identifiers between the naming schemes used
// for header names and generated endpoint names.
package casing

import (
	"strings"
	"unicode"
)

// Header converts name into canonical Title-Case header form, splitting
// on every non-alphanumeric rune: "api_key" becomes "Api-Key".
func Header(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, "-")
}

// Snake converts a PascalCase, camelCase or separator-delimited name into
// lower snake case. Runs of capitals are kept together as one word, so
// "APIKeys" becomes "api_keys" and "GetHTTPStatus" becomes "get_http_status".
func Snake(name string) string {
	runes := []rune(name)

	var b strings.Builder
	b.Grow(len(name) + 4)

	pendingSep := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSep = b.Len() > 0
			continue
		}

		if unicode.IsUpper(r) && i > 0 && b.Len() > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				pendingSep = true
			}
		}

		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
