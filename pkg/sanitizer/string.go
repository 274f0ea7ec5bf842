package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeName canonicalizes a vehicle name label.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeCustomerID strips surrounding whitespace from an opaque customer
// identifier. Internal characters are preserved as-is.
func NormalizeCustomerID(id string) string {
	return strings.TrimSpace(id)
}
