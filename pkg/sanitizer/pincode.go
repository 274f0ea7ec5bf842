package sanitizer

import "strings"

// NormalizePincode canonicalizes a route endpoint token: surrounding and
// internal whitespace is removed ("110 001" and "110001" are the same token).
// Non-numeric tokens are left intact; the duration estimator has a defined
// fallback for them.
func NormalizePincode(pincode string) string {
	trimmed := strings.TrimSpace(pincode)
	if trimmed == "" {
		return ""
	}
	return strings.Join(strings.Fields(trimmed), "")
}
