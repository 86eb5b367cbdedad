package validation

import (
	"regexp"
	"strings"
)

var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsAddress reports whether s is a 0x-prefixed 20-byte hex wallet address.
func IsAddress(s string) bool {
	return addressRegex.MatchString(s)
}

// NormalizeAddress lower-cases a wallet address so it can be used as a key.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
