package utils

import "strings"

// NormalizeName canonicalizes a free-text payee/operator name for comparison:
// lower-case, strip everything outside [a-z0-9 ], collapse whitespace runs,
// trim. Matching, alias lookup, duplicate detection and alias dedup all go
// through this one function.
func NormalizeName(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
