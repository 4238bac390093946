package recipe

import "strings"

// NormalizeName converts a human-readable recipe title into the lookup
// key used by the name index: lowercase, with every run of characters
// outside [a-z0-9] collapsed to a single '-'. The function is pure and
// deterministic. It is intentionally many-to-one: distinct titles can
// normalize to the same key and will collide in the index.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}
