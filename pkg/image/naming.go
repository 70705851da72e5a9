package image

import "strings"

// Label keys applied to husk-managed containers so they can be told apart
// from anything else the runtime is hosting.
const (
	LabelManagedBy = "managed-by"
	LabelImage     = "husk-image"
)

// SafeName converts a name to a docker-compatible image tag. Image names
// must be lowercase [a-z0-9_.-] and must not start with a separator.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.TrimLeft(b.String(), "-.")
}

// SafeHostname converts a name to a valid container hostname: lowercase
// [a-z0-9-] with no leading or trailing dash.
func SafeHostname(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	host := strings.Trim(b.String(), "-")
	if host == "" {
		return "husk"
	}
	return host
}
