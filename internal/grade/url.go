package grade

import (
	"regexp"
	"strings"
)

// domainPattern accepts dotted hostnames with an alphabetic TLD of at least
// two characters. Ports, paths and credentials are rejected.
var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,}$`)

// Normalize cleans a user-supplied URL down to the bare domain used as the
// cache key and route segment: scheme stripped, lowercased, trailing slash
// removed. It returns a ValidationError when the remainder is not a
// plausible domain. No network is touched.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return "", &ValidationError{Input: raw, Reason: "empty URL"}
	}
	for _, prefix := range []string{"https://", "http://", "//"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimSuffix(s, "/")
	if !domainPattern.MatchString(s) {
		return "", &ValidationError{Input: raw, Reason: "not a plausible domain"}
	}
	return s, nil
}
