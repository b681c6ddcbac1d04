package outcome

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFC and folds runs of whitespace into one space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// MessageMatches reports whether the shown text carries the contract
// message. Applications are allowed to append to a message ("... Please try
// again.") so the check is containment over normalized text.
func MessageMatches(shown, message string) bool {
	m := NormalizeText(message)
	if m == "" {
		return false
	}
	return strings.Contains(NormalizeText(shown), m)
}

// PathOf returns the path component of a URL, or the input itself when it
// is already a bare path. Trailing slashes are dropped except for the root.
func PathOf(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && (u.Scheme != "" || u.Host != "" || strings.HasPrefix(raw, "/")) {
		p = u.Path
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// SamePath compares two URLs or paths by path only.
func SamePath(a, b string) bool {
	return PathOf(a) == PathOf(b)
}
