package probe

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxIdentLen is PostgreSQL's identifier limit.
const maxIdentLen = 63

// normalizeFieldName lowercases s, strips diacritics and keeps [a-z0-9_].
// Runs of separators collapse to one underscore. An empty result becomes "col".
func normalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.' || r == '/':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return truncateFieldName(name)
}

// truncateFieldName keeps the first 10 and last 53 bytes of names longer
// than maxIdentLen.
func truncateFieldName(s string) string {
	if len(s) > maxIdentLen {
		return s[:10] + s[len(s)-(maxIdentLen-10):]
	}
	return s
}

// uniqueNames normalizes every header and suffixes repeats with _2, _3, ...
func uniqueNames(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		base := normalizeFieldName(h)
		n := base
		for k := 2; used[n]; k++ {
			n = truncateFieldName(base + "_" + strconv.Itoa(k))
		}
		used[n] = true
		out[i] = n
	}
	return out
}
