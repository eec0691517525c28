// Package pathmatch reconciles archive-relative member names with the absolute
// paths observed while tracing a program.
package pathmatch

import "strings"

// MatchSuffix returns the candidate that ends with suffix.
//
// When several candidates match, the shortest one wins: a top-level
// "/lib/pkg/__init__.py" is a more likely match for "pkg/__init__.py" than a
// vendored "/lib/other/vendor/pkg/__init__.py". Equal lengths resolve to the
// earliest candidate. This is a plain string comparison and can produce false
// positives for deeply nested files sharing a name.
func MatchSuffix(candidates []string, suffix string) (string, bool) {
	best, found := "", false
	for _, c := range candidates {
		if !strings.HasSuffix(c, suffix) {
			continue
		}
		if !found || len(c) < len(best) {
			best, found = c, true
		}
	}
	return best, found
}
