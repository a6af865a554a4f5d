// Package classify implements the directory-classification heuristic
// that decides whether a Response represents a browsable directory,
// which in turn drives recursion in the recursive response handler.
package classify

import (
	"net/url"
	"strings"

	"github.com/3leaps/webhunt/pkg/responsefilter"
)

// IsDirectory returns true iff one of two rules holds:
//
//  1. status is a 3xx redirect AND its Location header, resolved
//     against the response's own URL, equals that URL with exactly one
//     trailing slash appended.
//  2. status is 2xx, 401, or 403 AND the response URL's path ends with
//     a slash.
//
// Rule 1 and rule 2 are mutually exclusive (an if/else-if, not two
// independent checks): a 3xx response with no Location header is
// judged false outright and never falls through to rule 2, matching
// the reference HTTP server behavior (Apache/Nginx/IIS redirecting a
// bare directory name to the same path with a trailing slash).
func IsDirectory(r *responsefilter.Response) bool {
	switch {
	case r.Status >= 300 && r.Status < 400:
		locations := r.HeaderValues("Location")
		if len(locations) == 0 {
			return false
		}
		base, err := url.Parse(r.URL)
		if err != nil {
			return false
		}
		loc, err := url.Parse(locations[0])
		if err != nil {
			return false
		}
		resolved := base.ResolveReference(loc)
		return resolved.String() == base.String()+"/"

	case (r.Status >= 200 && r.Status < 300) || r.Status == 401 || r.Status == 403:
		u, err := url.Parse(r.URL)
		if err != nil {
			return strings.HasSuffix(r.URL, "/")
		}
		return strings.HasSuffix(u.Path, "/")

	default:
		return false
	}
}
