// Package upstream talks to the rinsr REST API on behalf of the dashboard.
package upstream

import (
	"net/url"
	"strings"

	"github.com/DukeRupert/rinsr/internal/domain"
)

const apiSuffix = "/api"

// APIRoot canonicalizes a configured base URL into the API root: trailing
// slashes removed and exactly one "/api" suffix.
//
//	https://api.rinsr.in        -> https://api.rinsr.in/api
//	https://api.rinsr.in/       -> https://api.rinsr.in/api
//	https://api.rinsr.in/api//  -> https://api.rinsr.in/api
func APIRoot(raw string) (string, error) {
	root := strings.TrimRight(strings.TrimSpace(raw), "/")
	if root == "" {
		return "", domain.Configuration("upstream.APIRoot", "API base URL is not configured (set API_BASE_URL)")
	}

	if strings.HasSuffix(root, apiSuffix) {
		return root, nil
	}
	return root + apiSuffix, nil
}

// Path joins segments into an upstream path, escaping each one so path
// parameters taken from the inbound URL cannot add segments of their own.
//
//	Path("notifications", id, "read") -> "/notifications/<id>/read"
func Path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
