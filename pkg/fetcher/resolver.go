package fetcher

import (
	"regexp"
	"strings"
)

// Resolved is the outcome of share-link normalization. Either URL is set and
// the content can be fetched directly, or SnippetID is set and the snippet
// API has to be used.
type Resolved struct {
	URL       string
	SnippetID string
}

var (
	shareLinkRe = regexp.MustCompile(`^https?://gist\.github\.com/([^/]+)/([0-9a-f]{8,64})/?$`)
	bareIDRe    = regexp.MustCompile(`^[0-9a-f]{16,64}$`)
)

// ResolveRawURL normalizes a configured source into a canonical raw form.
// Share links get rewritten to their raw endpoint, bare snippet ids are
// flagged for the snippet API, anything else passes through. Fragments are
// stripped in all cases.
func ResolveRawURL(url string) Resolved {
	url = strings.TrimSpace(url)
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}

	if m := shareLinkRe.FindStringSubmatch(url); m != nil {
		return Resolved{URL: "https://gist.githubusercontent.com/" + m[1] + "/" + m[2] + "/raw"}
	}

	if bareIDRe.MatchString(url) {
		return Resolved{SnippetID: url}
	}

	return Resolved{URL: url}
}
