package model

import (
	"regexp"
	"strings"
)

var absoluteURLPattern = regexp.MustCompile(`^(https?://[^/]+)(/.*)$`)

// SplitURL decomposes a URL-or-path token from a log into its base URL,
// normalized path and query parameters.
//
// Absolute URLs yield a scheme+host base and the path component ("/" when
// the URL has no path). Relative tokens yield an empty base and a path
// normalized to start with "/". Query parameters are split on "&" and "=";
// a bare key without "=" maps to the empty string. No URL-decoding is
// performed; values are kept as seen.
func SplitURL(raw string) (baseURL, path string, query map[string]string) {
	urlPart := raw
	if idx := strings.Index(raw, "?"); idx >= 0 {
		urlPart = raw[:idx]
		query = parseQuery(raw[idx+1:])
	}

	if strings.HasPrefix(urlPart, "http://") || strings.HasPrefix(urlPart, "https://") {
		if m := absoluteURLPattern.FindStringSubmatch(urlPart); m != nil {
			return m[1], m[2], query
		}
		// Host-only URL, e.g. "https://api.example.com"
		return urlPart, "/", query
	}

	if !strings.HasPrefix(urlPart, "/") {
		urlPart = "/" + urlPart
	}
	return "", urlPart, query
}

func parseQuery(qs string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(qs, "&") {
		if pair == "" {
			continue
		}
		if k, v, found := strings.Cut(pair, "="); found {
			params[k] = v
		} else {
			params[pair] = ""
		}
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
