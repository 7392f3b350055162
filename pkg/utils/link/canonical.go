// ABOUTME: Canonical link normalization for the deduplication ledger
// ABOUTME: Applied identically on ledger read and write paths so duplicates cannot leak

package link

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

// Canonicalize normalizes an article URL into the form stored in the link
// ledger. The same normalization runs on both filter and commit paths;
// inconsistency between the two would let duplicates through on the next run.
//
// Normalization: lowercase scheme and host, strip default ports, drop the
// fragment, drop tracking query parameters (utm_*, fbclid, gclid), sort the
// remaining query for stable ordering, and trim the trailing slash from
// non-root paths.
func Canonicalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("link cannot be empty")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("link must be absolute")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Default ports carry no identity
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.RawQuery = normalizeQuery(u.Query())

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// normalizeQuery drops tracking parameters and re-encodes the remainder in
// sorted key order so equivalent URLs compare equal.
func normalizeQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if isTrackingParam(key) {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}

// isTrackingParam reports whether a query key is an analytics artifact
func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	return lower == "fbclid" || lower == "gclid" || lower == "mc_cid" || lower == "mc_eid"
}
