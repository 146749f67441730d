// Package urlutil holds the URL helpers that key articles in the store and
// deduplicate aggregator candidates.
package urlutil

import (
	"net/url"
	"strings"
)

var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"ns_mchannel":  true,
	"ns_source":    true,
	"ns_campaign":  true,
	"ns_linkname":  true,
	"ocid":         true,
	"at_medium":    true,
	"at_campaign":  true,
	"fbclid":       true,
	"gclid":        true,
}

// hostAliases collapses domains that publish the same story under two hosts.
var hostAliases = map[string]string{
	"bbc.com": "bbc.co.uk",
}

// NormalizeURL returns the canonical form of raw used as the article
// uniqueness key. Input that does not parse as an absolute URL is returned
// with only its fragment removed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return stripFragment(raw)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = canonicalHost(u.Host)

	if u.RawQuery != "" {
		query := u.Query()
		removed := false
		for key := range query {
			if isTrackingParam(key) {
				query.Del(key)
				removed = true
			}
		}
		if removed {
			u.RawQuery = query.Encode()
		}
	}
	if u.RawQuery == "" {
		u.ForceQuery = false
	}

	return u.String()
}

// Key is the case-insensitive origin+path identity of raw, ignoring the
// query string. Aggregated candidates sharing a Key are duplicates.
func Key(raw string) string {
	normalized := NormalizeURL(raw)

	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return strings.ToLower(normalized)
	}

	return strings.ToLower(u.Scheme + "://" + u.Host + u.Path)
}

// Host returns the lower-cased host of raw without a leading "www.", or an
// empty string when raw has no host.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return canonicalHost(u.Host)
}

func canonicalHost(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for alias, canonical := range hostAliases {
		if host == alias {
			return canonical
		}
		if strings.HasSuffix(host, "."+alias) {
			return strings.TrimSuffix(host, alias) + canonical
		}
	}
	return host
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return trackingParams[key] || strings.HasPrefix(key, "utm_")
}

func stripFragment(raw string) string {
	if idx := strings.Index(raw, "#"); idx >= 0 {
		return raw[:idx]
	}
	return raw
}
