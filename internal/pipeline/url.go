package pipeline

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// URLPattern matches absolute http(s) URLs and bare www hosts as they
// appear in search-result anchors.
var URLPattern = regexp.MustCompile(`https?://[^\s<>"]+|www\.[^\s<>"]+`)

// NormalizeDomain reduces a URL to its lowercase scheme://host form, the
// key under which candidate domains are deduplicated.
func NormalizeDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", rawURL)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	}
	if scheme == "https" {
		host = strings.TrimSuffix(host, ":443")
	}
	return scheme + "://" + host, nil
}

// Excluded reports whether the domain matches any excluded substring.
func Excluded(domain string, excluded []string) bool {
	for _, sub := range excluded {
		if sub != "" && strings.Contains(domain, sub) {
			return true
		}
	}
	return false
}

// ProductID derives the deterministic index id from a product URL: its last
// non-empty path segment, lowercased. Re-scraping the same URL therefore
// always lands on the same id.
func ProductID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(strings.Trim(rawURL, "/"))
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return strings.ToLower(u.Host)
	}
	segments := strings.Split(path, "/")
	return strings.ToLower(segments[len(segments)-1])
}
