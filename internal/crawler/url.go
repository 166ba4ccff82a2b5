package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL resolves raw against base: relative and scheme-less
// references are resolved the way a browser would, absolute URLs pass
// through unchanged apart from parsing.
func NormalizeURL(raw string, base *url.URL) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

// BaseOf returns the scheme://host origin of a page URL, used as the
// resolution base for every reference found on that page.
func BaseOf(pageURL string) (*url.URL, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

// IsCrawlable reports whether a normalized URL may enter the frontier:
// http/https scheme and no excluded path extension. URLs that fail are
// dropped silently, never recorded as errors.
func IsCrawlable(rawURL string, excludedExts []string) bool {
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	for _, ext := range excludedExts {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// IsInternal classifies a URL against the seed host: an exact host
// match or any subdomain of it counts as internal.
func IsInternal(rawURL, seedHost string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	seedHost = strings.ToLower(stripPort(seedHost))
	return host == seedHost || strings.HasSuffix(host, "."+seedHost)
}

// EnsureScheme prefixes http:// when the raw input has no scheme.
// This is the caller-side input normalization described by the seed
// URL contract; the engine itself assumes absolute seed URLs.
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "http://" + raw
}

func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}
