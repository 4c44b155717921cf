package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// WebsiteArtifact is the cached result of scraping a company website. Failed
// scrapes are stored too, with Success=false and the error detail, so known-broken
// sites are not retried on every lookup.
type WebsiteArtifact struct {
	ID        string
	Domain    string
	URL       string
	Markdown  string
	Success   bool
	Error     string
	FetchedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stale reports whether the artifact is older than the refresh window.
// A zero refresh duration means artifacts never go stale.
func (a *WebsiteArtifact) Stale(now time.Time, refresh time.Duration) bool {
	if refresh <= 0 {
		return false
	}
	return now.Sub(a.FetchedAt) > refresh
}

// NormalizeDomain reduces a domain or URL to its canonical cache key:
// lowercase host with scheme, www prefix, path and trailing slash stripped.
// "example.com", "https://example.com/" and "https://www.example.com/about"
// all map to "example.com".
func NormalizeDomain(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", fmt.Errorf("%w: domain is required", ErrValidation)
	}

	host := trimmed
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Host == "" {
			return "", fmt.Errorf("%w: invalid domain %q", ErrValidation, raw)
		}
		host = parsed.Host
	} else if idx := strings.IndexAny(trimmed, "/?#"); idx >= 0 {
		host = trimmed[:idx]
	}

	if colon := strings.Index(host, ":"); colon >= 0 {
		host = host[:colon]
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(host, ".")

	if host == "" || !strings.Contains(host, ".") {
		return "", fmt.Errorf("%w: invalid domain %q", ErrValidation, raw)
	}

	return host, nil
}

// WebsiteURL builds the URL to fetch for a normalized domain, preferring an
// explicitly provided website URL.
func WebsiteURL(domain string, website string) string {
	site := strings.TrimSpace(website)
	if site != "" {
		if !strings.HasPrefix(site, "http://") && !strings.HasPrefix(site, "https://") {
			site = "https://" + site
		}
		return site
	}
	return "https://" + strings.TrimSpace(domain)
}
