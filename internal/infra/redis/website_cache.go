package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leadforge/outreach-engine/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const defaultWebsiteCacheTTL = 24 * time.Hour

// WebsiteCache is a redis layer in front of the website_artifacts table. The
// table remains the source of truth; this keeps repeated pipeline lookups for
// the same company domain off the database.
type WebsiteCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewWebsiteCache(rdb *goredis.Client, ttl time.Duration) *WebsiteCache {
	if ttl <= 0 {
		ttl = defaultWebsiteCacheTTL
	}
	return &WebsiteCache{rdb: rdb, ttl: ttl}
}

type cachedArtifact struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	URL       string    `json:"url"`
	Markdown  string    `json:"markdown"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Get returns the cached artifact for a normalized domain, or
// domain.ErrNotFound on a miss.
func (c *WebsiteCache) Get(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error) {
	if c == nil || c.rdb == nil {
		return nil, fmt.Errorf("website cache is not initialized")
	}

	raw, err := c.rdb.Get(ctx, websiteKey(normalizedDomain)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read website cache: %w", err)
	}

	var cached cachedArtifact
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached artifact: %w", err)
	}

	return &domain.WebsiteArtifact{
		ID:        cached.ID,
		Domain:    cached.Domain,
		URL:       cached.URL,
		Markdown:  cached.Markdown,
		Success:   cached.Success,
		Error:     cached.Error,
		FetchedAt: cached.FetchedAt,
	}, nil
}

func (c *WebsiteCache) Set(ctx context.Context, a *domain.WebsiteArtifact) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("website cache is not initialized")
	}
	if a == nil {
		return fmt.Errorf("artifact is required")
	}

	cached := cachedArtifact{
		ID:        a.ID,
		Domain:    a.Domain,
		URL:       a.URL,
		Markdown:  a.Markdown,
		Success:   a.Success,
		Error:     a.Error,
		FetchedAt: a.FetchedAt,
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	return c.rdb.Set(ctx, websiteKey(a.Domain), raw, c.ttl).Err()
}

// Invalidate drops the cached entry so a forced re-scrape is served fresh.
func (c *WebsiteCache) Invalidate(ctx context.Context, normalizedDomain string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("website cache is not initialized")
	}
	return c.rdb.Del(ctx, websiteKey(normalizedDomain)).Err()
}

func websiteKey(normalizedDomain string) string {
	return "website:" + normalizedDomain
}
