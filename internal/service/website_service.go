package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/observability"
	"github.com/leadforge/outreach-engine/internal/ratelimit"
	"github.com/leadforge/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const defaultArtifactRefresh = 30 * 24 * time.Hour

// ArtifactCache is the fast lookup layer in front of the website artifact
// store. A miss is reported as domain.ErrNotFound.
type ArtifactCache interface {
	Get(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error)
	Set(ctx context.Context, a *domain.WebsiteArtifact) error
	Invalidate(ctx context.Context, normalizedDomain string) error
}

// WebsiteService resolves company website content for drafting. Lookups go
// cache first, then the artifact table, then a live scrape. Scrape failures are
// stored as failed artifacts so broken sites are not refetched on every lead.
type WebsiteService struct {
	websites    repository.WebsiteRepository
	cache       ArtifactCache
	scraper     adapter.WebsiteScraper
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	refresh     time.Duration
	now         func() time.Time
}

func NewWebsiteService(
	websites repository.WebsiteRepository,
	cache ArtifactCache,
	scraper adapter.WebsiteScraper,
	rateLimiter ratelimit.RateLimiter,
	refresh time.Duration,
	logger *zap.Logger,
) (*WebsiteService, error) {
	if websites == nil {
		return nil, fmt.Errorf("website repository is required")
	}
	if scraper == nil {
		return nil, fmt.Errorf("website scraper is required")
	}
	if refresh <= 0 {
		refresh = defaultArtifactRefresh
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebsiteService{
		websites:    websites,
		cache:       cache,
		scraper:     scraper,
		rateLimiter: rateLimiter,
		logger:      logger,
		refresh:     refresh,
		now:         time.Now,
	}, nil
}

func (s *WebsiteService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Resolve returns the artifact for a company domain, scraping only when no
// fresh artifact exists. The second return value reports whether the artifact
// was served from the cache or store rather than fetched now.
func (s *WebsiteService) Resolve(ctx context.Context, rawDomain string, websiteURL string, force bool) (*domain.WebsiteArtifact, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	normalized, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return nil, false, err
	}

	if !force {
		if artifact := s.lookupFresh(ctx, normalized); artifact != nil {
			return artifact, true, nil
		}
	} else if s.cache != nil {
		if err := s.cache.Invalidate(ctx, normalized); err != nil {
			s.logger.Warn("failed to invalidate website cache entry",
				zap.String("domain", normalized),
				zap.Error(err),
			)
		}
	}

	artifact, err := s.scrape(ctx, normalized, websiteURL)
	if err != nil {
		return nil, false, err
	}

	return artifact, false, nil
}

// Get returns the stored artifact without triggering a scrape.
func (s *WebsiteService) Get(ctx context.Context, rawDomain string) (*domain.WebsiteArtifact, error) {
	normalized, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, normalized); err == nil {
			return cached, nil
		}
	}

	return s.websites.GetByDomain(ctx, normalized)
}

func (s *WebsiteService) List(ctx context.Context, params repository.WebsiteListParams) ([]domain.WebsiteArtifact, int64, error) {
	return s.websites.List(ctx, params)
}

func (s *WebsiteService) lookupFresh(ctx context.Context, normalized string) *domain.WebsiteArtifact {
	now := s.now().UTC()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, normalized)
		if err == nil && !cached.Stale(now, s.refresh) {
			s.metrics.IncWebsiteLookup("cache_hit")
			return cached
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("website cache lookup failed",
				zap.String("domain", normalized),
				zap.Error(err),
			)
		}
	}

	stored, err := s.websites.GetByDomain(ctx, normalized)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("website artifact lookup failed",
				zap.String("domain", normalized),
				zap.Error(err),
			)
		}
		s.metrics.IncWebsiteLookup("miss")
		return nil
	}
	if stored.Stale(now, s.refresh) {
		s.metrics.IncWebsiteLookup("stale")
		return nil
	}

	s.metrics.IncWebsiteLookup("store_hit")
	if s.cache != nil {
		if err := s.cache.Set(ctx, stored); err != nil {
			s.logger.Warn("failed to backfill website cache",
				zap.String("domain", normalized),
				zap.Error(err),
			)
		}
	}

	return stored
}

func (s *WebsiteService) scrape(ctx context.Context, normalized string, websiteURL string) (*domain.WebsiteArtifact, error) {
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, "scrape"); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	target := domain.WebsiteURL(normalized, websiteURL)
	result, scrapeErr := s.scraper.ScrapeWebsite(ctx, target)

	artifact := &domain.WebsiteArtifact{
		ID:        uuid.NewString(),
		Domain:    normalized,
		URL:       target,
		FetchedAt: s.now().UTC(),
	}

	if scrapeErr != nil {
		// Transient failures are surfaced without poisoning the store; a
		// permanent failure is recorded as a failed artifact so the domain is
		// not rescraped for every lead at the same company.
		if adapter.IsTransient(scrapeErr) {
			s.metrics.IncWebsiteScrape("transient_error")
			return nil, fmt.Errorf("failed to scrape website %q: %w", target, scrapeErr)
		}

		artifact.Success = false
		artifact.Error = scrapeErr.Error()
		s.metrics.IncWebsiteScrape("failed")
	} else {
		artifact.Success = true
		artifact.URL = pickURL(result.URL, target)
		artifact.Markdown = result.Markdown
		s.metrics.IncWebsiteScrape("success")
	}

	if err := s.websites.Upsert(ctx, artifact); err != nil {
		return nil, fmt.Errorf("failed to store website artifact: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, artifact); err != nil {
			s.logger.Warn("failed to cache website artifact",
				zap.String("domain", normalized),
				zap.Error(err),
			)
		}
	}

	return artifact, nil
}

func pickURL(resolved string, requested string) string {
	if strings.TrimSpace(resolved) != "" {
		return resolved
	}
	return requested
}
