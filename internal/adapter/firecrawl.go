package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultScrapeTimeout = 60 * time.Second

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			SourceURL  string `json:"sourceURL"`
			StatusCode int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// FirecrawlScraper fetches websites through a Firecrawl-compatible scraping API.
type FirecrawlScraper struct {
	client   *resty.Client
	endpoint string
}

func NewFirecrawlScraper(endpoint string, apiKey string) (*FirecrawlScraper, error) {
	client := resty.New()
	client.SetTimeout(defaultScrapeTimeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(apiKey) != "" {
		client.SetAuthToken(apiKey)
	}

	return NewFirecrawlScraperWithClient(endpoint, client)
}

func NewFirecrawlScraperWithClient(endpoint string, client *resty.Client) (*FirecrawlScraper, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("scrape endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid scrape endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultScrapeTimeout)
	}
	client.SetRetryCount(0)

	return &FirecrawlScraper{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (s *FirecrawlScraper) ScrapeWebsite(ctx context.Context, siteURL string) (*ScrapeResult, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("scraper is not initialized")
	}
	if strings.TrimSpace(siteURL) == "" {
		return nil, &AdapterError{Message: "site url is required"}
	}

	var parsed firecrawlResponse
	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(firecrawlRequest{
			URL:             siteURL,
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		}).
		SetResult(&parsed).
		Post(s.endpoint)
	if err != nil {
		return nil, &AdapterError{
			Message:   "scrape request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &AdapterError{
			StatusCode: statusCode,
			Message:    statusErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	if !parsed.Success {
		return nil, &AdapterError{
			StatusCode: statusCode,
			Message:    scrapeFailureMessage(parsed.Error),
		}
	}
	if strings.TrimSpace(parsed.Data.Markdown) == "" {
		return nil, &AdapterError{
			StatusCode: statusCode,
			Message:    "scrape returned empty content",
		}
	}

	resultURL := parsed.Data.Metadata.SourceURL
	if resultURL == "" {
		resultURL = siteURL
	}

	return &ScrapeResult{
		URL:      resultURL,
		Markdown: parsed.Data.Markdown,
	}, nil
}

func scrapeFailureMessage(detail string) string {
	if strings.TrimSpace(detail) == "" {
		return "scrape failed"
	}
	return fmt.Sprintf("scrape failed: %s", detail)
}
