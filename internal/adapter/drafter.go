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
	"github.com/leadforge/outreach-engine/internal/domain"
)

const defaultDraftTimeout = 45 * time.Second

type draftRequest struct {
	EmailType       string `json:"emailType"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Title           string `json:"title,omitempty"`
	CompanyName     string `json:"companyName"`
	CompanyDomain   string `json:"companyDomain,omitempty"`
	CompanyIndustry string `json:"companyIndustry,omitempty"`
	WebsiteMarkdown string `json:"websiteMarkdown,omitempty"`
}

type draftResponse struct {
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	IsPersonalized bool   `json:"isPersonalized"`
	Error          string `json:"error,omitempty"`
}

// HTTPDrafter requests email drafts from the drafting service, which owns the
// language-model call and prompt templates.
type HTTPDrafter struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPDrafter(endpoint string, apiKey string) (*HTTPDrafter, error) {
	client := resty.New()
	client.SetTimeout(defaultDraftTimeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(apiKey) != "" {
		client.SetAuthToken(apiKey)
	}

	return NewHTTPDrafterWithClient(endpoint, client)
}

func NewHTTPDrafterWithClient(endpoint string, client *resty.Client) (*HTTPDrafter, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("draft endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid draft endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultDraftTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPDrafter{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (d *HTTPDrafter) DraftEmail(
	ctx context.Context,
	lead domain.Lead,
	emailType domain.EmailType,
	websiteMarkdown string,
) (*Draft, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("drafter is not initialized")
	}
	if !emailType.IsValid() {
		return nil, &AdapterError{Message: fmt.Sprintf("invalid email type %q", emailType)}
	}

	var parsed draftResponse
	response, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(draftRequest{
			EmailType:       emailType.String(),
			FirstName:       lead.FirstName,
			LastName:        lead.LastName,
			Title:           lead.Title,
			CompanyName:     lead.CompanyName,
			CompanyDomain:   lead.CompanyDomain,
			CompanyIndustry: lead.Industry,
			WebsiteMarkdown: websiteMarkdown,
		}).
		SetResult(&parsed).
		Post(d.endpoint)
	if err != nil {
		return nil, &AdapterError{
			Message:   "draft request failed",
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

	if strings.TrimSpace(parsed.Subject) == "" || strings.TrimSpace(parsed.Body) == "" {
		return nil, &AdapterError{
			StatusCode: statusCode,
			Message:    "draft response missing subject or body",
		}
	}

	return &Draft{
		Subject:        parsed.Subject,
		Body:           parsed.Body,
		IsPersonalized: parsed.IsPersonalized,
	}, nil
}
