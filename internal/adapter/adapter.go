package adapter

import (
	"context"

	"github.com/leadforge/outreach-engine/internal/domain"
)

// ScrapeResult is the outcome of fetching a company website.
type ScrapeResult struct {
	URL      string
	Markdown string
}

// Draft is a generated email returned by the drafting adapter.
type Draft struct {
	Subject        string
	Body           string
	IsPersonalized bool
}

// SendResult carries provider call metadata for audit and persistence.
type SendResult struct {
	StatusCode int
	Body       string
	MessageID  string
}

// SendRequest is a single outbound email delivery. IdempotencyKey is stable
// across retries of the same queue entry so the provider can deduplicate.
type SendRequest struct {
	Recipient      string
	Subject        string
	Body           string
	IdempotencyKey string
}

// SearchCriteria are the lead filters forwarded to a scraping source.
type SearchCriteria struct {
	EmployeeSizeMin *int     `json:"employeeSizeMin,omitempty"`
	EmployeeSizeMax *int     `json:"employeeSizeMax,omitempty"`
	Countries       []string `json:"countries,omitempty"`
	SICCodes        []string `json:"sicCodes,omitempty"`
	Titles          []string `json:"titles,omitempty"`
	Industry        string   `json:"industry,omitempty"`
}

// WebsiteScraper fetches a company website as markdown.
type WebsiteScraper interface {
	ScrapeWebsite(ctx context.Context, url string) (*ScrapeResult, error)
}

// EmailDrafter turns a lead plus optional website content into an email draft.
// websiteMarkdown is empty when no usable artifact exists; the drafter then
// produces an unpersonalized draft.
type EmailDrafter interface {
	DraftEmail(ctx context.Context, lead domain.Lead, emailType domain.EmailType, websiteMarkdown string) (*Draft, error)
}

// EmailSender transmits an email and returns the provider message id.
type EmailSender interface {
	SendEmail(ctx context.Context, req SendRequest) (*SendResult, error)
}

// ReplyObserver reports whether a lead has replied to any email sent so far.
type ReplyObserver interface {
	ObserveReply(ctx context.Context, leadID string) (bool, error)
}

// LeadSearcher finds leads at a scraping source matching the criteria.
type LeadSearcher interface {
	SearchLeads(ctx context.Context, criteria SearchCriteria, count int) ([]domain.Lead, error)
	Source() domain.LeadSource
}
