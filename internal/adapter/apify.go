package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/leadforge/outreach-engine/internal/domain"
)

const defaultApifyTimeout = 120 * time.Second

type apifyRunInput struct {
	Titles       []string `json:"titles,omitempty"`
	Locations    []string `json:"locations,omitempty"`
	Industry     string   `json:"industry,omitempty"`
	MaxResults   int      `json:"maxResults"`
	EmployeesMin *int     `json:"employeesMin,omitempty"`
	EmployeesMax *int     `json:"employeesMax,omitempty"`
}

type apifyContact struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Title          string `json:"title"`
	CompanyName    string `json:"companyName"`
	CompanyDomain  string `json:"companyDomain"`
	CompanyWebsite string `json:"companyWebsite"`
	Country        string `json:"country"`
	Industry       string `json:"industry"`
}

// ApifySearcher finds leads by running an Apify actor synchronously and
// reading its dataset items.
type ApifySearcher struct {
	client  *resty.Client
	baseURL string
	actorID string
}

func NewApifySearcher(baseURL string, token string, actorID string) (*ApifySearcher, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("apify token is required")
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, fmt.Errorf("apify actor id is required")
	}

	client := resty.New()
	client.SetTimeout(defaultApifyTimeout)
	client.SetRetryCount(0)
	client.SetAuthToken(token)

	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = "https://api.apify.com/v2"
	}

	return &ApifySearcher{
		client:  client,
		baseURL: trimmed,
		actorID: strings.TrimSpace(actorID),
	}, nil
}

func (a *ApifySearcher) Source() domain.LeadSource {
	return domain.SourceApify
}

func (a *ApifySearcher) SearchLeads(ctx context.Context, criteria SearchCriteria, count int) ([]domain.Lead, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("apify searcher is not initialized")
	}
	if count < 1 {
		return nil, &AdapterError{Message: "count must be >= 1"}
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to encode criteria: %w", err)
	}

	var contacts []apifyContact
	response, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(apifyRunInput{
			Titles:       criteria.Titles,
			Locations:    criteria.Countries,
			Industry:     criteria.Industry,
			MaxResults:   count,
			EmployeesMin: criteria.EmployeeSizeMin,
			EmployeesMax: criteria.EmployeeSizeMax,
		}).
		SetResult(&contacts).
		Post(fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", a.baseURL, a.actorID))
	if err != nil {
		return nil, &AdapterError{
			Message:   "lead search failed",
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

	leads := make([]domain.Lead, 0, min(count, len(contacts)))
	for _, contact := range contacts {
		if len(leads) >= count {
			break
		}
		if strings.TrimSpace(contact.Email) == "" {
			continue
		}
		leads = append(leads, domain.Lead{
			Source:         domain.SourceApify,
			FirstName:      contact.FirstName,
			LastName:       contact.LastName,
			Email:          contact.Email,
			Title:          contact.Title,
			CompanyName:    contact.CompanyName,
			CompanyDomain:  contact.CompanyDomain,
			CompanyWebsite: contact.CompanyWebsite,
			Country:        contact.Country,
			Industry:       contact.Industry,
			CriteriaJSON:   string(criteriaJSON),
			Status:         domain.LeadStatusNew,
		})
	}

	return leads, nil
}
