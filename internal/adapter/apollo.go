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

const (
	defaultSearchTimeout = 45 * time.Second
	apolloMaxPerPage     = 100
)

// Default C-suite titles searched when the criteria name none.
var defaultApolloTitles = []string{
	"CEO", "COO", "Director", "President", "Owner", "Founder", "Board of Directors",
}

// Default employee size brackets in Apollo's "min,max" range format.
var defaultEmployeeRanges = []string{
	"1,10", "11,20", "21,50", "51,100", "101,200", "201,500",
}

type apolloSearchRequest struct {
	PersonTitles       []string `json:"person_titles,omitempty"`
	OrgEmployeeRanges  []string `json:"organization_num_employees_ranges,omitempty"`
	PersonLocations    []string `json:"person_locations,omitempty"`
	OrganizationSIC    []string `json:"organization_sic_codes,omitempty"`
	Page               int      `json:"page"`
	PerPage            int      `json:"per_page"`
	ContactEmailStatus []string `json:"contact_email_status,omitempty"`
}

type apolloPerson struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Title        string `json:"title"`
	Organization struct {
		Name          string `json:"name"`
		PrimaryDomain string `json:"primary_domain"`
		WebsiteURL    string `json:"website_url"`
		Industry      string `json:"industry"`
		EmployeeCount *int   `json:"estimated_num_employees"`
		Country       string `json:"country"`
	} `json:"organization"`
}

type apolloSearchResponse struct {
	People     []apolloPerson `json:"people"`
	Pagination struct {
		Page       int `json:"page"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

// ApolloSearcher finds leads through the Apollo people search API.
type ApolloSearcher struct {
	client  *resty.Client
	baseURL string
}

func NewApolloSearcher(baseURL string, apiKey string) (*ApolloSearcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("apollo api key is required")
	}

	client := resty.New()
	client.SetTimeout(defaultSearchTimeout)
	client.SetRetryCount(0)
	client.SetHeader("X-Api-Key", apiKey)

	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = "https://api.apollo.io/api/v1"
	}

	return &ApolloSearcher{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (a *ApolloSearcher) Source() domain.LeadSource {
	return domain.SourceApollo
}

func (a *ApolloSearcher) SearchLeads(ctx context.Context, criteria SearchCriteria, count int) ([]domain.Lead, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("apollo searcher is not initialized")
	}
	if count < 1 {
		return nil, &AdapterError{Message: "count must be >= 1"}
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to encode criteria: %w", err)
	}

	leads := make([]domain.Lead, 0, count)
	page := 1
	for len(leads) < count {
		perPage := min(count-len(leads), apolloMaxPerPage)

		parsed, err := a.searchPage(ctx, criteria, page, perPage)
		if err != nil {
			return nil, err
		}
		if len(parsed.People) == 0 {
			break
		}

		for _, person := range parsed.People {
			if len(leads) >= count {
				break
			}
			if strings.TrimSpace(person.Email) == "" {
				continue
			}
			leads = append(leads, personToLead(person, string(criteriaJSON)))
		}

		if parsed.Pagination.TotalPages > 0 && page >= parsed.Pagination.TotalPages {
			break
		}
		page++
	}

	return leads, nil
}

func (a *ApolloSearcher) searchPage(ctx context.Context, criteria SearchCriteria, page int, perPage int) (*apolloSearchResponse, error) {
	titles := criteria.Titles
	if len(titles) == 0 {
		titles = defaultApolloTitles
	}

	var parsed apolloSearchResponse
	response, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(apolloSearchRequest{
			PersonTitles:       titles,
			OrgEmployeeRanges:  employeeRanges(criteria.EmployeeSizeMin, criteria.EmployeeSizeMax),
			PersonLocations:    criteria.Countries,
			OrganizationSIC:    criteria.SICCodes,
			Page:               page,
			PerPage:            perPage,
			ContactEmailStatus: []string{"verified"},
		}).
		SetResult(&parsed).
		Post(a.baseURL + "/mixed_people/search")
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

	return &parsed, nil
}

func employeeRanges(minSize *int, maxSize *int) []string {
	switch {
	case minSize == nil && maxSize == nil:
		return defaultEmployeeRanges
	case minSize != nil && maxSize != nil:
		return []string{fmt.Sprintf("%d,%d", *minSize, *maxSize)}
	case minSize != nil:
		return []string{fmt.Sprintf("%d,", *minSize)}
	default:
		return []string{fmt.Sprintf(",%d", *maxSize)}
	}
}

func personToLead(person apolloPerson, criteriaJSON string) domain.Lead {
	sourceID := person.ID

	return domain.Lead{
		Source:         domain.SourceApollo,
		SourceLeadID:   &sourceID,
		FirstName:      person.FirstName,
		LastName:       person.LastName,
		Email:          person.Email,
		Title:          person.Title,
		CompanyName:    person.Organization.Name,
		CompanyDomain:  person.Organization.PrimaryDomain,
		CompanyWebsite: person.Organization.WebsiteURL,
		EmployeeSize:   person.Organization.EmployeeCount,
		Country:        person.Organization.Country,
		Industry:       person.Organization.Industry,
		CriteriaJSON:   criteriaJSON,
		Status:         domain.LeadStatusNew,
	}
}
