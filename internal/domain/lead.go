package domain

import (
	"fmt"
	"strings"
	"time"
)

// LeadSource identifies the scraping provider a lead came from.
type LeadSource string

const (
	SourceApollo LeadSource = "apollo"
	SourceApify  LeadSource = "apify"
)

func (s LeadSource) String() string { return string(s) }

func (s LeadSource) IsValid() bool {
	switch s {
	case SourceApollo, SourceApify:
		return true
	}
	return false
}

func ParseLeadSourceFromString(s string) (LeadSource, error) {
	src := LeadSource(strings.ToLower(strings.TrimSpace(s)))
	if !src.IsValid() {
		return "", fmt.Errorf("%w: invalid lead source %q", ErrValidation, s)
	}
	return src, nil
}

// LeadStatus represents the lifecycle state of a lead in the pipeline.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "NEW"
	LeadStatusProcessing  LeadStatus = "PROCESSING"
	LeadStatusDrafted     LeadStatus = "DRAFTED"
	LeadStatusDraftFailed LeadStatus = "DRAFT_FAILED"
	LeadStatusReplied     LeadStatus = "REPLIED"
	LeadStatusArchived    LeadStatus = "ARCHIVED"
)

func (s LeadStatus) String() string { return string(s) }

func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusProcessing, LeadStatusDrafted,
		LeadStatusDraftFailed, LeadStatusReplied, LeadStatusArchived:
		return true
	}
	return false
}

func ParseLeadStatusFromString(s string) (LeadStatus, error) {
	st := LeadStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid lead status %q", ErrValidation, s)
	}
	return st, nil
}

// Lead is a prospective contact found by a scraping source. Contact and company
// fields are immutable after creation; only status moves.
type Lead struct {
	ID           string
	ScrapeRunID  *string
	Source       LeadSource
	SourceLeadID *string

	FirstName      string
	LastName       string
	Email          string
	Title          string
	CompanyName    string
	CompanyDomain  string
	CompanyWebsite string
	EmployeeSize   *int
	Country        string
	Industry       string

	// CriteriaJSON snapshots the search filters that found this lead.
	CriteriaJSON string

	Status    LeadStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Email) == "" {
		return fmt.Errorf("%w: lead email is required", ErrValidation)
	}
	if !strings.Contains(l.Email, "@") {
		return fmt.Errorf("%w: invalid lead email %q", ErrValidation, l.Email)
	}
	if !l.Source.IsValid() {
		return fmt.Errorf("%w: invalid lead source %q", ErrValidation, l.Source)
	}
	if strings.TrimSpace(l.CompanyName) == "" {
		return fmt.Errorf("%w: company name is required", ErrValidation)
	}
	return nil
}

// FullName joins the contact name fields for drafting context.
func (l *Lead) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(l.FirstName) + " " + strings.TrimSpace(l.LastName))
}
