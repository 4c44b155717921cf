package domain

import "time"

// ScrapeRunStatus represents the processing state of a lead scrape request.
type ScrapeRunStatus string

const (
	ScrapeRunStatusProcessing     ScrapeRunStatus = "PROCESSING"
	ScrapeRunStatusCompleted      ScrapeRunStatus = "COMPLETED"
	ScrapeRunStatusPartialFailure ScrapeRunStatus = "PARTIAL_FAILURE"
)

func (s ScrapeRunStatus) String() string { return string(s) }

func (s ScrapeRunStatus) IsValid() bool {
	switch s {
	case ScrapeRunStatusProcessing, ScrapeRunStatusCompleted, ScrapeRunStatusPartialFailure:
		return true
	}
	return false
}

// ScrapeRun groups the leads found by one scrape request.
type ScrapeRun struct {
	ID             string
	Source         LeadSource
	CriteriaJSON   string
	RequestedCount int
	FoundCount     int
	Status         ScrapeRunStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
