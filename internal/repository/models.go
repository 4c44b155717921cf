package repository

import (
	"time"

	"github.com/leadforge/outreach-engine/internal/domain"
)

// LeadModel is the persistence model for the leads table.
type LeadModel struct {
	ID             string            `gorm:"type:uuid;primaryKey"`
	ScrapeRunID    *string           `gorm:"type:uuid"`
	Source         domain.LeadSource `gorm:"type:varchar(20);not null"`
	SourceLeadID   *string           `gorm:"type:varchar(255)"`
	FirstName      string            `gorm:"type:varchar(255)"`
	LastName       string            `gorm:"type:varchar(255)"`
	Email          string            `gorm:"type:varchar(255);not null"`
	Title          string            `gorm:"type:varchar(255)"`
	CompanyName    string            `gorm:"type:varchar(255);not null"`
	CompanyDomain  string            `gorm:"type:varchar(255)"`
	CompanyWebsite string            `gorm:"type:varchar(512)"`
	EmployeeSize   *int              `gorm:"type:int"`
	Country        string            `gorm:"type:varchar(64)"`
	Industry       string            `gorm:"type:varchar(255)"`
	CriteriaJSON   string            `gorm:"type:jsonb;column:criteria_json"`
	Status         domain.LeadStatus `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (LeadModel) TableName() string {
	return "leads"
}

// ScrapeRunModel is the persistence model for scrape_runs.
type ScrapeRunModel struct {
	ID             string                 `gorm:"type:uuid;primaryKey"`
	Source         domain.LeadSource      `gorm:"type:varchar(20);not null"`
	CriteriaJSON   string                 `gorm:"type:jsonb;column:criteria_json"`
	RequestedCount int                    `gorm:"not null"`
	FoundCount     int                    `gorm:"not null;default:0"`
	Status         domain.ScrapeRunStatus `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ScrapeRunModel) TableName() string {
	return "scrape_runs"
}

// WebsiteArtifactModel is the persistence model for website_artifacts.
type WebsiteArtifactModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Domain    string `gorm:"type:varchar(255);not null;uniqueIndex:idx_website_artifacts_domain"`
	URL       string `gorm:"type:varchar(512)"`
	Markdown  string `gorm:"type:text"`
	Success   bool   `gorm:"not null;default:false"`
	Error     string `gorm:"type:text"`
	FetchedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WebsiteArtifactModel) TableName() string {
	return "website_artifacts"
}

// GeneratedEmailModel is the persistence model for generated_emails.
type GeneratedEmailModel struct {
	ID             string             `gorm:"type:uuid;primaryKey"`
	LeadID         string             `gorm:"type:uuid;not null;uniqueIndex:idx_generated_emails_lead_type,priority:1"`
	EmailType      domain.EmailType   `gorm:"type:varchar(20);not null;uniqueIndex:idx_generated_emails_lead_type,priority:2"`
	Subject        string             `gorm:"type:text;not null"`
	Body           string             `gorm:"type:text;not null"`
	IsPersonalized bool               `gorm:"not null;default:false"`
	WebsiteUsed    bool               `gorm:"not null;default:false"`
	Status         domain.EmailStatus `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SentAt         *time.Time
}

func (GeneratedEmailModel) TableName() string {
	return "generated_emails"
}

// QueueEntryModel is the persistence model for queue_entries.
type QueueEntryModel struct {
	ID                string             `gorm:"type:uuid;primaryKey"`
	EmailID           string             `gorm:"type:uuid;not null"`
	LeadID            string             `gorm:"type:uuid;not null"`
	Recipient         string             `gorm:"type:varchar(255);not null"`
	ScheduledTime     time.Time          `gorm:"type:timestamptz;not null"`
	Status            domain.QueueStatus `gorm:"type:varchar(20);not null"`
	AttemptCount      int                `gorm:"not null;default:0"`
	MaxRetries        int                `gorm:"not null;default:3"`
	LastError         *string            `gorm:"type:text"`
	IdempotencyKey    string             `gorm:"type:varchar(255);not null"`
	ProviderMessageID *string            `gorm:"type:varchar(255)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (QueueEntryModel) TableName() string {
	return "queue_entries"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	EntryID       string  `gorm:"type:uuid;not null"`
	AttemptNumber int     `gorm:"not null"`
	StatusCode    *int    `gorm:"type:int"`
	ResponseBody  *string `gorm:"type:text"`
	Error         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// FollowupTaskModel is the persistence model for followup_tasks.
type FollowupTaskModel struct {
	ID            string                `gorm:"type:uuid;primaryKey"`
	LeadID        string                `gorm:"type:uuid;not null;uniqueIndex:idx_followup_tasks_lead_type,priority:1"`
	EmailID       *string               `gorm:"type:uuid"`
	FollowupType  domain.FollowupType   `gorm:"type:varchar(20);not null;uniqueIndex:idx_followup_tasks_lead_type,priority:2"`
	ScheduledDate time.Time             `gorm:"type:timestamptz;not null"`
	Status        domain.FollowupStatus `gorm:"type:varchar(20);not null"`
	AttemptCount  int                   `gorm:"not null;default:0"`
	LastError     *string               `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (FollowupTaskModel) TableName() string {
	return "followup_tasks"
}

func leadModelFromDomain(l *domain.Lead) *LeadModel {
	if l == nil {
		return nil
	}

	return &LeadModel{
		ID:             l.ID,
		ScrapeRunID:    l.ScrapeRunID,
		Source:         l.Source,
		SourceLeadID:   l.SourceLeadID,
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		Email:          l.Email,
		Title:          l.Title,
		CompanyName:    l.CompanyName,
		CompanyDomain:  l.CompanyDomain,
		CompanyWebsite: l.CompanyWebsite,
		EmployeeSize:   l.EmployeeSize,
		Country:        l.Country,
		Industry:       l.Industry,
		CriteriaJSON:   l.CriteriaJSON,
		Status:         l.Status,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func leadModelToDomain(m *LeadModel) *domain.Lead {
	if m == nil {
		return nil
	}

	return &domain.Lead{
		ID:             m.ID,
		ScrapeRunID:    m.ScrapeRunID,
		Source:         m.Source,
		SourceLeadID:   m.SourceLeadID,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Email:          m.Email,
		Title:          m.Title,
		CompanyName:    m.CompanyName,
		CompanyDomain:  m.CompanyDomain,
		CompanyWebsite: m.CompanyWebsite,
		EmployeeSize:   m.EmployeeSize,
		Country:        m.Country,
		Industry:       m.Industry,
		CriteriaJSON:   m.CriteriaJSON,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func scrapeRunModelFromDomain(r *domain.ScrapeRun) *ScrapeRunModel {
	if r == nil {
		return nil
	}

	return &ScrapeRunModel{
		ID:             r.ID,
		Source:         r.Source,
		CriteriaJSON:   r.CriteriaJSON,
		RequestedCount: r.RequestedCount,
		FoundCount:     r.FoundCount,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func scrapeRunModelToDomain(m *ScrapeRunModel) *domain.ScrapeRun {
	if m == nil {
		return nil
	}

	return &domain.ScrapeRun{
		ID:             m.ID,
		Source:         m.Source,
		CriteriaJSON:   m.CriteriaJSON,
		RequestedCount: m.RequestedCount,
		FoundCount:     m.FoundCount,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func websiteModelFromDomain(a *domain.WebsiteArtifact) *WebsiteArtifactModel {
	if a == nil {
		return nil
	}

	return &WebsiteArtifactModel{
		ID:        a.ID,
		Domain:    a.Domain,
		URL:       a.URL,
		Markdown:  a.Markdown,
		Success:   a.Success,
		Error:     a.Error,
		FetchedAt: a.FetchedAt,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func websiteModelToDomain(m *WebsiteArtifactModel) *domain.WebsiteArtifact {
	if m == nil {
		return nil
	}

	return &domain.WebsiteArtifact{
		ID:        m.ID,
		Domain:    m.Domain,
		URL:       m.URL,
		Markdown:  m.Markdown,
		Success:   m.Success,
		Error:     m.Error,
		FetchedAt: m.FetchedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func emailModelFromDomain(e *domain.GeneratedEmail) *GeneratedEmailModel {
	if e == nil {
		return nil
	}

	return &GeneratedEmailModel{
		ID:             e.ID,
		LeadID:         e.LeadID,
		EmailType:      e.EmailType,
		Subject:        e.Subject,
		Body:           e.Body,
		IsPersonalized: e.IsPersonalized,
		WebsiteUsed:    e.WebsiteUsed,
		Status:         e.Status,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		SentAt:         e.SentAt,
	}
}

func emailModelToDomain(m *GeneratedEmailModel) *domain.GeneratedEmail {
	if m == nil {
		return nil
	}

	return &domain.GeneratedEmail{
		ID:             m.ID,
		LeadID:         m.LeadID,
		EmailType:      m.EmailType,
		Subject:        m.Subject,
		Body:           m.Body,
		IsPersonalized: m.IsPersonalized,
		WebsiteUsed:    m.WebsiteUsed,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		SentAt:         m.SentAt,
	}
}

func entryModelFromDomain(e *domain.QueueEntry) *QueueEntryModel {
	if e == nil {
		return nil
	}

	return &QueueEntryModel{
		ID:                e.ID,
		EmailID:           e.EmailID,
		LeadID:            e.LeadID,
		Recipient:         e.Recipient,
		ScheduledTime:     e.ScheduledTime,
		Status:            e.Status,
		AttemptCount:      e.AttemptCount,
		MaxRetries:        e.MaxRetries,
		LastError:         e.LastError,
		IdempotencyKey:    e.IdempotencyKey,
		ProviderMessageID: e.ProviderMessageID,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func entryModelToDomain(m *QueueEntryModel) *domain.QueueEntry {
	if m == nil {
		return nil
	}

	return &domain.QueueEntry{
		ID:                m.ID,
		EmailID:           m.EmailID,
		LeadID:            m.LeadID,
		Recipient:         m.Recipient,
		ScheduledTime:     m.ScheduledTime,
		Status:            m.Status,
		AttemptCount:      m.AttemptCount,
		MaxRetries:        m.MaxRetries,
		LastError:         m.LastError,
		IdempotencyKey:    m.IdempotencyKey,
		ProviderMessageID: m.ProviderMessageID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:            a.ID,
		EntryID:       a.EntryID,
		AttemptNumber: a.AttemptNumber,
		StatusCode:    a.StatusCode,
		ResponseBody:  a.ResponseBody,
		Error:         a.Error,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:            m.ID,
		EntryID:       m.EntryID,
		AttemptNumber: m.AttemptNumber,
		StatusCode:    m.StatusCode,
		ResponseBody:  m.ResponseBody,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}

func followupModelFromDomain(t *domain.FollowupTask) *FollowupTaskModel {
	if t == nil {
		return nil
	}

	return &FollowupTaskModel{
		ID:            t.ID,
		LeadID:        t.LeadID,
		EmailID:       t.EmailID,
		FollowupType:  t.FollowupType,
		ScheduledDate: t.ScheduledDate,
		Status:        t.Status,
		AttemptCount:  t.AttemptCount,
		LastError:     t.LastError,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func followupModelToDomain(m *FollowupTaskModel) *domain.FollowupTask {
	if m == nil {
		return nil
	}

	return &domain.FollowupTask{
		ID:            m.ID,
		LeadID:        m.LeadID,
		EmailID:       m.EmailID,
		FollowupType:  m.FollowupType,
		ScheduledDate: m.ScheduledDate,
		Status:        m.Status,
		AttemptCount:  m.AttemptCount,
		LastError:     m.LastError,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
