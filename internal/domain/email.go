package domain

import (
	"fmt"
	"strings"
	"time"
)

// EmailType distinguishes the initial outreach email from its timed follow-ups.
type EmailType string

const (
	EmailTypeInitial       EmailType = "initial"
	EmailTypeFollowup5Day  EmailType = "followup_5day"
	EmailTypeFollowup10Day EmailType = "followup_10day"
)

func (t EmailType) String() string { return string(t) }

func (t EmailType) IsValid() bool {
	switch t {
	case EmailTypeInitial, EmailTypeFollowup5Day, EmailTypeFollowup10Day:
		return true
	}
	return false
}

// IsFollowup reports whether the type is one of the derived follow-up emails.
func (t EmailType) IsFollowup() bool {
	return t == EmailTypeFollowup5Day || t == EmailTypeFollowup10Day
}

func ParseEmailTypeFromString(s string) (EmailType, error) {
	et := EmailType(strings.ToLower(strings.TrimSpace(s)))
	if !et.IsValid() {
		return "", fmt.Errorf("%w: invalid email type %q", ErrValidation, s)
	}
	return et, nil
}

// EmailStatus represents the lifecycle state of a generated email.
type EmailStatus string

const (
	EmailStatusGenerated EmailStatus = "GENERATED"
	EmailStatusQueued    EmailStatus = "QUEUED"
	EmailStatusSent      EmailStatus = "SENT"
	EmailStatusFailed    EmailStatus = "FAILED"
)

func (s EmailStatus) String() string { return string(s) }

func (s EmailStatus) IsValid() bool {
	switch s {
	case EmailStatusGenerated, EmailStatusQueued, EmailStatusSent, EmailStatusFailed:
		return true
	}
	return false
}

// GeneratedEmail is a drafted outbound email for a lead. At most one exists per
// (lead, type); regeneration returns the existing record.
type GeneratedEmail struct {
	ID             string
	LeadID         string
	EmailType      EmailType
	Subject        string
	Body           string
	IsPersonalized bool
	WebsiteUsed    bool
	Status         EmailStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SentAt         *time.Time
}

func (e *GeneratedEmail) Validate() error {
	if strings.TrimSpace(e.LeadID) == "" {
		return fmt.Errorf("%w: lead id is required", ErrValidation)
	}
	if !e.EmailType.IsValid() {
		return fmt.Errorf("%w: invalid email type %q", ErrValidation, e.EmailType)
	}
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	return nil
}
