package domain

import (
	"fmt"
	"strings"
	"time"
)

// FollowupType identifies a derived follow-up email and its schedule offset
// relative to the initial email's send time.
type FollowupType string

const (
	Followup5Day  FollowupType = "followup_5day"
	Followup10Day FollowupType = "followup_10day"
)

// AllFollowupTypes lists the follow-ups derived from every sent initial email.
var AllFollowupTypes = []FollowupType{Followup5Day, Followup10Day}

func (t FollowupType) String() string { return string(t) }

func (t FollowupType) IsValid() bool {
	switch t {
	case Followup5Day, Followup10Day:
		return true
	}
	return false
}

// Offset returns the delay between the initial send and this follow-up.
func (t FollowupType) Offset() time.Duration {
	switch t {
	case Followup5Day:
		return 5 * 24 * time.Hour
	case Followup10Day:
		return 10 * 24 * time.Hour
	}
	return 0
}

// EmailType maps the follow-up to the email type drafted for it.
func (t FollowupType) EmailType() EmailType {
	switch t {
	case Followup5Day:
		return EmailTypeFollowup5Day
	case Followup10Day:
		return EmailTypeFollowup10Day
	}
	return ""
}

func ParseFollowupTypeFromString(s string) (FollowupType, error) {
	ft := FollowupType(strings.ToLower(strings.TrimSpace(s)))
	if !ft.IsValid() {
		return "", fmt.Errorf("%w: invalid followup type %q", ErrValidation, s)
	}
	return ft, nil
}

// FollowupStatus represents the lifecycle state of a follow-up task.
// PROCESSING is the in-flight claim marker. SENT may still be promoted to
// REPLIED when a reply is observed later.
type FollowupStatus string

const (
	FollowupStatusScheduled  FollowupStatus = "SCHEDULED"
	FollowupStatusProcessing FollowupStatus = "PROCESSING"
	FollowupStatusSent       FollowupStatus = "SENT"
	FollowupStatusReplied    FollowupStatus = "REPLIED"
	FollowupStatusFailed     FollowupStatus = "FAILED"
	FollowupStatusCanceled   FollowupStatus = "CANCELED"
)

func (s FollowupStatus) String() string { return string(s) }

func (s FollowupStatus) IsValid() bool {
	switch s {
	case FollowupStatusScheduled, FollowupStatusProcessing, FollowupStatusSent,
		FollowupStatusReplied, FollowupStatusFailed, FollowupStatusCanceled:
		return true
	}
	return false
}

func ParseFollowupStatusFromString(s string) (FollowupStatus, error) {
	st := FollowupStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid followup status %q", ErrValidation, s)
	}
	return st, nil
}

// FollowupTask is a time-deferred derivative email keyed off a sent initial
// email. EmailID is set once the follow-up email has been drafted.
type FollowupTask struct {
	ID            string
	LeadID        string
	EmailID       *string
	FollowupType  FollowupType
	ScheduledDate time.Time
	Status        FollowupStatus
	AttemptCount  int
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *FollowupTask) Validate() error {
	if strings.TrimSpace(t.LeadID) == "" {
		return fmt.Errorf("%w: lead id is required", ErrValidation)
	}
	if !t.FollowupType.IsValid() {
		return fmt.Errorf("%w: invalid followup type %q", ErrValidation, t.FollowupType)
	}
	if t.ScheduledDate.IsZero() {
		return fmt.Errorf("%w: scheduled date is required", ErrValidation)
	}
	return nil
}
