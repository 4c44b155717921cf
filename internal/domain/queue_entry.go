package domain

import (
	"fmt"
	"strings"
	"time"
)

// QueueStatus represents the delivery state of a queue entry. SENDING is the
// in-flight claim marker; a worker owns the entry exactly while it holds it.
type QueueStatus string

const (
	QueueStatusQueued  QueueStatus = "QUEUED"
	QueueStatusSending QueueStatus = "SENDING"
	QueueStatusSent    QueueStatus = "SENT"
	QueueStatusFailed  QueueStatus = "FAILED"
)

func (s QueueStatus) String() string { return string(s) }

func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusQueued, QueueStatusSending, QueueStatusSent, QueueStatusFailed:
		return true
	}
	return false
}

func ParseQueueStatusFromString(s string) (QueueStatus, error) {
	st := QueueStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid queue status %q", ErrValidation, s)
	}
	return st, nil
}

// QueueEntry is a scheduled unit of outbound delivery for a generated email.
// Entries are append-only; processing transitions status in place.
type QueueEntry struct {
	ID        string
	EmailID   string
	LeadID    string
	Recipient string

	ScheduledTime time.Time
	Status        QueueStatus

	AttemptCount int
	MaxRetries   int
	LastError    *string

	// IdempotencyKey is stable per entry across retries so the send adapter can
	// deduplicate a retry after a timeout that actually delivered.
	IdempotencyKey    string
	ProviderMessageID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *QueueEntry) Validate() error {
	if strings.TrimSpace(e.EmailID) == "" {
		return fmt.Errorf("%w: email id is required", ErrValidation)
	}
	if strings.TrimSpace(e.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if e.ScheduledTime.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", ErrValidation)
	}
	return nil
}
