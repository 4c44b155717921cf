package domain

import "time"

// DeliveryAttempt records a single send attempt for a queue entry.
type DeliveryAttempt struct {
	ID            string
	EntryID       string
	AttemptNumber int
	StatusCode    *int
	ResponseBody  *string
	Error         *string
	CreatedAt     time.Time
}
