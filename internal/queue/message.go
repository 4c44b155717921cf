package queue

import (
	"fmt"
	"strings"

	"github.com/leadforge/outreach-engine/internal/domain"
)

// LeadMessage is the broker payload for per-lead pipeline processing.
type LeadMessage struct {
	LeadID        string           `json:"leadId"`
	CorrelationID string           `json:"correlationId,omitempty"`
	EmailType     domain.EmailType `json:"emailType"`
}

func (m LeadMessage) Validate() error {
	if strings.TrimSpace(m.LeadID) == "" {
		return fmt.Errorf("leadId is required")
	}
	if !m.EmailType.IsValid() {
		return fmt.Errorf("invalid email type %q", m.EmailType)
	}
	return nil
}
