package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/service"
)

type EmailService interface {
	Generate(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error)
	GetByLeadAndType(ctx context.Context, leadID string, emailType domain.EmailType) (*domain.GeneratedEmail, error)
	ListByLead(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error)
}

type QueueService interface {
	Enqueue(ctx context.Context, emailID string, scheduledTime time.Time) (*domain.QueueEntry, bool, error)
	GetEntry(ctx context.Context, id string) (*domain.QueueEntry, error)
	ListPending(ctx context.Context, limit int) ([]domain.QueueEntry, error)
	Attempts(ctx context.Context, entryID string) ([]domain.DeliveryAttempt, error)
	ProcessDue(ctx context.Context, limit int) (*service.ProcessResult, error)
}

type EmailHandler struct {
	emails EmailService
	queue  QueueService
}

func NewEmailHandler(emails EmailService, queue QueueService) (*EmailHandler, error) {
	if emails == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue service is required")
	}
	return &EmailHandler{emails: emails, queue: queue}, nil
}

func RegisterEmailRoutes(router fiber.Router, emails EmailService, queue QueueService) error {
	h, err := NewEmailHandler(emails, queue)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/emails/generate/:leadId", h.GenerateEmail)
	v1.Post("/emails/send/:leadId", h.SendEmail)
	v1.Get("/emails/lead/:leadId", h.ListLeadEmails)
	v1.Get("/emails/queue", h.ListQueue)
	v1.Post("/emails/queue/process", h.ProcessQueue)
	v1.Get("/emails/queue/:entryId", h.GetQueueEntry)
	v1.Get("/emails/queue/:entryId/attempts", h.ListQueueEntryAttempts)

	return nil
}

type generateEmailRequest struct {
	EmailType       string `json:"emailType"`
	ForceRegenerate bool   `json:"forceRegenerate"`
}

type sendEmailRequest struct {
	EmailType     string     `json:"emailType"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

type emailResponse struct {
	ID             string     `json:"id"`
	LeadID         string     `json:"leadId"`
	EmailType      string     `json:"emailType"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
	IsPersonalized bool       `json:"isPersonalized"`
	WebsiteUsed    bool       `json:"websiteUsed"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type generateEmailResponse struct {
	Email            emailResponse `json:"email"`
	AlreadyGenerated bool          `json:"alreadyGenerated"`
	WebsiteUsed      bool          `json:"websiteUsed"`
	WebsiteFromCache bool          `json:"websiteFromCache"`
}

type queueEntryResponse struct {
	ID                string     `json:"id"`
	EmailID           string     `json:"emailId"`
	LeadID            string     `json:"leadId"`
	Recipient         string     `json:"recipient"`
	ScheduledTime     time.Time  `json:"scheduledTime"`
	Status            string     `json:"status"`
	AttemptCount      int        `json:"attemptCount"`
	MaxRetries        int        `json:"maxRetries"`
	LastError         *string    `json:"lastError,omitempty"`
	ProviderMessageID *string    `json:"providerMessageId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type sendEmailResponse struct {
	Entry            queueEntryResponse `json:"entry"`
	AlreadyGenerated bool               `json:"alreadyGenerated"`
	AlreadyQueued    bool               `json:"alreadyQueued"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	EntryID       string    `json:"entryId"`
	AttemptNumber int       `json:"attemptNumber"`
	StatusCode    *int      `json:"statusCode,omitempty"`
	ResponseBody  *string   `json:"responseBody,omitempty"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type processQueueResponse struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

func (h *EmailHandler) GenerateEmail(c *fiber.Ctx) error {
	leadID := strings.TrimSpace(c.Params("leadId"))

	req := generateEmailRequest{EmailType: domain.EmailTypeInitial.String()}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	emailType, err := domain.ParseEmailTypeFromString(req.EmailType)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.emails.Generate(c.Context(), leadID, emailType, req.ForceRegenerate)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusCreated
	if result.AlreadyGenerated {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(generateEmailResponse{
		Email:            toEmailResponse(result.Email),
		AlreadyGenerated: result.AlreadyGenerated,
		WebsiteUsed:      result.WebsiteUsed,
		WebsiteFromCache: result.WebsiteFromCache,
	})
}

// SendEmail drafts the email if needed and queues it for delivery. Repeating
// the call while an entry is live returns that entry instead of a duplicate.
func (h *EmailHandler) SendEmail(c *fiber.Ctx) error {
	leadID := strings.TrimSpace(c.Params("leadId"))

	req := sendEmailRequest{EmailType: domain.EmailTypeInitial.String()}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	emailType, err := domain.ParseEmailTypeFromString(req.EmailType)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.emails.Generate(c.Context(), leadID, emailType, false)
	if err != nil {
		return toHTTPError(err)
	}

	scheduledTime := time.Time{}
	if req.ScheduledTime != nil {
		scheduledTime = *req.ScheduledTime
	}

	entry, suppressed, err := h.queue.Enqueue(c.Context(), result.Email.ID, scheduledTime)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusAccepted
	if suppressed {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(sendEmailResponse{
		Entry:            toQueueEntryResponse(entry),
		AlreadyGenerated: result.AlreadyGenerated,
		AlreadyQueued:    suppressed,
	})
}

func (h *EmailHandler) ListLeadEmails(c *fiber.Ctx) error {
	leadID := strings.TrimSpace(c.Params("leadId"))
	emails, err := h.emails.ListByLead(c.Context(), leadID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]emailResponse, 0, len(emails))
	for i := range emails {
		responses = append(responses, toEmailResponse(&emails[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *EmailHandler) ListQueue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}

	entries, err := h.queue.ListPending(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]queueEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, toQueueEntryResponse(&entries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *EmailHandler) ProcessQueue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit < 1 {
		return toHTTPError(fmt.Errorf("%w: limit must be >= 1", domain.ErrValidation))
	}

	result, err := h.queue.ProcessDue(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(processQueueResponse{
		Processed: result.Processed,
		Failed:    result.Failed,
		Total:     result.Total,
	})
}

func (h *EmailHandler) GetQueueEntry(c *fiber.Ctx) error {
	entryID := strings.TrimSpace(c.Params("entryId"))
	entry, err := h.queue.GetEntry(c.Context(), entryID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toQueueEntryResponse(entry))
}

func (h *EmailHandler) ListQueueEntryAttempts(c *fiber.Ctx) error {
	entryID := strings.TrimSpace(c.Params("entryId"))
	attempts, err := h.queue.Attempts(c.Context(), entryID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		responses = append(responses, attemptResponse{
			ID:            a.ID,
			EntryID:       a.EntryID,
			AttemptNumber: a.AttemptNumber,
			StatusCode:    a.StatusCode,
			ResponseBody:  a.ResponseBody,
			Error:         a.Error,
			CreatedAt:     a.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func toEmailResponse(e *domain.GeneratedEmail) emailResponse {
	if e == nil {
		return emailResponse{}
	}

	return emailResponse{
		ID:             e.ID,
		LeadID:         e.LeadID,
		EmailType:      e.EmailType.String(),
		Subject:        e.Subject,
		Body:           e.Body,
		IsPersonalized: e.IsPersonalized,
		WebsiteUsed:    e.WebsiteUsed,
		Status:         e.Status.String(),
		SentAt:         e.SentAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toQueueEntryResponse(e *domain.QueueEntry) queueEntryResponse {
	if e == nil {
		return queueEntryResponse{}
	}

	return queueEntryResponse{
		ID:                e.ID,
		EmailID:           e.EmailID,
		LeadID:            e.LeadID,
		Recipient:         e.Recipient,
		ScheduledTime:     e.ScheduledTime,
		Status:            e.Status.String(),
		AttemptCount:      e.AttemptCount,
		MaxRetries:        e.MaxRetries,
		LastError:         e.LastError,
		ProviderMessageID: e.ProviderMessageID,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}
