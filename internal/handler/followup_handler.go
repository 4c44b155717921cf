package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/repository"
	"github.com/leadforge/outreach-engine/internal/service"
)

type FollowupService interface {
	GetByID(ctx context.Context, id string) (*domain.FollowupTask, error)
	List(ctx context.Context, params repository.FollowupListParams) ([]domain.FollowupTask, int64, error)
	ListForLead(ctx context.Context, leadID string) ([]domain.FollowupTask, error)
	Process(ctx context.Context, limit int) (*service.ProcessResult, error)
	Cancel(ctx context.Context, id string) error
}

type FollowupHandler struct {
	service FollowupService
}

func NewFollowupHandler(service FollowupService) (*FollowupHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("followup service is required")
	}
	return &FollowupHandler{service: service}, nil
}

func RegisterFollowupRoutes(router fiber.Router, service FollowupService) error {
	h, err := NewFollowupHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/followups", h.ListFollowups)
	v1.Post("/followups/process", h.ProcessFollowups)
	v1.Get("/followups/lead/:leadId", h.ListLeadFollowups)
	v1.Get("/followups/:id", h.GetFollowup)
	v1.Post("/followups/:id/cancel", h.CancelFollowup)

	return nil
}

type followupResponse struct {
	ID            string    `json:"id"`
	LeadID        string    `json:"leadId"`
	EmailID       *string   `json:"emailId,omitempty"`
	FollowupType  string    `json:"followupType"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Status        string    `json:"status"`
	AttemptCount  int       `json:"attemptCount"`
	LastError     *string   `json:"lastError,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type listFollowupsResponse struct {
	Data []followupResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

func (h *FollowupHandler) ListFollowups(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return toHTTPError(err)
	}

	params := repository.FollowupListParams{
		Page:     page,
		PageSize: pageSize,
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseFollowupStatusFromString(rawStatus)
		if err != nil {
			return toHTTPError(err)
		}
		params.Status = &status
	}

	tasks, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listFollowupsResponse{
		Data: toFollowupResponses(tasks),
		Meta: listMeta{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func (h *FollowupHandler) ProcessFollowups(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit < 1 {
		return toHTTPError(fmt.Errorf("%w: limit must be >= 1", domain.ErrValidation))
	}

	result, err := h.service.Process(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(processQueueResponse{
		Processed: result.Processed,
		Failed:    result.Failed,
		Total:     result.Total,
	})
}

func (h *FollowupHandler) ListLeadFollowups(c *fiber.Ctx) error {
	leadID := strings.TrimSpace(c.Params("leadId"))
	tasks, err := h.service.ListForLead(c.Context(), leadID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": toFollowupResponses(tasks)})
}

func (h *FollowupHandler) GetFollowup(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	task, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toFollowupResponse(task))
}

func (h *FollowupHandler) CancelFollowup(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Cancel(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"taskId": id,
		"status": domain.FollowupStatusCanceled.String(),
	})
}

func toFollowupResponses(tasks []domain.FollowupTask) []followupResponse {
	responses := make([]followupResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, toFollowupResponse(&tasks[i]))
	}
	return responses
}

func toFollowupResponse(t *domain.FollowupTask) followupResponse {
	if t == nil {
		return followupResponse{}
	}

	return followupResponse{
		ID:            t.ID,
		LeadID:        t.LeadID,
		EmailID:       t.EmailID,
		FollowupType:  t.FollowupType.String(),
		ScheduledDate: t.ScheduledDate,
		Status:        t.Status.String(),
		AttemptCount:  t.AttemptCount,
		LastError:     t.LastError,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
