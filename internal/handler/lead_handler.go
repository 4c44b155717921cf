package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/repository"
	"github.com/leadforge/outreach-engine/internal/service"
)

type LeadService interface {
	Scrape(ctx context.Context, source domain.LeadSource, criteria adapter.SearchCriteria, count int) (*service.ScrapeSummary, error)
	GetRun(ctx context.Context, id string) (*domain.ScrapeRun, error)
	GetLead(ctx context.Context, id string) (*domain.Lead, error)
	List(ctx context.Context, params repository.LeadListParams) ([]domain.Lead, int64, error)
	Archive(ctx context.Context, id string) error
	MarkReplied(ctx context.Context, id string) error
}

type LeadHandler struct {
	service LeadService
}

func NewLeadHandler(service LeadService) (*LeadHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("lead service is required")
	}
	return &LeadHandler{service: service}, nil
}

func RegisterLeadRoutes(router fiber.Router, service LeadService) error {
	h, err := NewLeadHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/leads/scrape", h.ScrapeLeads)
	v1.Get("/leads", h.ListLeads)
	v1.Get("/leads/:id", h.GetLead)
	v1.Post("/leads/:id/archive", h.ArchiveLead)
	v1.Post("/leads/:id/replied", h.MarkLeadReplied)
	v1.Get("/scrape-runs/:runId", h.GetScrapeRun)

	return nil
}

type scrapeLeadsRequest struct {
	Source   string                 `json:"source"`
	Count    int                    `json:"count"`
	Criteria adapter.SearchCriteria `json:"criteria"`
}

type leadResponse struct {
	ID             string    `json:"id"`
	ScrapeRunID    *string   `json:"scrapeRunId,omitempty"`
	Source         string    `json:"source"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Email          string    `json:"email"`
	Title          string    `json:"title,omitempty"`
	CompanyName    string    `json:"companyName"`
	CompanyDomain  string    `json:"companyDomain,omitempty"`
	CompanyWebsite string    `json:"companyWebsite,omitempty"`
	EmployeeSize   *int      `json:"employeeSize,omitempty"`
	Country        string    `json:"country,omitempty"`
	Industry       string    `json:"industry,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type scrapeLeadsResponse struct {
	RunID     string         `json:"runId"`
	Status    string         `json:"status"`
	Requested int            `json:"requested"`
	Found     int            `json:"found"`
	Published int            `json:"published"`
	Failed    int            `json:"failed"`
	Leads     []leadResponse `json:"leads"`
	Warning   string         `json:"warning,omitempty"`
}

type listLeadsResponse struct {
	Data []leadResponse `json:"data"`
	Meta listMeta       `json:"meta"`
}

type scrapeRunResponse struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	RequestedCount int       `json:"requestedCount"`
	FoundCount     int       `json:"foundCount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (h *LeadHandler) ScrapeLeads(c *fiber.Ctx) error {
	var req scrapeLeadsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	source, err := domain.ParseLeadSourceFromString(req.Source)
	if err != nil {
		return toHTTPError(err)
	}

	summary, err := h.service.Scrape(c.Context(), source, req.Criteria, req.Count)
	if err != nil {
		if summary == nil {
			return toHTTPError(err)
		}
		// Partial publish failure: the run and its leads exist, report with a warning.
		return c.Status(fiber.StatusAccepted).JSON(toScrapeResponse(summary, err.Error()))
	}

	return c.Status(fiber.StatusAccepted).JSON(toScrapeResponse(summary, ""))
}

func (h *LeadHandler) ListLeads(c *fiber.Ctx) error {
	params, err := parseLeadListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	leads, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listLeadsResponse{
		Data: toLeadResponses(leads),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *LeadHandler) GetLead(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	lead, err := h.service.GetLead(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toLeadResponse(lead))
}

func (h *LeadHandler) ArchiveLead(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Archive(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"leadId": id,
		"status": domain.LeadStatusArchived.String(),
	})
}

func (h *LeadHandler) MarkLeadReplied(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.MarkReplied(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"leadId": id,
		"status": domain.LeadStatusReplied.String(),
	})
}

func (h *LeadHandler) GetScrapeRun(c *fiber.Ctx) error {
	runID := strings.TrimSpace(c.Params("runId"))
	run, err := h.service.GetRun(c.Context(), runID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(scrapeRunResponse{
		ID:             run.ID,
		Source:         run.Source.String(),
		RequestedCount: run.RequestedCount,
		FoundCount:     run.FoundCount,
		Status:         run.Status.String(),
		CreatedAt:      run.CreatedAt,
		UpdatedAt:      run.UpdatedAt,
	})
}

func parseLeadListParams(c *fiber.Ctx) (repository.LeadListParams, error) {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return repository.LeadListParams{}, err
	}

	params := repository.LeadListParams{
		Page:     page,
		PageSize: pageSize,
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseLeadStatusFromString(rawStatus)
		if err != nil {
			return repository.LeadListParams{}, err
		}
		params.Status = &status
	}

	if rawSource := strings.TrimSpace(c.Query("source")); rawSource != "" {
		source, err := domain.ParseLeadSourceFromString(rawSource)
		if err != nil {
			return repository.LeadListParams{}, err
		}
		params.Source = &source
	}

	if runID := strings.TrimSpace(c.Query("runId")); runID != "" {
		params.RunID = &runID
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.LeadListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.LeadListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func toScrapeResponse(summary *service.ScrapeSummary, warning string) scrapeLeadsResponse {
	return scrapeLeadsResponse{
		RunID:     summary.Run.ID,
		Status:    summary.Run.Status.String(),
		Requested: summary.Run.RequestedCount,
		Found:     summary.Run.FoundCount,
		Published: summary.Published,
		Failed:    summary.Failed,
		Leads:     toLeadResponses(summary.Leads),
		Warning:   warning,
	}
}

func toLeadResponses(leads []domain.Lead) []leadResponse {
	responses := make([]leadResponse, 0, len(leads))
	for i := range leads {
		responses = append(responses, toLeadResponse(&leads[i]))
	}
	return responses
}

func toLeadResponse(l *domain.Lead) leadResponse {
	if l == nil {
		return leadResponse{}
	}

	return leadResponse{
		ID:             l.ID,
		ScrapeRunID:    l.ScrapeRunID,
		Source:         l.Source.String(),
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
		Status:         l.Status.String(),
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}
