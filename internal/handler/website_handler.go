package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/repository"
)

type WebsiteService interface {
	Resolve(ctx context.Context, rawDomain string, websiteURL string, force bool) (*domain.WebsiteArtifact, bool, error)
	Get(ctx context.Context, rawDomain string) (*domain.WebsiteArtifact, error)
	List(ctx context.Context, params repository.WebsiteListParams) ([]domain.WebsiteArtifact, int64, error)
}

type WebsiteHandler struct {
	service WebsiteService
}

func NewWebsiteHandler(service WebsiteService) (*WebsiteHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("website service is required")
	}
	return &WebsiteHandler{service: service}, nil
}

func RegisterWebsiteRoutes(router fiber.Router, service WebsiteService) error {
	h, err := NewWebsiteHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/websites/scrape", h.ScrapeWebsite)
	v1.Get("/websites", h.ListWebsites)
	v1.Get("/websites/:domain", h.GetWebsite)

	return nil
}

type scrapeWebsiteRequest struct {
	Domain string `json:"domain"`
	URL    string `json:"url,omitempty"`
	Force  bool   `json:"force"`
}

type websiteResponse struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	URL       string    `json:"url"`
	Markdown  string    `json:"markdown,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
	FromCache bool      `json:"fromCache"`
}

type listWebsitesResponse struct {
	Data []websiteResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

func (h *WebsiteHandler) ScrapeWebsite(c *fiber.Ctx) error {
	var req scrapeWebsiteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	artifact, fromCache, err := h.service.Resolve(c.Context(), req.Domain, req.URL, req.Force)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusCreated
	if fromCache {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(toWebsiteResponse(artifact, fromCache))
}

func (h *WebsiteHandler) GetWebsite(c *fiber.Ctx) error {
	rawDomain := strings.TrimSpace(c.Params("domain"))
	artifact, err := h.service.Get(c.Context(), rawDomain)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toWebsiteResponse(artifact, true))
}

func (h *WebsiteHandler) ListWebsites(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return toHTTPError(err)
	}

	params := repository.WebsiteListParams{
		Page:     page,
		PageSize: pageSize,
	}
	if raw := strings.TrimSpace(c.Query("success")); raw != "" {
		success := raw == "true"
		params.Success = &success
	}

	artifacts, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]websiteResponse, 0, len(artifacts))
	for i := range artifacts {
		responses = append(responses, toWebsiteResponse(&artifacts[i], true))
	}

	return c.Status(fiber.StatusOK).JSON(listWebsitesResponse{
		Data: responses,
		Meta: listMeta{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func toWebsiteResponse(a *domain.WebsiteArtifact, fromCache bool) websiteResponse {
	if a == nil {
		return websiteResponse{}
	}

	return websiteResponse{
		ID:        a.ID,
		Domain:    a.Domain,
		URL:       a.URL,
		Markdown:  a.Markdown,
		Success:   a.Success,
		Error:     a.Error,
		FetchedAt: a.FetchedAt,
		FromCache: fromCache,
	}
}
