package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/observability"
	"github.com/leadforge/outreach-engine/internal/queue"
	"github.com/leadforge/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const maxScrapeCount = 1000

// ScrapeSummary reports the outcome of one lead scrape request.
type ScrapeSummary struct {
	Run       *domain.ScrapeRun
	Leads     []domain.Lead
	Published int
	Failed    int
}

// LeadService ingests leads from scraping sources and fans each one out to the
// drafting pipeline through the broker.
type LeadService struct {
	leads     repository.LeadRepository
	runs      repository.ScrapeRunRepository
	followups repository.FollowupRepository
	searchers *adapter.SearcherRegistry
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewLeadService(
	leads repository.LeadRepository,
	runs repository.ScrapeRunRepository,
	followups repository.FollowupRepository,
	searchers *adapter.SearcherRegistry,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*LeadService, error) {
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if runs == nil {
		return nil, fmt.Errorf("scrape run repository is required")
	}
	if searchers == nil {
		return nil, fmt.Errorf("searcher registry is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LeadService{
		leads:     leads,
		runs:      runs,
		followups: followups,
		searchers: searchers,
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (s *LeadService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Scrape searches a source for leads, persists them under a new run, and
// publishes one pipeline message per lead. A partial publish failure leaves
// the run in PARTIAL_FAILURE and is reported as an error alongside the summary.
func (s *LeadService) Scrape(ctx context.Context, source domain.LeadSource, criteria adapter.SearchCriteria, count int) (*ScrapeSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("%w: invalid lead source %q", domain.ErrValidation, source)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", domain.ErrValidation)
	}
	if count > maxScrapeCount {
		return nil, fmt.Errorf("%w: count exceeds %d", domain.ErrValidation, maxScrapeCount)
	}

	searcher, err := s.searchers.ForSource(source)
	if err != nil {
		return nil, err
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: criteria could not be encoded: %v", domain.ErrValidation, err)
	}

	run := &domain.ScrapeRun{
		ID:             uuid.NewString(),
		Source:         source,
		CriteriaJSON:   string(criteriaJSON),
		RequestedCount: count,
		Status:         domain.ScrapeRunStatusProcessing,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	found, err := searcher.SearchLeads(ctx, criteria, count)
	if err != nil {
		if statusErr := s.runs.UpdateStatus(ctx, run.ID, domain.ScrapeRunStatusPartialFailure); statusErr != nil {
			s.logger.Error("failed to mark scrape run after search error",
				zap.String("runId", run.ID),
				zap.Error(statusErr),
			)
		}
		return nil, fmt.Errorf("lead search failed for source %q: %w", source, err)
	}

	leads := s.prepareLeads(run, found, string(criteriaJSON))
	leadPtrs := make([]*domain.Lead, len(leads))
	for i := range leads {
		leadPtrs[i] = &leads[i]
	}

	if err := s.leads.CreateBatch(ctx, leadPtrs); err != nil {
		if statusErr := s.runs.UpdateStatus(ctx, run.ID, domain.ScrapeRunStatusPartialFailure); statusErr != nil {
			s.logger.Error("failed to mark scrape run after persist error",
				zap.String("runId", run.ID),
				zap.Error(statusErr),
			)
		}
		return nil, fmt.Errorf("failed to persist scraped leads: %w", err)
	}

	run.FoundCount = len(leads)
	if err := s.runs.SetFoundCount(ctx, run.ID, len(leads)); err != nil {
		s.logger.Error("failed to record found count",
			zap.String("runId", run.ID),
			zap.Error(err),
		)
	}

	published, failed := s.publishLeads(ctx, run.ID, leads)

	run.Status = domain.ScrapeRunStatusCompleted
	if failed > 0 {
		run.Status = domain.ScrapeRunStatusPartialFailure
	}
	if err := s.runs.UpdateStatus(ctx, run.ID, run.Status); err != nil {
		return nil, err
	}

	s.metrics.AddLeadsScraped(source.String(), len(leads))

	summary := &ScrapeSummary{
		Run:       run,
		Leads:     leads,
		Published: published,
		Failed:    failed,
	}
	if failed > 0 {
		s.logger.Warn("scrape run completed with partial failure",
			zap.String("runId", run.ID),
			zap.Int("failed", failed),
			zap.Int("total", len(leads)),
		)
		return summary, fmt.Errorf("scrape run published with partial failure: %d/%d failed", failed, len(leads))
	}

	return summary, nil
}

func (s *LeadService) prepareLeads(run *domain.ScrapeRun, found []domain.Lead, criteriaJSON string) []domain.Lead {
	leads := make([]domain.Lead, 0, len(found))
	for i := range found {
		lead := found[i]
		lead.ID = uuid.NewString()
		lead.ScrapeRunID = &run.ID
		lead.Source = run.Source
		lead.CriteriaJSON = criteriaJSON
		lead.Status = domain.LeadStatusNew

		if err := lead.Validate(); err != nil {
			s.logger.Warn("skipping invalid scraped lead",
				zap.String("runId", run.ID),
				zap.String("email", lead.Email),
				zap.Error(err),
			)
			continue
		}
		leads = append(leads, lead)
	}
	return leads
}

func (s *LeadService) publishLeads(ctx context.Context, runID string, leads []domain.Lead) (published int, failed int) {
	for i := range leads {
		msg := queue.LeadMessage{
			LeadID:        leads[i].ID,
			CorrelationID: runID,
			EmailType:     domain.EmailTypeInitial,
		}
		if err := s.publisher.Publish(ctx, queue.PipelineQueue, msg); err != nil {
			s.logger.Error("failed to publish lead pipeline message",
				zap.String("leadId", leads[i].ID),
				zap.String("runId", runID),
				zap.Error(err),
			)
			failed++
			continue
		}
		published++
	}
	return published, failed
}

func (s *LeadService) GetRun(ctx context.Context, id string) (*domain.ScrapeRun, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrValidation)
	}
	return s.runs.GetByID(ctx, strings.TrimSpace(id))
}

func (s *LeadService) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	return s.leads.GetByID(ctx, strings.TrimSpace(id))
}

func (s *LeadService) List(ctx context.Context, params repository.LeadListParams) ([]domain.Lead, int64, error) {
	return s.leads.List(ctx, params)
}

// Archive removes a lead from active outreach and stops its remaining
// follow-ups.
func (s *LeadService) Archive(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	leadID := strings.TrimSpace(id)

	if err := s.leads.Archive(ctx, leadID); err != nil {
		return err
	}

	if s.followups != nil {
		if _, err := s.followups.CancelScheduledForLead(ctx, leadID); err != nil {
			s.logger.Error("failed to cancel followups for archived lead",
				zap.String("leadId", leadID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// MarkReplied records an observed reply: the lead leaves the outreach flow and
// every remaining follow-up is stopped.
func (s *LeadService) MarkReplied(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	leadID := strings.TrimSpace(id)

	if err := s.leads.UpdateStatus(ctx, leadID, domain.LeadStatusReplied); err != nil {
		return err
	}

	if s.followups != nil {
		if _, err := s.followups.CancelScheduledForLead(ctx, leadID); err != nil {
			s.logger.Error("failed to cancel followups for replied lead",
				zap.String("leadId", leadID),
				zap.Error(err),
			)
		}
		if _, err := s.followups.MarkRepliedForLead(ctx, leadID); err != nil {
			s.logger.Error("failed to promote sent followups to replied",
				zap.String("leadId", leadID),
				zap.Error(err),
			)
		}
	}

	return nil
}
