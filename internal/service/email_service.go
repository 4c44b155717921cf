package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/observability"
	"github.com/leadforge/outreach-engine/internal/ratelimit"
	"github.com/leadforge/outreach-engine/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxDraftAttempts    = 3
	baseDraftRetryDelay = time.Second
	maxDraftRetryDelay  = 30 * time.Second
	maxDraftJitterMs    = 250
)

// GenerateResult describes the outcome of email generation for a lead.
// AlreadyGenerated means the email existed before this call; WebsiteFromCache
// means the drafting context came from a stored artifact, not a live scrape.
type GenerateResult struct {
	Email            *domain.GeneratedEmail
	AlreadyGenerated bool
	WebsiteUsed      bool
	WebsiteFromCache bool
}

// EmailService drafts outreach emails for leads. Generation is idempotent per
// (lead, type): repeat calls return the existing draft untouched.
type EmailService struct {
	leads       repository.LeadRepository
	emails      repository.EmailRepository
	entries     repository.QueueRepository
	websites    *WebsiteService
	drafter     adapter.EmailDrafter
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
	randIntn    func(n int) int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewEmailService(
	leads repository.LeadRepository,
	emails repository.EmailRepository,
	entries repository.QueueRepository,
	websites *WebsiteService,
	drafter adapter.EmailDrafter,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*EmailService, error) {
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if emails == nil {
		return nil, fmt.Errorf("email repository is required")
	}
	if drafter == nil {
		return nil, fmt.Errorf("email drafter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EmailService{
		leads:       leads,
		emails:      emails,
		entries:     entries,
		websites:    websites,
		drafter:     drafter,
		rateLimiter: rateLimiter,
		logger:      logger,
		now:         time.Now,
		randIntn:    rand.Intn,
		sleep:       sleepContext,
	}, nil
}

func (s *EmailService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Generate drafts an email of the given type for a lead. With force, an
// existing draft is discarded first unless a live queue entry still references
// it, which is reported as a conflict.
func (s *EmailService) Generate(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*GenerateResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(leadID) == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	if !emailType.IsValid() {
		return nil, fmt.Errorf("%w: invalid email type %q", domain.ErrValidation, emailType)
	}

	lead, err := s.leads.GetByID(ctx, strings.TrimSpace(leadID))
	if err != nil {
		return nil, err
	}

	existing, err := s.emails.GetByLeadAndType(ctx, lead.ID, emailType)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if !force {
			return &GenerateResult{
				Email:            existing,
				AlreadyGenerated: true,
				WebsiteUsed:      existing.WebsiteUsed,
			}, nil
		}
		if err := s.discardForRegeneration(ctx, existing); err != nil {
			return nil, err
		}
	}

	artifact, fromCache := s.resolveWebsite(ctx, lead)
	websiteMarkdown := ""
	if artifact != nil && artifact.Success {
		websiteMarkdown = artifact.Markdown
	}

	draft, err := s.draftWithRetry(ctx, *lead, emailType, websiteMarkdown)
	if err != nil {
		if statusErr := s.leads.UpdateStatus(ctx, lead.ID, domain.LeadStatusDraftFailed); statusErr != nil {
			s.logger.Error("failed to mark lead as draft failed",
				zap.String("leadId", lead.ID),
				zap.Error(statusErr),
			)
		}
		s.metrics.IncEmailFailed(emailType.String(), "draft_error")
		return nil, err
	}

	email := &domain.GeneratedEmail{
		ID:             uuid.NewString(),
		LeadID:         lead.ID,
		EmailType:      emailType,
		Subject:        draft.Subject,
		Body:           draft.Body,
		IsPersonalized: draft.IsPersonalized,
		WebsiteUsed:    websiteMarkdown != "",
		Status:         domain.EmailStatusGenerated,
	}
	if err := email.Validate(); err != nil {
		return nil, err
	}

	if err := s.emails.Create(ctx, email); err != nil {
		// A concurrent generation for the same (lead, type) won the insert race;
		// return its draft instead.
		if isUniqueViolationError(err) {
			winner, loadErr := s.emails.GetByLeadAndType(ctx, lead.ID, emailType)
			if loadErr != nil {
				return nil, fmt.Errorf("failed to load existing email after insert conflict: %w", loadErr)
			}
			return &GenerateResult{
				Email:            winner,
				AlreadyGenerated: true,
				WebsiteUsed:      winner.WebsiteUsed,
			}, nil
		}
		return nil, err
	}

	if err := s.leads.UpdateStatus(ctx, lead.ID, domain.LeadStatusDrafted); err != nil {
		s.logger.Error("failed to mark lead as drafted",
			zap.String("leadId", lead.ID),
			zap.Error(err),
		)
	}

	s.metrics.IncEmailGenerated(emailType.String())

	return &GenerateResult{
		Email:            email,
		WebsiteUsed:      email.WebsiteUsed,
		WebsiteFromCache: fromCache,
	}, nil
}

func (s *EmailService) GetByID(ctx context.Context, id string) (*domain.GeneratedEmail, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: email id is required", domain.ErrValidation)
	}
	return s.emails.GetByID(ctx, strings.TrimSpace(id))
}

func (s *EmailService) GetByLeadAndType(ctx context.Context, leadID string, emailType domain.EmailType) (*domain.GeneratedEmail, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	if !emailType.IsValid() {
		return nil, fmt.Errorf("%w: invalid email type %q", domain.ErrValidation, emailType)
	}
	return s.emails.GetByLeadAndType(ctx, strings.TrimSpace(leadID), emailType)
}

func (s *EmailService) ListByLead(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	return s.emails.ListByLead(ctx, strings.TrimSpace(leadID))
}

func (s *EmailService) discardForRegeneration(ctx context.Context, existing *domain.GeneratedEmail) error {
	if existing.Status == domain.EmailStatusSent {
		return fmt.Errorf("%w: email %s was already sent", domain.ErrConflict, existing.ID)
	}

	if s.entries != nil {
		live, err := s.entries.GetLiveByEmail(ctx, existing.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if live != nil {
			return fmt.Errorf("%w: email %s has a pending delivery", domain.ErrConflict, existing.ID)
		}
	}

	return s.emails.Delete(ctx, existing.ID)
}

func (s *EmailService) resolveWebsite(ctx context.Context, lead *domain.Lead) (*domain.WebsiteArtifact, bool) {
	if s.websites == nil {
		return nil, false
	}

	rawDomain := strings.TrimSpace(lead.CompanyDomain)
	if rawDomain == "" {
		rawDomain = strings.TrimSpace(lead.CompanyWebsite)
	}
	if rawDomain == "" {
		return nil, false
	}

	artifact, fromCache, err := s.websites.Resolve(ctx, rawDomain, lead.CompanyWebsite, false)
	if err != nil {
		// Drafting continues unpersonalized when website content is unavailable.
		s.logger.Warn("website resolution failed, drafting without site content",
			zap.String("leadId", lead.ID),
			zap.String("domain", rawDomain),
			zap.Error(err),
		)
		return nil, false
	}

	return artifact, fromCache
}

func (s *EmailService) draftWithRetry(ctx context.Context, lead domain.Lead, emailType domain.EmailType, websiteMarkdown string) (*adapter.Draft, error) {
	var lastErr error

	for attempt := 1; attempt <= maxDraftAttempts; attempt++ {
		if s.rateLimiter != nil {
			if err := s.rateLimiter.Wait(ctx, "draft"); err != nil {
				return nil, fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		draft, err := s.drafter.DraftEmail(ctx, lead, emailType, websiteMarkdown)
		if err == nil {
			return draft, nil
		}
		lastErr = err

		if !adapter.IsTransient(err) {
			return nil, fmt.Errorf("failed to draft email for lead %s: %w", lead.ID, err)
		}
		if attempt == maxDraftAttempts {
			break
		}

		delay := s.computeDraftRetryDelay(attempt)
		s.logger.Warn("draft attempt failed, retrying",
			zap.String("leadId", lead.ID),
			zap.String("emailType", emailType.String()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: drafting for lead %s: %v", domain.ErrRetryExhausted, lead.ID, lastErr)
}

func (s *EmailService) computeDraftRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := baseDraftRetryDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= maxDraftRetryDelay {
			delay = maxDraftRetryDelay
			break
		}
	}

	jitterMs := 0
	if s.randIntn != nil && maxDraftJitterMs > 0 {
		jitterMs = s.randIntn(maxDraftJitterMs + 1)
	}

	return delay + time.Duration(jitterMs)*time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
