package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/observability"
	"github.com/leadforge/outreach-engine/internal/ratelimit"
	"github.com/leadforge/outreach-engine/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxRetries     = 5
	minSendConcurrency    = 1
	baseSendRetryDelay    = time.Minute
	maxSendRetryDelay     = time.Hour
	maxSendRetryJitterSec = 30
)

// SendWindow restricts deliveries to a daily hour range in UTC. A zero window
// disables clamping.
type SendWindow struct {
	StartHour int
	EndHour   int
}

func (w SendWindow) enabled() bool {
	return w.StartHour != w.EndHour &&
		w.StartHour >= 0 && w.StartHour < 24 &&
		w.EndHour > 0 && w.EndHour <= 24
}

// Clamp moves a send time into the window: too early slides to the window
// start the same day, too late to the window start the next day.
func (w SendWindow) Clamp(t time.Time) time.Time {
	if !w.enabled() {
		return t
	}

	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), w.StartHour, 0, 0, 0, time.UTC)
	end := time.Date(t.Year(), t.Month(), t.Day(), w.EndHour, 0, 0, 0, time.UTC)

	if t.Before(start) {
		return start
	}
	if !t.Before(end) {
		return start.AddDate(0, 0, 1)
	}
	return t
}

// ProcessResult is the accounting for one processing pass. Total counts the
// due entries picked up; entries that were rescheduled for retry or lost their
// claim to a concurrent pass appear in neither Processed nor Failed.
type ProcessResult struct {
	Processed int
	Failed    int
	Total     int
}

// QueueService owns scheduled email delivery: enqueueing with duplicate
// suppression, claim-then-send processing with retries, and promotion of the
// email and any linked follow-up task once an entry goes terminal.
type QueueService struct {
	entries     repository.QueueRepository
	attempts    repository.AttemptRepository
	emails      repository.EmailRepository
	leads       repository.LeadRepository
	followups   repository.FollowupRepository
	sender      adapter.EmailSender
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	window      SendWindow
	now         func() time.Time
	randIntn    func(n int) int
}

func NewQueueService(
	entries repository.QueueRepository,
	attempts repository.AttemptRepository,
	emails repository.EmailRepository,
	leads repository.LeadRepository,
	followups repository.FollowupRepository,
	sender adapter.EmailSender,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	window SendWindow,
	logger *zap.Logger,
) (*QueueService, error) {
	if entries == nil {
		return nil, fmt.Errorf("queue repository is required")
	}
	if emails == nil {
		return nil, fmt.Errorf("email repository is required")
	}
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if concurrency < minSendConcurrency {
		concurrency = minSendConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueService{
		entries:     entries,
		attempts:    attempts,
		emails:      emails,
		leads:       leads,
		followups:   followups,
		sender:      sender,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
		window:      window,
		now:         time.Now,
		randIntn:    rand.Intn,
	}, nil
}

func (s *QueueService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Enqueue schedules an email for delivery. If a live entry already exists for
// the email, that entry is returned with suppressed=true and no new entry is
// created. Sending an already-sent email is a conflict.
func (s *QueueService) Enqueue(ctx context.Context, emailID string, scheduledTime time.Time) (*domain.QueueEntry, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(emailID) == "" {
		return nil, false, fmt.Errorf("%w: email id is required", domain.ErrValidation)
	}

	email, err := s.emails.GetByID(ctx, strings.TrimSpace(emailID))
	if err != nil {
		return nil, false, err
	}
	if email.Status == domain.EmailStatusSent {
		return nil, false, fmt.Errorf("%w: email %s was already sent", domain.ErrConflict, email.ID)
	}

	live, err := s.entries.GetLiveByEmail(ctx, email.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	if live != nil {
		return live, true, nil
	}

	lead, err := s.leads.GetByID(ctx, email.LeadID)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	if scheduledTime.IsZero() {
		scheduledTime = now
	}
	scheduledTime = s.window.Clamp(scheduledTime.UTC())

	entry := &domain.QueueEntry{
		ID:             uuid.NewString(),
		EmailID:        email.ID,
		LeadID:         lead.ID,
		Recipient:      lead.Email,
		ScheduledTime:  scheduledTime,
		Status:         domain.QueueStatusQueued,
		MaxRetries:     defaultMaxRetries,
		IdempotencyKey: uuid.NewString(),
	}
	if err := entry.Validate(); err != nil {
		return nil, false, err
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, false, err
	}

	if err := s.emails.UpdateStatus(ctx, email.ID, domain.EmailStatusQueued); err != nil {
		s.logger.Error("failed to mark email as queued",
			zap.String("emailId", email.ID),
			zap.Error(err),
		)
	}

	return entry, false, nil
}

func (s *QueueService) GetEntry(ctx context.Context, id string) (*domain.QueueEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: entry id is required", domain.ErrValidation)
	}
	return s.entries.GetByID(ctx, strings.TrimSpace(id))
}

func (s *QueueService) ListPending(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.entries.ListPending(ctx, limit)
}

func (s *QueueService) Attempts(ctx context.Context, entryID string) ([]domain.DeliveryAttempt, error) {
	if s.attempts == nil {
		return nil, nil
	}
	if strings.TrimSpace(entryID) == "" {
		return nil, fmt.Errorf("%w: entry id is required", domain.ErrValidation)
	}
	return s.attempts.GetByEntryID(ctx, strings.TrimSpace(entryID))
}

// ProcessDue sends every due entry and returns exact counts for the pass.
// Each entry is claimed before sending, so concurrent passes never double-send.
func (s *QueueService) ProcessDue(ctx context.Context, limit int) (*ProcessResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 100
	}

	due, err := s.entries.GetDue(ctx, s.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due queue entries: %w", err)
	}

	result := &ProcessResult{Total: len(due)}
	if len(due) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range due {
		if groupCtx.Err() != nil {
			break
		}
		entry := due[i]

		g.Go(func() error {
			sent, err := s.processEntry(groupCtx, entry)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
			} else if sent {
				result.Processed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	return result, nil
}

// processEntry returns (true, nil) on a successful send, (false, nil) when the
// entry was skipped (lost claim, rescheduled for retry, or released after an
// infrastructure failure), and an error when the entry ended in failure.
func (s *QueueService) processEntry(ctx context.Context, entry domain.QueueEntry) (bool, error) {
	claimed, err := s.entries.ClaimForSending(ctx, entry.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim entry %s: %w", entry.ID, err)
	}
	if !claimed {
		return false, nil
	}

	s.metrics.IncWorkerInFlight("delivery")
	defer s.metrics.DecWorkerInFlight("delivery")

	email, err := s.emails.GetByID(ctx, entry.EmailID)
	if err != nil {
		s.failEntry(ctx, entry, nil, fmt.Sprintf("email lookup failed: %v", err))
		return false, err
	}

	if suppressed, reason := s.suppressed(ctx, entry); suppressed {
		s.logger.Info("delivery suppressed",
			zap.String("entryId", entry.ID),
			zap.String("leadId", entry.LeadID),
			zap.String("reason", reason),
		)
		s.failEntry(ctx, entry, email, "suppressed: "+reason)
		s.promoteFollowup(ctx, email, domain.FollowupStatusReplied)
		return false, errors.New(reason)
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, "send"); err != nil {
			s.releaseOnInfraError(ctx, entry, err)
			s.logger.Warn("rate limiter wait failed, entry released",
				zap.String("entryId", entry.ID),
				zap.Error(err),
			)
			return false, nil
		}
	}

	attemptNumber := entry.AttemptCount + 1
	sendStart := s.now()
	sendResult, sendErr := s.sender.SendEmail(ctx, adapter.SendRequest{
		Recipient:      entry.Recipient,
		Subject:        email.Subject,
		Body:           email.Body,
		IdempotencyKey: entry.IdempotencyKey,
	})
	s.metrics.ObserveSendDuration(s.now().Sub(sendStart))

	if err := s.recordAttempt(ctx, entry.ID, attemptNumber, sendResult, sendErr); err != nil {
		s.logger.Error("failed to record delivery attempt",
			zap.String("entryId", entry.ID),
			zap.Error(err),
		)
	}

	if sendErr == nil {
		messageID := ""
		if sendResult != nil {
			messageID = strings.TrimSpace(sendResult.MessageID)
		}
		if err := s.entries.MarkSent(ctx, entry.ID, messageID); err != nil {
			return false, fmt.Errorf("failed to mark entry %s as sent: %w", entry.ID, err)
		}

		sentAt := s.now().UTC()
		if err := s.emails.MarkSent(ctx, email.ID, sentAt); err != nil {
			s.logger.Error("failed to mark email as sent",
				zap.String("emailId", email.ID),
				zap.Error(err),
			)
		}

		if email.EmailType == domain.EmailTypeInitial {
			s.registerFollowups(ctx, entry.LeadID, sentAt)
		} else {
			s.promoteFollowup(ctx, email, domain.FollowupStatusSent)
		}

		s.metrics.IncEmailSent(email.EmailType.String())
		return true, nil
	}

	if adapter.IsTransient(sendErr) && attemptNumber < maxRetriesFor(entry) {
		nextAttempt := s.now().UTC().Add(s.computeSendRetryDelay(attemptNumber))
		nextAttempt = s.window.Clamp(nextAttempt)
		if err := s.entries.Reschedule(ctx, entry.ID, nextAttempt, sendErr.Error()); err != nil {
			return false, fmt.Errorf("failed to reschedule entry %s: %w", entry.ID, err)
		}
		s.metrics.IncRetryScheduled()
		s.logger.Warn("send attempt failed, rescheduled",
			zap.String("entryId", entry.ID),
			zap.Int("attempt", attemptNumber),
			zap.Time("nextAttempt", nextAttempt),
			zap.Error(sendErr),
		)
		return false, nil
	}

	s.failEntry(ctx, entry, email, sendErr.Error())
	s.promoteFollowup(ctx, email, domain.FollowupStatusFailed)

	reason := "permanent_error"
	if adapter.IsTransient(sendErr) {
		reason = "retry_exhausted"
	}
	s.metrics.IncEmailFailed(email.EmailType.String(), reason)

	return false, sendErr
}

// suppressed reports whether delivery must be skipped because the lead left
// the outreach flow after the entry was enqueued.
func (s *QueueService) suppressed(ctx context.Context, entry domain.QueueEntry) (bool, string) {
	lead, err := s.leads.GetByID(ctx, entry.LeadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, "lead no longer exists"
		}
		return false, ""
	}

	switch lead.Status {
	case domain.LeadStatusReplied:
		return true, "lead replied"
	case domain.LeadStatusArchived:
		return true, "lead archived"
	}
	return false, ""
}

func (s *QueueService) failEntry(ctx context.Context, entry domain.QueueEntry, email *domain.GeneratedEmail, reason string) {
	if err := s.entries.MarkFailed(ctx, entry.ID, reason); err != nil {
		s.logger.Error("failed to mark entry as failed",
			zap.String("entryId", entry.ID),
			zap.Error(err),
		)
	}
	if email != nil {
		if err := s.emails.UpdateStatus(ctx, email.ID, domain.EmailStatusFailed); err != nil {
			s.logger.Error("failed to mark email as failed",
				zap.String("emailId", email.ID),
				zap.Error(err),
			)
		}
	}
}

// releaseOnInfraError returns a claimed entry to the queue without burning an
// attempt when the failure happened before the provider was called.
func (s *QueueService) releaseOnInfraError(ctx context.Context, entry domain.QueueEntry, cause error) {
	next := s.now().UTC().Add(baseSendRetryDelay)
	if err := s.entries.Reschedule(ctx, entry.ID, next, cause.Error()); err != nil {
		s.logger.Error("failed to release claimed entry",
			zap.String("entryId", entry.ID),
			zap.Error(err),
		)
	}
}

// registerFollowups derives the timed follow-up tasks from an initial send.
// Existing tasks for the lead are left untouched, so re-sends never duplicate.
func (s *QueueService) registerFollowups(ctx context.Context, leadID string, sentAt time.Time) {
	if s.followups == nil {
		return
	}

	for _, followupType := range domain.AllFollowupTypes {
		existing, err := s.followups.GetByLeadAndType(ctx, leadID, followupType)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to check existing followup task",
				zap.String("leadId", leadID),
				zap.String("followupType", followupType.String()),
				zap.Error(err),
			)
			continue
		}
		if existing != nil {
			continue
		}

		task := &domain.FollowupTask{
			ID:            uuid.NewString(),
			LeadID:        leadID,
			FollowupType:  followupType,
			ScheduledDate: sentAt.Add(followupType.Offset()),
			Status:        domain.FollowupStatusScheduled,
		}
		if err := s.followups.Create(ctx, task); err != nil {
			if isUniqueViolationError(err) {
				continue
			}
			s.logger.Error("failed to create followup task",
				zap.String("leadId", leadID),
				zap.String("followupType", followupType.String()),
				zap.Error(err),
			)
			continue
		}
		s.metrics.IncFollowupScheduled(followupType.String())
	}
}

// promoteFollowup moves the task linked to a follow-up email into its terminal
// state once the delivery outcome is known.
func (s *QueueService) promoteFollowup(ctx context.Context, email *domain.GeneratedEmail, status domain.FollowupStatus) {
	if s.followups == nil || email == nil || !email.EmailType.IsFollowup() {
		return
	}

	task, err := s.followups.GetByEmailID(ctx, email.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to load followup task for email",
				zap.String("emailId", email.ID),
				zap.Error(err),
			)
		}
		return
	}

	if err := s.followups.UpdateStatus(ctx, task.ID, status); err != nil {
		s.logger.Error("failed to promote followup task",
			zap.String("taskId", task.ID),
			zap.String("status", status.String()),
			zap.Error(err),
		)
	}
}

func (s *QueueService) computeSendRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := baseSendRetryDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= maxSendRetryDelay {
			delay = maxSendRetryDelay
			break
		}
	}

	jitterSec := 0
	if s.randIntn != nil && maxSendRetryJitterSec > 0 {
		jitterSec = s.randIntn(maxSendRetryJitterSec + 1)
	}

	return delay + time.Duration(jitterSec)*time.Second
}

func (s *QueueService) recordAttempt(
	ctx context.Context,
	entryID string,
	attemptNumber int,
	sendResult *adapter.SendResult,
	sendErr error,
) error {
	if s.attempts == nil {
		return nil
	}

	var statusCode *int
	var responseBody *string
	var attemptErr *string

	if sendResult != nil {
		if sendResult.StatusCode > 0 {
			value := sendResult.StatusCode
			statusCode = &value
		}
		if body := strings.TrimSpace(sendResult.Body); body != "" {
			value := sendResult.Body
			responseBody = &value
		}
	}

	if sendErr != nil {
		value := sendErr.Error()
		attemptErr = &value

		var adapterErr *adapter.AdapterError
		if errors.As(sendErr, &adapterErr) && adapterErr.StatusCode > 0 && statusCode == nil {
			value := adapterErr.StatusCode
			statusCode = &value
		}
	}

	attempt := &domain.DeliveryAttempt{
		ID:            uuid.NewString(),
		EntryID:       entryID,
		AttemptNumber: attemptNumber,
		StatusCode:    statusCode,
		ResponseBody:  responseBody,
		Error:         attemptErr,
		CreatedAt:     s.now().UTC(),
	}

	return s.attempts.Create(ctx, attempt)
}

func maxRetriesFor(entry domain.QueueEntry) int {
	if entry.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return entry.MaxRetries
}
