package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/observability"
	"github.com/leadforge/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

// FollowupService processes timed follow-up tasks: when a task comes due it
// checks for a reply, drafts the follow-up email and hands it to the delivery
// queue. The queue promotes the task to SENT or FAILED once delivery settles.
type FollowupService struct {
	tasks   repository.FollowupRepository
	leads   repository.LeadRepository
	emails  *EmailService
	queue   *QueueService
	replies adapter.ReplyObserver
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewFollowupService(
	tasks repository.FollowupRepository,
	leads repository.LeadRepository,
	emails *EmailService,
	queue *QueueService,
	replies adapter.ReplyObserver,
	logger *zap.Logger,
) (*FollowupService, error) {
	if tasks == nil {
		return nil, fmt.Errorf("followup repository is required")
	}
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if emails == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FollowupService{
		tasks:   tasks,
		leads:   leads,
		emails:  emails,
		queue:   queue,
		replies: replies,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (s *FollowupService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *FollowupService) GetByID(ctx context.Context, id string) (*domain.FollowupTask, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: task id is required", domain.ErrValidation)
	}
	return s.tasks.GetByID(ctx, strings.TrimSpace(id))
}

func (s *FollowupService) List(ctx context.Context, params repository.FollowupListParams) ([]domain.FollowupTask, int64, error) {
	return s.tasks.List(ctx, params)
}

func (s *FollowupService) ListForLead(ctx context.Context, leadID string) ([]domain.FollowupTask, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}

	id := strings.TrimSpace(leadID)
	tasks, _, err := s.tasks.List(ctx, repository.FollowupListParams{LeadID: &id})
	return tasks, err
}

// Cancel stops a single task. Only SCHEDULED tasks can be canceled; anything
// already claimed or settled is a conflict.
func (s *FollowupService) Cancel(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != domain.FollowupStatusScheduled {
		return fmt.Errorf("%w: task %s is %s", domain.ErrConflict, task.ID, task.Status)
	}
	return s.tasks.UpdateStatus(ctx, task.ID, domain.FollowupStatusCanceled)
}

// CancelForLead cancels every remaining scheduled task for a lead and returns
// how many were stopped.
func (s *FollowupService) CancelForLead(ctx context.Context, leadID string) (int64, error) {
	if strings.TrimSpace(leadID) == "" {
		return 0, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	return s.tasks.CancelScheduledForLead(ctx, strings.TrimSpace(leadID))
}

// Process claims and works every due task, returning exact counts. Processed
// counts tasks handed to the queue or settled by a reply; Failed counts tasks
// that ended in FAILED.
func (s *FollowupService) Process(ctx context.Context, limit int) (*ProcessResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 100
	}

	due, err := s.tasks.GetDue(ctx, s.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due followup tasks: %w", err)
	}

	result := &ProcessResult{Total: len(due)}
	for i := range due {
		if ctx.Err() != nil {
			break
		}

		handled, err := s.processTask(ctx, due[i])
		if err != nil {
			result.Failed++
			continue
		}
		if handled {
			result.Processed++
		}
	}

	return result, nil
}

// processTask returns (true, nil) when the task was settled or handed off,
// (false, nil) when the claim was lost or the task was released for a later
// pass, and an error when the task failed.
func (s *FollowupService) processTask(ctx context.Context, task domain.FollowupTask) (bool, error) {
	claimed, err := s.tasks.ClaimForProcessing(ctx, task.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim followup task %s: %w", task.ID, err)
	}
	if !claimed {
		return false, nil
	}

	replied, err := s.checkReply(ctx, task.LeadID)
	if err != nil {
		s.release(ctx, task, fmt.Sprintf("reply check failed: %v", err))
		return false, nil
	}
	if replied {
		s.suppressForReply(ctx, task)
		return true, nil
	}

	genResult, err := s.emails.Generate(ctx, task.LeadID, task.FollowupType.EmailType(), false)
	if err != nil {
		if adapter.IsTransient(err) {
			s.release(ctx, task, err.Error())
			return false, nil
		}
		s.fail(ctx, task, err.Error())
		return false, err
	}

	if err := s.tasks.SetEmailID(ctx, task.ID, genResult.Email.ID); err != nil {
		s.fail(ctx, task, fmt.Sprintf("failed to link email: %v", err))
		return false, err
	}

	_, suppressed, err := s.queue.Enqueue(ctx, genResult.Email.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Already sent: the queue settled this follow-up in a previous pass.
			if updateErr := s.tasks.UpdateStatus(ctx, task.ID, domain.FollowupStatusSent); updateErr != nil {
				s.logger.Error("failed to settle followup task for sent email",
					zap.String("taskId", task.ID),
					zap.Error(updateErr),
				)
			}
			return true, nil
		}
		s.fail(ctx, task, fmt.Sprintf("failed to enqueue: %v", err))
		return false, err
	}
	if suppressed {
		s.logger.Info("followup email already queued",
			zap.String("taskId", task.ID),
			zap.String("emailId", genResult.Email.ID),
		)
	}

	// The task stays PROCESSING until the delivery queue reports the outcome.
	return true, nil
}

func (s *FollowupService) checkReply(ctx context.Context, leadID string) (bool, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return false, err
	}
	if lead.Status == domain.LeadStatusReplied || lead.Status == domain.LeadStatusArchived {
		return true, nil
	}

	if s.replies == nil {
		return false, nil
	}
	return s.replies.ObserveReply(ctx, leadID)
}

// suppressForReply settles the due task as REPLIED and stops the lead's whole
// remaining follow-up sequence.
func (s *FollowupService) suppressForReply(ctx context.Context, task domain.FollowupTask) {
	if err := s.tasks.UpdateStatus(ctx, task.ID, domain.FollowupStatusReplied); err != nil {
		s.logger.Error("failed to mark followup task as replied",
			zap.String("taskId", task.ID),
			zap.Error(err),
		)
	}

	canceled, err := s.tasks.CancelScheduledForLead(ctx, task.LeadID)
	if err != nil {
		s.logger.Error("failed to cancel remaining followup tasks",
			zap.String("leadId", task.LeadID),
			zap.Error(err),
		)
	}

	if _, err := s.tasks.MarkRepliedForLead(ctx, task.LeadID); err != nil {
		s.logger.Error("failed to promote sent followups to replied",
			zap.String("leadId", task.LeadID),
			zap.Error(err),
		)
	}

	if err := s.leads.UpdateStatus(ctx, task.LeadID, domain.LeadStatusReplied); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to mark lead as replied",
			zap.String("leadId", task.LeadID),
			zap.Error(err),
		)
	}

	s.metrics.IncFollowupSuppressed(task.FollowupType.String())
	s.logger.Info("followup sequence suppressed by reply",
		zap.String("leadId", task.LeadID),
		zap.String("taskId", task.ID),
		zap.Int64("canceled", canceled),
	)
}

func (s *FollowupService) release(ctx context.Context, task domain.FollowupTask, reason string) {
	if err := s.tasks.ReleaseClaim(ctx, task.ID, reason); err != nil {
		s.logger.Error("failed to release followup task claim",
			zap.String("taskId", task.ID),
			zap.Error(err),
		)
	}
}

func (s *FollowupService) fail(ctx context.Context, task domain.FollowupTask, reason string) {
	if err := s.tasks.MarkFailed(ctx, task.ID, reason); err != nil {
		s.logger.Error("failed to mark followup task as failed",
			zap.String("taskId", task.ID),
			zap.Error(err),
		)
	}
}
