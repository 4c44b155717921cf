package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/observability"
	"github.com/leadforge/outreach-engine/internal/queue"
	"github.com/leadforge/outreach-engine/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minPipelineConcurrency = 1

// PipelineWorker consumes lead pipeline messages and runs the drafting flow
// for each lead: resolve website content, draft the email, enqueue delivery.
type PipelineWorker struct {
	leads       repository.LeadRepository
	emails      *EmailService
	queue       *QueueService
	consumer    queue.Consumer
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewPipelineWorker(
	leads repository.LeadRepository,
	emails *EmailService,
	queueSvc *QueueService,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*PipelineWorker, error) {
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if emails == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if queueSvc == nil {
		return nil, fmt.Errorf("queue service is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minPipelineConcurrency {
		concurrency = minPipelineConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PipelineWorker{
		leads:       leads,
		emails:      emails,
		queue:       queueSvc,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (w *PipelineWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the pipeline queue until context cancellation.
func (w *PipelineWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("pipeline worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.PipelineQueue, w.processMessage)
			if err != nil {
				w.logger.Error("pipeline worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("pipeline worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// processMessage runs the drafting flow for one lead. Returning an error
// requeues the message; permanent failures are recorded against the lead and
// acked so the broker never loops on them.
func (w *PipelineWorker) processMessage(ctx context.Context, msg queue.LeadMessage) error {
	logger := w.logger.With(
		zap.String("leadId", msg.LeadID),
		zap.String("correlationId", msg.CorrelationID),
	)

	lead, err := w.leads.GetByID(ctx, msg.LeadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("lead not found for pipeline message, skipping")
			return nil
		}
		return fmt.Errorf("failed to load lead %s: %w", msg.LeadID, err)
	}

	if lead.Status == domain.LeadStatusReplied || lead.Status == domain.LeadStatusArchived {
		logger.Info("lead left outreach flow, skipping pipeline message",
			zap.String("status", lead.Status.String()),
		)
		return nil
	}

	w.metrics.IncWorkerInFlight("pipeline")
	defer w.metrics.DecWorkerInFlight("pipeline")

	if lead.Status == domain.LeadStatusNew {
		if err := w.leads.UpdateStatus(ctx, lead.ID, domain.LeadStatusProcessing); err != nil {
			logger.Error("failed to mark lead as processing", zap.Error(err))
		}
	}

	result, err := w.emails.Generate(ctx, lead.ID, msg.EmailType, false)
	if err != nil {
		if adapter.IsTransient(err) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("drafting failed for lead %s: %w", lead.ID, err)
		}
		// Permanent drafting failure: the lead is already DRAFT_FAILED.
		logger.Error("drafting failed permanently", zap.Error(err))
		return nil
	}

	if result.AlreadyGenerated {
		logger.Info("email already generated for lead",
			zap.String("emailId", result.Email.ID),
			zap.String("emailType", msg.EmailType.String()),
		)
	}

	entry, suppressed, err := w.queue.Enqueue(ctx, result.Email.ID, w.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrValidation) {
			logger.Info("email not enqueued", zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to enqueue email %s: %w", result.Email.ID, err)
	}

	if suppressed {
		logger.Info("delivery already queued for email",
			zap.String("emailId", result.Email.ID),
			zap.String("entryId", entry.ID),
		)
		return nil
	}

	logger.Info("lead drafted and enqueued",
		zap.String("emailId", result.Email.ID),
		zap.String("entryId", entry.ID),
		zap.Bool("personalized", result.Email.IsPersonalized),
	)
	return nil
}
