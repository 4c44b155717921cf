package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadforge/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type QueueRepository interface {
	Create(ctx context.Context, e *domain.QueueEntry) error
	GetByID(ctx context.Context, id string) (*domain.QueueEntry, error)
	GetLiveByEmail(ctx context.Context, emailID string) (*domain.QueueEntry, error)
	ListPending(ctx context.Context, limit int) ([]domain.QueueEntry, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.QueueEntry, error)
	ClaimForSending(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string, providerMessageID string) error
	Reschedule(ctx context.Context, id string, nextAttempt time.Time, lastError string) error
	MarkFailed(ctx context.Context, id string, lastError string) error
}

type GormQueueRepo struct {
	db *gorm.DB
}

func NewGormQueueRepo(db *gorm.DB) *GormQueueRepo {
	return &GormQueueRepo{db: db}
}

func (r *GormQueueRepo) Create(ctx context.Context, e *domain.QueueEntry) error {
	model := entryModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *entryModelToDomain(model)
	}
	return nil
}

func (r *GormQueueRepo) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	var model QueueEntryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entryModelToDomain(&model), nil
}

// GetLiveByEmail returns the non-terminal entry for an email, if one exists.
// Used to suppress duplicate enqueues.
func (r *GormQueueRepo) GetLiveByEmail(ctx context.Context, emailID string) (*domain.QueueEntry, error) {
	var model QueueEntryModel
	err := r.db.WithContext(ctx).
		Where("email_id = ? AND status IN ?", emailID,
			[]domain.QueueStatus{domain.QueueStatusQueued, domain.QueueStatusSending}).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entryModelToDomain(&model), nil
}

func (r *GormQueueRepo) ListPending(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	var models []QueueEntryModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.QueueStatusQueued).
		Order("scheduled_time ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return entriesToDomain(models), nil
}

func (r *GormQueueRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.QueueEntry, error) {
	var models []QueueEntryModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_time <= ?", domain.QueueStatusQueued, now).
		Order("scheduled_time ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return entriesToDomain(models), nil
}

// ClaimForSending moves an entry from QUEUED to SENDING. The conditional update
// is the claim: exactly one of any concurrent callers sees a row affected.
func (r *GormQueueRepo) ClaimForSending(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&QueueEntryModel{}).
		Where("id = ? AND status = ?", id, domain.QueueStatusQueued).
		Update("status", domain.QueueStatusSending)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormQueueRepo) MarkSent(ctx context.Context, id string, providerMessageID string) error {
	updates := map[string]any{
		"status":        domain.QueueStatusSent,
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    nil,
	}
	if providerMessageID != "" {
		updates["provider_message_id"] = providerMessageID
	}

	result := r.db.WithContext(ctx).
		Model(&QueueEntryModel{}).
		Where("id = ? AND status = ?", id, domain.QueueStatusSending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormQueueRepo) Reschedule(ctx context.Context, id string, nextAttempt time.Time, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&QueueEntryModel{}).
		Where("id = ? AND status = ?", id, domain.QueueStatusSending).
		Updates(map[string]any{
			"status":         domain.QueueStatusQueued,
			"scheduled_time": nextAttempt,
			"attempt_count":  gorm.Expr("attempt_count + 1"),
			"last_error":     lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormQueueRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&QueueEntryModel{}).
		Where("id = ? AND status = ?", id, domain.QueueStatusSending).
		Updates(map[string]any{
			"status":        domain.QueueStatusFailed,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func entriesToDomain(models []QueueEntryModel) []domain.QueueEntry {
	entries := make([]domain.QueueEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *entryModelToDomain(&models[i]))
	}
	return entries
}
