package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadforge/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type FollowupListParams struct {
	Status   *domain.FollowupStatus
	LeadID   *string
	Page     int
	PageSize int
}

type FollowupRepository interface {
	Create(ctx context.Context, t *domain.FollowupTask) error
	GetByID(ctx context.Context, id string) (*domain.FollowupTask, error)
	GetByLeadAndType(ctx context.Context, leadID string, followupType domain.FollowupType) (*domain.FollowupTask, error)
	GetByEmailID(ctx context.Context, emailID string) (*domain.FollowupTask, error)
	List(ctx context.Context, params FollowupListParams) ([]domain.FollowupTask, int64, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.FollowupTask, error)
	ClaimForProcessing(ctx context.Context, id string) (bool, error)
	SetEmailID(ctx context.Context, id string, emailID string) error
	UpdateStatus(ctx context.Context, id string, status domain.FollowupStatus) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	ReleaseClaim(ctx context.Context, id string, lastError string) error
	CancelScheduledForLead(ctx context.Context, leadID string) (int64, error)
	MarkRepliedForLead(ctx context.Context, leadID string) (int64, error)
}

type GormFollowupRepo struct {
	db *gorm.DB
}

func NewGormFollowupRepo(db *gorm.DB) *GormFollowupRepo {
	return &GormFollowupRepo{db: db}
}

func (r *GormFollowupRepo) Create(ctx context.Context, t *domain.FollowupTask) error {
	model := followupModelFromDomain(t)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if t != nil {
		*t = *followupModelToDomain(model)
	}
	return nil
}

func (r *GormFollowupRepo) GetByID(ctx context.Context, id string) (*domain.FollowupTask, error) {
	var model FollowupTaskModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return followupModelToDomain(&model), nil
}

func (r *GormFollowupRepo) GetByLeadAndType(ctx context.Context, leadID string, followupType domain.FollowupType) (*domain.FollowupTask, error) {
	var model FollowupTaskModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND followup_type = ?", leadID, followupType).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return followupModelToDomain(&model), nil
}

func (r *GormFollowupRepo) GetByEmailID(ctx context.Context, emailID string) (*domain.FollowupTask, error) {
	var model FollowupTaskModel
	err := r.db.WithContext(ctx).
		Where("email_id = ?", emailID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return followupModelToDomain(&model), nil
}

func (r *GormFollowupRepo) List(ctx context.Context, params FollowupListParams) ([]domain.FollowupTask, int64, error) {
	query := r.db.WithContext(ctx).Model(&FollowupTaskModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.LeadID != nil {
		query = query.Where("lead_id = ?", *params.LeadID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []FollowupTaskModel
	err := query.
		Order("scheduled_date ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	return followupsToDomain(models), total, nil
}

func (r *GormFollowupRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.FollowupTask, error) {
	var models []FollowupTaskModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_date <= ?", domain.FollowupStatusScheduled, now).
		Order("scheduled_date ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return followupsToDomain(models), nil
}

// ClaimForProcessing moves a task from SCHEDULED to PROCESSING; the conditional
// update is the claim, mirroring queue entry claiming.
func (r *GormFollowupRepo) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&FollowupTaskModel{}).
		Where("id = ? AND status = ?", id, domain.FollowupStatusScheduled).
		Update("status", domain.FollowupStatusProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormFollowupRepo) SetEmailID(ctx context.Context, id string, emailID string) error {
	result := r.db.WithContext(ctx).
		Model(&FollowupTaskModel{}).
		Where("id = ?", id).
		Update("email_id", emailID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormFollowupRepo) UpdateStatus(ctx context.Context, id string, status domain.FollowupStatus) error {
	result := r.db.WithContext(ctx).
		Model(&FollowupTaskModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormFollowupRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&FollowupTaskModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.FollowupStatusFailed,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReleaseClaim returns a claimed task to SCHEDULED after a transient failure so
// a later processing pass retries it.
func (r *GormFollowupRepo) ReleaseClaim(ctx context.Context, id string, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&FollowupTaskModel{}).
		Where("id = ? AND status = ?", id, domain.FollowupStatusProcessing).
		Updates(map[string]any{
			"status":        domain.FollowupStatusScheduled,
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

func (r *GormFollowupRepo) CancelScheduledForLead(ctx context.Context, leadID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&FollowupTaskModel{}).
		Where("lead_id = ? AND status = ?", leadID, domain.FollowupStatusScheduled).
		Update("status", domain.FollowupStatusCanceled)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkRepliedForLead promotes a lead's sent follow-ups to REPLIED when a reply
// is observed after the fact.
func (r *GormFollowupRepo) MarkRepliedForLead(ctx context.Context, leadID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&FollowupTaskModel{}).
		Where("lead_id = ? AND status = ?", leadID, domain.FollowupStatusSent).
		Update("status", domain.FollowupStatusReplied)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func followupsToDomain(models []FollowupTaskModel) []domain.FollowupTask {
	tasks := make([]domain.FollowupTask, 0, len(models))
	for i := range models {
		tasks = append(tasks, *followupModelToDomain(&models[i]))
	}
	return tasks
}
