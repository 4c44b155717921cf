package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadforge/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type LeadListParams struct {
	Status   *domain.LeadStatus
	Source   *domain.LeadSource
	RunID    *string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type LeadRepository interface {
	Create(ctx context.Context, l *domain.Lead) error
	CreateBatch(ctx context.Context, leads []*domain.Lead) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	List(ctx context.Context, params LeadListParams) ([]domain.Lead, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error
	Archive(ctx context.Context, id string) error
}

type GormLeadRepo struct {
	db *gorm.DB
}

func NewGormLeadRepo(db *gorm.DB) *GormLeadRepo {
	return &GormLeadRepo{db: db}
}

func (r *GormLeadRepo) Create(ctx context.Context, l *domain.Lead) error {
	model := leadModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *leadModelToDomain(model)
	}
	return nil
}

func (r *GormLeadRepo) CreateBatch(ctx context.Context, leads []*domain.Lead) error {
	models := make([]LeadModel, 0, len(leads))
	modelIndexes := make([]int, 0, len(leads))
	for i, l := range leads {
		model := leadModelFromDomain(l)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(leads) && leads[idx] != nil {
			*leads[idx] = *leadModelToDomain(&models[i])
		}
	}

	return nil
}

func (r *GormLeadRepo) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	var model LeadModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return leadModelToDomain(&model), nil
}

func (r *GormLeadRepo) List(ctx context.Context, params LeadListParams) ([]domain.Lead, int64, error) {
	query := r.db.WithContext(ctx).Model(&LeadModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Source != nil {
		query = query.Where("source = ?", *params.Source)
	}
	if params.RunID != nil {
		query = query.Where("scrape_run_id = ?", *params.RunID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
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

	var models []LeadModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	leads := make([]domain.Lead, 0, len(models))
	for i := range models {
		leads = append(leads, *leadModelToDomain(&models[i]))
	}

	return leads, total, nil
}

func (r *GormLeadRepo) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	result := r.db.WithContext(ctx).
		Model(&LeadModel{}).
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

func (r *GormLeadRepo) Archive(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&LeadModel{}).
		Where("id = ? AND status <> ?", id, domain.LeadStatusArchived).
		Update("status", domain.LeadStatusArchived)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
