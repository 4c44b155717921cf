package repository

import (
	"context"
	"errors"

	"github.com/leadforge/outreach-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebsiteListParams struct {
	Success  *bool
	Page     int
	PageSize int
}

type WebsiteRepository interface {
	GetByDomain(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error)
	Upsert(ctx context.Context, a *domain.WebsiteArtifact) error
	List(ctx context.Context, params WebsiteListParams) ([]domain.WebsiteArtifact, int64, error)
}

type GormWebsiteRepo struct {
	db *gorm.DB
}

func NewGormWebsiteRepo(db *gorm.DB) *GormWebsiteRepo {
	return &GormWebsiteRepo{db: db}
}

func (r *GormWebsiteRepo) GetByDomain(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error) {
	var model WebsiteArtifactModel
	err := r.db.WithContext(ctx).
		Where("domain = ?", normalizedDomain).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return websiteModelToDomain(&model), nil
}

// Upsert overwrites the artifact for a domain. Artifacts are replaced whole on
// re-fetch, never partially updated.
func (r *GormWebsiteRepo) Upsert(ctx context.Context, a *domain.WebsiteArtifact) error {
	model := websiteModelFromDomain(a)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "domain"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"url", "markdown", "success", "error", "fetched_at", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if a != nil {
		*a = *websiteModelToDomain(model)
	}
	return nil
}

func (r *GormWebsiteRepo) List(ctx context.Context, params WebsiteListParams) ([]domain.WebsiteArtifact, int64, error) {
	query := r.db.WithContext(ctx).Model(&WebsiteArtifactModel{})

	if params.Success != nil {
		query = query.Where("success = ?", *params.Success)
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

	var models []WebsiteArtifactModel
	err := query.
		Order("fetched_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	artifacts := make([]domain.WebsiteArtifact, 0, len(models))
	for i := range models {
		artifacts = append(artifacts, *websiteModelToDomain(&models[i]))
	}

	return artifacts, total, nil
}
