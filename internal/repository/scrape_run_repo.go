package repository

import (
	"context"
	"errors"

	"github.com/leadforge/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type ScrapeRunRepository interface {
	Create(ctx context.Context, r *domain.ScrapeRun) error
	GetByID(ctx context.Context, id string) (*domain.ScrapeRun, error)
	UpdateStatus(ctx context.Context, id string, status domain.ScrapeRunStatus) error
	SetFoundCount(ctx context.Context, id string, count int) error
}

type GormScrapeRunRepo struct {
	db *gorm.DB
}

func NewGormScrapeRunRepo(db *gorm.DB) *GormScrapeRunRepo {
	return &GormScrapeRunRepo{db: db}
}

func (r *GormScrapeRunRepo) Create(ctx context.Context, run *domain.ScrapeRun) error {
	model := scrapeRunModelFromDomain(run)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if run != nil {
		*run = *scrapeRunModelToDomain(model)
	}
	return nil
}

func (r *GormScrapeRunRepo) GetByID(ctx context.Context, id string) (*domain.ScrapeRun, error) {
	var model ScrapeRunModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return scrapeRunModelToDomain(&model), nil
}

func (r *GormScrapeRunRepo) UpdateStatus(ctx context.Context, id string, status domain.ScrapeRunStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ScrapeRunModel{}).
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

func (r *GormScrapeRunRepo) SetFoundCount(ctx context.Context, id string, count int) error {
	result := r.db.WithContext(ctx).
		Model(&ScrapeRunModel{}).
		Where("id = ?", id).
		Update("found_count", count)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
