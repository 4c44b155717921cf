package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadforge/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type EmailRepository interface {
	Create(ctx context.Context, e *domain.GeneratedEmail) error
	GetByID(ctx context.Context, id string) (*domain.GeneratedEmail, error)
	GetByLeadAndType(ctx context.Context, leadID string, emailType domain.EmailType) (*domain.GeneratedEmail, error)
	ListByLead(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error)
	UpdateStatus(ctx context.Context, id string, status domain.EmailStatus) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type GormEmailRepo struct {
	db *gorm.DB
}

func NewGormEmailRepo(db *gorm.DB) *GormEmailRepo {
	return &GormEmailRepo{db: db}
}

func (r *GormEmailRepo) Create(ctx context.Context, e *domain.GeneratedEmail) error {
	model := emailModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *emailModelToDomain(model)
	}
	return nil
}

func (r *GormEmailRepo) GetByID(ctx context.Context, id string) (*domain.GeneratedEmail, error) {
	var model GeneratedEmailModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return emailModelToDomain(&model), nil
}

func (r *GormEmailRepo) GetByLeadAndType(ctx context.Context, leadID string, emailType domain.EmailType) (*domain.GeneratedEmail, error) {
	var model GeneratedEmailModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND email_type = ?", leadID, emailType).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return emailModelToDomain(&model), nil
}

func (r *GormEmailRepo) ListByLead(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error) {
	var models []GeneratedEmailModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	emails := make([]domain.GeneratedEmail, 0, len(models))
	for i := range models {
		emails = append(emails, *emailModelToDomain(&models[i]))
	}

	return emails, nil
}

func (r *GormEmailRepo) UpdateStatus(ctx context.Context, id string, status domain.EmailStatus) error {
	result := r.db.WithContext(ctx).
		Model(&GeneratedEmailModel{}).
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

func (r *GormEmailRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&GeneratedEmailModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  domain.EmailStatusSent,
			"sent_at": sentAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an email record. Only used by forced regeneration; queue
// entries referencing the email must be terminal first.
func (r *GormEmailRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&GeneratedEmailModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
