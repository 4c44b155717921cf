package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/leadforge/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createGeneratedEmails() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_generated_emails",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.GeneratedEmailModel{}); err != nil {
				return err
			}
			// The unique (lead_id, email_type) pair is what makes generation
			// idempotent-by-type under concurrent writers.
			return tx.Exec(
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_generated_emails_lead_type ON generated_emails (lead_id, email_type)`,
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.GeneratedEmailModel{})
		},
	}
}
