package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/leadforge/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createFollowupTasks() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000007_create_followup_tasks",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.FollowupTaskModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_followup_tasks_lead_type ON followup_tasks (lead_id, followup_type)`,
				`CREATE INDEX IF NOT EXISTS idx_followup_tasks_due ON followup_tasks (scheduled_date) WHERE status = 'SCHEDULED'`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.FollowupTaskModel{})
		},
	}
}
