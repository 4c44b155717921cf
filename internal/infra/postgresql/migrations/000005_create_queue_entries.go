package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/leadforge/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createQueueEntries() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_queue_entries",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.QueueEntryModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_queue_entries_due ON queue_entries (scheduled_time) WHERE status = 'QUEUED'`,
				`CREATE INDEX IF NOT EXISTS idx_queue_entries_email_id ON queue_entries (email_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.QueueEntryModel{})
		},
	}
}
