package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/leadforge/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createLeads() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_leads",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.LeadModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_leads_status_created ON leads (status, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_leads_scrape_run_id ON leads (scrape_run_id) WHERE scrape_run_id IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (email)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.LeadModel{})
		},
	}
}
