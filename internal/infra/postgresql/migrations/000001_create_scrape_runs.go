package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/leadforge/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createScrapeRuns() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_scrape_runs",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.ScrapeRunModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ScrapeRunModel{})
		},
	}
}
