package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/leadforge/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createWebsiteArtifacts() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_website_artifacts",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.WebsiteArtifactModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.WebsiteArtifactModel{})
		},
	}
}
