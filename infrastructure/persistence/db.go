// Package persistence provides database storage implementations.
package persistence

import (
	"fmt"

	"github.com/hivewatch/hivewatch/internal/database"
)

// Migrate creates or updates the schema for all models.
func Migrate(db database.Database) error {
	err := db.GORM().AutoMigrate(
		&CategoryModel{},
		&KeywordModel{},
		&PostModel{},
		&PostKeywordModel{},
		&ScannedPostModel{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
