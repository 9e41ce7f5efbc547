package persistence

import (
	"gorm.io/gorm"

	"cliparr/ddd/infrastructure/database/po"
)

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(po.Models()...)
}
