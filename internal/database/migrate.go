package database

import (
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// AutoMigrate creates or updates every table used by the API.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.ClassMember{},
		&models.Assessment{},
		&models.Submission{},
		&models.Deck{},
		&models.Flashcard{},
		&models.PracticeTest{},
		&models.Resource{},
	)
}
