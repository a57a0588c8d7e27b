package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// PracticeTestRepository persists generated practice tests.
type PracticeTestRepository interface {
	Create(ctx context.Context, test *models.PracticeTest) error
	Update(ctx context.Context, test *models.PracticeTest) error
	GetByID(ctx context.Context, id uint) (models.PracticeTest, error)
	ListByUser(ctx context.Context, userID uint, deckID *uint) ([]models.PracticeTest, error)
}

type practiceTestRepository struct {
	db *gorm.DB
}

// NewPracticeTestRepository instantiates a GORM-backed repository.
func NewPracticeTestRepository(db *gorm.DB) PracticeTestRepository {
	return &practiceTestRepository{db: db}
}

func (r *practiceTestRepository) Create(ctx context.Context, test *models.PracticeTest) error {
	return r.db.WithContext(ctx).Create(test).Error
}

func (r *practiceTestRepository) Update(ctx context.Context, test *models.PracticeTest) error {
	return r.db.WithContext(ctx).Save(test).Error
}

func (r *practiceTestRepository) GetByID(ctx context.Context, id uint) (models.PracticeTest, error) {
	var test models.PracticeTest
	if err := r.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return models.PracticeTest{}, err
	}
	return test, nil
}

func (r *practiceTestRepository) ListByUser(ctx context.Context, userID uint, deckID *uint) ([]models.PracticeTest, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if deckID != nil {
		query = query.Where("deck_id = ?", *deckID)
	}

	var tests []models.PracticeTest
	if err := query.Order("created_at DESC").Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}
