package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// AssessmentFilter narrows assessment listings.
type AssessmentFilter struct {
	ClassIDs      []uint
	PublishedOnly bool
	Kind          string
	Search        string
	DueAfter      *time.Time
}

// AssessmentRepository defines persistence operations for assessments.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	Update(ctx context.Context, assessment *models.Assessment) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (models.Assessment, error)
	List(ctx context.Context, filter AssessmentFilter) ([]models.Assessment, error)
	Count(ctx context.Context) (int64, error)
	UpdateLiveSession(ctx context.Context, id uint, mutate func(*models.Assessment, *models.LiveSession) error) (models.Assessment, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository instantiates a GORM-backed repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(assessment).Error
}

// Update saves the editable columns. The live session is only written by UpdateLiveSession.
func (r *assessmentRepository) Update(ctx context.Context, assessment *models.Assessment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations, "live_session").Save(assessment).Error
}

func (r *assessmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assessment_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Assessment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *assessmentRepository) GetByID(ctx context.Context, id uint) (models.Assessment, error) {
	var assessment models.Assessment
	if err := r.db.WithContext(ctx).First(&assessment, id).Error; err != nil {
		return models.Assessment{}, err
	}
	return assessment, nil
}

func (r *assessmentRepository) List(ctx context.Context, filter AssessmentFilter) ([]models.Assessment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assessment{})

	if filter.ClassIDs != nil {
		if len(filter.ClassIDs) == 0 {
			return []models.Assessment{}, nil
		}
		query = query.Where("class_id IN ?", filter.ClassIDs)
	}
	if filter.PublishedOnly {
		query = query.Where("published = ?", true)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ?", pattern)
	}
	if filter.DueAfter != nil {
		query = query.Where("due_date IS NULL OR due_date > ?", *filter.DueAfter)
	}

	var assessments []models.Assessment
	if err := query.Order("created_at DESC").Find(&assessments).Error; err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *assessmentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Assessment{}).Count(&total).Error
	return total, err
}

// UpdateLiveSession runs mutate against a row-locked copy of the assessment
// and persists only the live session column.
func (r *assessmentRepository) UpdateLiveSession(ctx context.Context, id uint, mutate func(*models.Assessment, *models.LiveSession) error) (models.Assessment, error) {
	var updated models.Assessment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assessment models.Assessment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&assessment, id).Error; err != nil {
			return err
		}

		session := assessment.LiveSession.Data()
		if err := mutate(&assessment, &session); err != nil {
			return err
		}

		assessment.LiveSession = datatypes.NewJSONType(session)
		if err := tx.Model(&assessment).Update("live_session", assessment.LiveSession).Error; err != nil {
			return err
		}

		updated = assessment
		return nil
	})
	if err != nil {
		return models.Assessment{}, err
	}
	return updated, nil
}
